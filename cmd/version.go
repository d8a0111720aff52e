/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/tristendillon/nixbundle/core/version"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the version of nixbundle",
	Long:  `Displays the version of nixbundle, the Go toolchain it was built with and, when known, the source revision.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nixbundle %s (%s %s/%s)\n", version.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		if rev := buildRevision(); rev != "" {
			fmt.Printf("revision %s\n", rev)
		}
	},
}

// buildRevision returns the VCS revision stamped into the binary, marked
// dirty when the tree had local changes.
func buildRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var rev string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
