/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/tristendillon/nixbundle/core/logger"
	"github.com/tristendillon/nixbundle/core/version"
)

var rootCmd = &cobra.Command{
	Use:   "nixbundle",
	Short: "Bundle a tree of Nix files into a single self-contained file.",
	Long: TitleStyle.Render("nixbundle") + SubtitleStyle.Render(" - inline every import of a Nix entry file") + `

Starting from an entry file, nixbundle follows every path import, reads
each file once and replaces each import expression with the contents of
the file it names. The result is written to one .nix file and checked
with nix-instantiate.

` + SubtitleStyle.Render("Examples:") + `
  nixbundle bundle -e default.nix            Write bundled.nix
  nixbundle bundle -e hosts/web.nix -o web.nix
  nixbundle graph -e default.nix             Show the import graph
  nixbundle watch -e default.nix             Rebundle on every change
  nixbundle init                             Create nixbundle.yaml`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.SetVerbose(verbose)
		if logfile == "" {
			return nil
		}
		f, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", logfile, err)
		}
		logger.AddWriterForAll(f)
		return nil
	},
}

var logfile string
var verbose bool

func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version.Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logfile, "logfile", "", "File to write logs to")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}
