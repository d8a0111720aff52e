package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tristendillon/nixbundle/core/bundler"
	"github.com/tristendillon/nixbundle/core/logger"
	"github.com/tristendillon/nixbundle/core/models"
	"github.com/tristendillon/nixbundle/core/resolver"
)

var topo bool

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the import graph of an entry file",
	Long: `Prints every file reachable from the entry in the order it was discovered,
each followed by the files it imports, then any circular imports.

With --topo the files are printed so that every file comes after all of the
files it imports. Circular imports are an error in this mode.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("graph called")
		wd, cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := requireEntry(cfg); err != nil {
			return err
		}

		entry, err := resolver.ResolveEntry(cfg.Entry, wd)
		if err != nil {
			return err
		}
		dg, err := bundler.BuildGraph(entry, nil)
		if err != nil {
			return fmt.Errorf("failed to build graph for %s: %w", cfg.Entry, err)
		}

		if topo {
			order, err := dg.TopologicalOrder()
			if err != nil {
				return err
			}
			for _, f := range order {
				fmt.Println(displayPath(wd, f))
			}
			return nil
		}

		for _, f := range dg.Files() {
			fmt.Println(displayPath(wd, f))
			deps, err := dg.Dependencies(f)
			if err != nil {
				return err
			}
			for _, dep := range deps {
				fmt.Printf("  -> %s\n", PathStyle.Render(displayPath(wd, dep)))
			}
		}

		cycles, err := dg.DetectCycles()
		if err != nil {
			return err
		}
		if len(cycles) > 0 {
			fmt.Printf("%s %d circular imports:\n", WarningStyle.Render("!"), len(cycles))
			for _, cycle := range cycles {
				parts := make([]string, len(cycle))
				for i, f := range cycle {
					parts[i] = displayPath(wd, f)
				}
				fmt.Printf("  %s\n", strings.Join(parts, " -> "))
			}
		}
		return nil
	},
}

// displayPath shows files under the working directory relative to it.
func displayPath(wd string, id models.FileIdentity) string {
	rel, err := filepath.Rel(wd, id.String())
	if err != nil || strings.HasPrefix(rel, "..") {
		return id.String()
	}
	return rel
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("entry", "e", "", "Entry Nix file")
	graphCmd.Flags().BoolVar(&topo, "topo", false, "Print dependencies before their dependents")
}
