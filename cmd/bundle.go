package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tristendillon/nixbundle/core/bundler"
	"github.com/tristendillon/nixbundle/core/config"
	"github.com/tristendillon/nixbundle/core/logger"
	"github.com/tristendillon/nixbundle/core/validator"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Bundle an entry file and its imports into one file",
	Long: `Follows every path import reachable from the entry file and writes a single
Nix file in which each import expression is replaced by the contents of the
file it names. The bundle is then checked with the configured validator.

Nothing is written when any import cannot be resolved or read.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("bundle called")
		wd, cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := requireEntry(cfg); err != nil {
			return err
		}
		output := absOutput(wd, cfg.Output)

		fmt.Printf("Entry:  %s\n", PathStyle.Render(cfg.Entry))
		fmt.Printf("Output: %s\n", PathStyle.Render(cfg.Output))

		res, err := bundler.Bundle(cfg.Entry, bundler.Options{
			BaseDir: wd,
			Inline:  cfg.InlineOptions(),
		})
		if err != nil {
			return fmt.Errorf("failed to bundle %s: %w", cfg.Entry, err)
		}

		if err := bundler.WriteOutput(output, res.Content); err != nil {
			return err
		}
		fmt.Printf("%s Bundled %d files into %s\n", SuccessStyle.Render("✓"), res.Graph.Len(), cfg.Output)

		if !cfg.Validate {
			logger.Debug("Validation disabled")
			return nil
		}
		return validate(cmd.Context(), cfg.Validator, output)
	},
}

// addBundleFlags registers the flags shared by every command that builds a
// bundle. Defaults only document the fallback; config.Load applies a flag
// value only when the user set it.
func addBundleFlags(cmd *cobra.Command) {
	d := config.Default()
	cmd.Flags().StringP("entry", "e", "", "Entry Nix file")
	cmd.Flags().StringP("output", "o", d.Output, "Output file")
	cmd.Flags().Bool("validate", d.Validate, "Check the bundle with the validator")
	cmd.Flags().String("validator", d.Validator, "Validator command, the bundle path is appended")
	cmd.Flags().String("cycle-policy", d.CyclePolicy, "What to do on a circular import: empty or error")
	cmd.Flags().String("replace-mode", d.ReplaceMode, "How imports are substituted: literal or span")
	cmd.Flags().Bool("parenthesize", d.Parenthesize, "Wrap each inlined file in parentheses")
}

func loadConfig(cmd *cobra.Command) (string, *config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	cfg, err := config.Load(config.LoadOptions{Dir: wd, Flags: cmd.Flags()})
	if err != nil {
		return "", nil, err
	}
	return wd, cfg, nil
}

func requireEntry(cfg *config.Config) error {
	if strings.TrimSpace(cfg.Entry) == "" {
		return fmt.Errorf("no entry file: pass --entry or set entry in %s", config.FileName)
	}
	return nil
}

func absOutput(wd, output string) string {
	if filepath.IsAbs(output) {
		return filepath.Clean(output)
	}
	return filepath.Join(wd, output)
}

func validate(ctx context.Context, cmdline, output string) error {
	v, err := validator.New(cmdline)
	if err != nil {
		return err
	}
	fmt.Printf("Validating with %s...\n", v.Command())
	stdout, err := v.Validate(ctx, output)
	if err != nil {
		return err
	}
	if stdout != "" {
		fmt.Print(stdout)
	}
	fmt.Printf("%s Bundle is a valid Nix expression\n", SuccessStyle.Render("✓"))
	return nil
}

func init() {
	rootCmd.AddCommand(bundleCmd)
	addBundleFlags(bundleCmd)
}
