/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tristendillon/nixbundle/core/config"
	"github.com/tristendillon/nixbundle/core/logger"
)

var (
	force bool
)

var initCmd = &cobra.Command{
	Use:   "init [entry]",
	Short: "Create a nixbundle.yaml in the current directory",
	Long:  `Writes a nixbundle.yaml with the default settings, optionally pointing at an entry file.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("init called")
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}

		path := filepath.Join(wd, config.FileName)
		if _, err := os.Stat(path); err == nil {
			if !force {
				fmt.Printf("%s already exists. Use --force to overwrite.\n", config.FileName)
				return nil
			}
			logger.Debug("%s already exists. Overwriting.", path)
		}

		cfg := config.Default()
		if len(args) == 1 {
			cfg.Entry = args[0]
		}
		if err := config.Write(path, cfg); err != nil {
			return err
		}
		fmt.Printf("%s Created %s\n", SuccessStyle.Render("✓"), config.FileName)

		fmt.Printf("Next Steps:\n")
		if cfg.Entry == "" {
			fmt.Printf("  - set entry in %s\n", config.FileName)
		}
		fmt.Printf("  - nixbundle bundle\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&force, "force", false, "Force overwrite existing files")
}
