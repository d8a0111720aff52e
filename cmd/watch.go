package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tristendillon/nixbundle/core/bundler"
	"github.com/tristendillon/nixbundle/core/cache"
	"github.com/tristendillon/nixbundle/core/config"
	"github.com/tristendillon/nixbundle/core/logger"
	"github.com/tristendillon/nixbundle/core/models"
	"github.com/tristendillon/nixbundle/core/resolver"
	"github.com/tristendillon/nixbundle/core/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebundle whenever a bundled file changes",
	Long: `Bundles the entry file, then watches every file in its import graph and
rebundles after each change. Files whose size and modification time did not
change are served from memory. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("watch called")
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

		cc, err := cache.NewContentCache(&cache.CacheConfig{MaxEntries: cfg.CacheSize})
		if err != nil {
			return err
		}

		output := absOutput(wd, cfg.Output)
		b := &watchBuild{
			cfg:    cfg,
			wd:     wd,
			entry:  entry,
			output: output,
			cache:  cc,
			cmd:    cmd,
		}

		fw, err := watcher.NewFileWatcher(watcher.Options{
			RootDir:      wd,
			ExcludePaths: append(append([]string{}, cfg.Watch.Exclude...), output),
			Debounce:     cfg.Watch.Debounce,
			OnStart:      b.rebuild,
			OnChange:     b.rebuild,
		})
		if err != nil {
			return err
		}
		defer fw.Close()

		logger.Info("Watching %s (Ctrl-C to stop)", cfg.Entry)
		if err := fw.Watch(cmd.Context()); err != nil {
			return err
		}
		cc.LogStats()
		logger.Info("Stopped watching")
		return nil
	},
}

// watchBuild holds the state carried between rebuilds. The watcher runs
// rebuilds one at a time, so its fields need no lock.
type watchBuild struct {
	cfg       *config.Config
	wd        string
	entry     models.FileIdentity
	output    string
	cache     *cache.ContentCache
	cmd       *cobra.Command
	lastHash  string
	lastFiles []models.FileIdentity
}

func (b *watchBuild) rebuild() ([]models.FileIdentity, error) {
	start := time.Now()
	res, err := bundler.Bundle(b.entry.String(), bundler.Options{
		Source: b.cache,
		Inline: b.cfg.InlineOptions(),
	})
	if err != nil {
		// Keep watching the last good graph plus the files the failure is
		// about, so creating a missing import triggers the next rebuild.
		files := append([]models.FileIdentity{}, b.lastFiles...)
		if len(files) == 0 {
			files = append(files, b.entry)
		}
		return append(files, bundler.ErrorFiles(err)...), err
	}
	files := res.Graph.Files()
	b.lastFiles = files

	hash := cache.HashContent(res.Content)
	if hash == b.lastHash {
		logger.Info("Bundle unchanged (%d files)", len(files))
		return files, nil
	}
	if err := bundler.WriteOutput(b.output, res.Content); err != nil {
		return files, err
	}
	b.lastHash = hash
	logger.Info("Bundled %d files into %s in %s", len(files), b.cfg.Output, time.Since(start).Round(time.Millisecond))

	if b.cfg.Validate {
		if err := validate(b.cmd.Context(), b.cfg.Validator, b.output); err != nil {
			return files, fmt.Errorf("bundle written but %w", err)
		}
	}
	return files, nil
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addBundleFlags(watchCmd)
	watchCmd.Flags().Duration("debounce", config.Default().Watch.Debounce, "Delay between a change and the rebuild")
}
