package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tristendillon/nixbundle/core/logger"
	"github.com/tristendillon/nixbundle/core/models"
)

// RebuildFunc produces a bundle and returns the files it was built from.
// Those files are the ones watched until the next rebuild.
type RebuildFunc func() ([]models.FileIdentity, error)

type Options struct {
	RootDir      string
	ExcludePaths []string
	Debounce     time.Duration
	OnStart      RebuildFunc
	OnChange     RebuildFunc
}

type FileWatcher struct {
	watcher       *fsnotify.Watcher
	rootDir       string
	excludePaths  []string
	debounce      time.Duration
	onStart       RebuildFunc
	onChange      RebuildFunc
	debounceTimer *time.Timer

	// rebuildMu serializes OnChange runs. A timer callback that fires while
	// a rebuild is in progress waits here instead of overlapping it.
	rebuildMu sync.Mutex

	mutex sync.Mutex
	files map[models.FileIdentity]struct{}
	dirs  map[string]struct{}
}

func NewFileWatcher(opts Options) (*FileWatcher, error) {
	if opts.OnStart == nil || opts.OnChange == nil {
		return nil, fmt.Errorf("file watcher needs both OnStart and OnChange")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	excludes := append([]string{".git"}, opts.ExcludePaths...)
	logger.Debug("Excluding paths: %v", excludes)

	return &FileWatcher{
		watcher:      w,
		rootDir:      opts.RootDir,
		excludePaths: excludes,
		debounce:     opts.Debounce,
		onStart:      opts.OnStart,
		onChange:     opts.OnChange,
		files:        map[models.FileIdentity]struct{}{},
		dirs:         map[string]struct{}{},
	}, nil
}

// Watch runs the initial build and then rebuilds whenever one of the
// bundled files changes, until ctx is cancelled.
func (fw *FileWatcher) Watch(ctx context.Context) error {
	fw.rebuildMu.Lock()
	files, err := fw.onStart()
	if err != nil {
		logger.Error("Initial build failed: %v", err)
	}
	fw.setFiles(files)
	fw.rebuildMu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !fw.isRelevant(event.Name) {
				continue
			}
			logger.Debug("File event: %s %s", event.Op, event.Name)
			fw.debounceRebuild()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			logger.Error("Watcher error: %v", err)
		}
	}
}

func (fw *FileWatcher) debounceRebuild() {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}

	fw.debounceTimer = time.AfterFunc(fw.debounce, fw.rebuild)
}

func (fw *FileWatcher) rebuild() {
	fw.rebuildMu.Lock()
	defer fw.rebuildMu.Unlock()

	logger.Debug("File changes detected, rebuilding...")
	files, err := fw.onChange()
	if err != nil {
		logger.Error("Rebuild failed: %v", err)
	}
	fw.setFiles(files)
}

func (fw *FileWatcher) Close() error {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	return fw.watcher.Close()
}

// setFiles replaces the watched file set. A nil slice keeps the previous
// set. Directories that cannot be watched, such as the parent of a file
// that does not exist yet, are skipped.
func (fw *FileWatcher) setFiles(files []models.FileIdentity) {
	if files == nil {
		return
	}

	fw.mutex.Lock()
	defer fw.mutex.Unlock()

	next := map[models.FileIdentity]struct{}{}
	for _, f := range files {
		if fw.shouldExcludePath(f.String()) {
			continue
		}
		next[f] = struct{}{}
	}
	fw.files = next

	wanted := map[string]struct{}{}
	for _, dir := range watchDirs(next) {
		if _, ok := fw.dirs[dir]; ok {
			wanted[dir] = struct{}{}
			continue
		}
		logger.Debug("Adding watcher for: %s", dir)
		if err := fw.watcher.Add(dir); err != nil {
			logger.Warn("Failed to add watcher for %s: %v", dir, err)
			continue
		}
		wanted[dir] = struct{}{}
	}
	for dir := range fw.dirs {
		if _, ok := wanted[dir]; ok {
			continue
		}
		logger.Debug("Removing watcher for: %s", dir)
		if err := fw.watcher.Remove(dir); err != nil {
			logger.Debug("Failed to remove watcher for %s: %v", dir, err)
		}
	}
	fw.dirs = wanted
}

func (fw *FileWatcher) isRelevant(path string) bool {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	_, ok := fw.files[models.FileIdentity(filepath.Clean(path))]
	return ok
}

func (fw *FileWatcher) shouldExcludePath(path string) bool {
	relPath, err := filepath.Rel(fw.rootDir, path)
	if err != nil {
		return false
	}

	relPath = filepath.Clean(relPath)

	for _, excludePath := range fw.excludePaths {
		if filepath.IsAbs(excludePath) {
			if rel, err := filepath.Rel(fw.rootDir, excludePath); err == nil {
				excludePath = rel
			}
		}
		excludePath = filepath.Clean(excludePath)

		if relPath == excludePath {
			return true
		}
		if strings.HasPrefix(relPath, excludePath+string(filepath.Separator)) {
			return true
		}
	}

	return false
}

// watchDirs returns the sorted parent directories of files. Directories are
// watched instead of files so that editors replacing a file by rename are
// still observed.
func watchDirs(files map[models.FileIdentity]struct{}) []string {
	seen := map[string]struct{}{}
	var dirs []string
	for f := range files {
		dir := f.Dir()
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}
