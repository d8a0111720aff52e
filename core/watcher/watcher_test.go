package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tristendillon/nixbundle/core/models"
)

func noop() ([]models.FileIdentity, error) { return nil, nil }

func newTestWatcher(t *testing.T, root string, opts Options) *FileWatcher {
	t.Helper()
	opts.RootDir = root
	if opts.OnStart == nil {
		opts.OnStart = noop
	}
	if opts.OnChange == nil {
		opts.OnChange = noop
	}
	fw, err := NewFileWatcher(opts)
	require.NoError(t, err)
	t.Cleanup(func() { fw.Close() })
	return fw
}

func TestNewFileWatcher_RequiresCallbacks(t *testing.T) {
	_, err := NewFileWatcher(Options{RootDir: t.TempDir()})
	assert.Error(t, err)
}

func TestShouldExcludePath(t *testing.T) {
	root := "/w"
	fw := newTestWatcher(t, root, Options{ExcludePaths: []string{"result", "/w/out/bundled.nix"}})

	tests := []struct {
		path string
		want bool
	}{
		{"/w/result", true},
		{"/w/result/default.nix", true},
		{"/w/results.nix", false},
		{"/w/.git/HEAD", true},
		{"/w/out/bundled.nix", true},
		{"/w/out/other.nix", false},
		{"/w/main.nix", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, fw.shouldExcludePath(tt.path))
		})
	}
}

func TestWatchDirs(t *testing.T) {
	files := map[models.FileIdentity]struct{}{
		"/w/main.nix":          {},
		"/w/lib.nix":           {},
		"/w/modules/a.nix":     {},
		"/w/modules/sub/b.nix": {},
	}
	assert.Equal(t, []string{"/w", "/w/modules", "/w/modules/sub"}, watchDirs(files))
}

func TestSetFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	main := models.FileIdentity(filepath.Join(root, "main.nix"))
	sub := models.FileIdentity(filepath.Join(root, "sub", "a.nix"))
	out := models.FileIdentity(filepath.Join(root, "bundled.nix"))

	fw := newTestWatcher(t, root, Options{ExcludePaths: []string{"bundled.nix"}})

	fw.setFiles([]models.FileIdentity{main, sub, out})
	assert.True(t, fw.isRelevant(main.String()))
	assert.True(t, fw.isRelevant(sub.String()))
	assert.False(t, fw.isRelevant(out.String()))
	assert.Len(t, fw.dirs, 2)

	fw.setFiles(nil)
	assert.True(t, fw.isRelevant(sub.String()), "nil keeps previous files")

	fw.setFiles([]models.FileIdentity{main})
	assert.False(t, fw.isRelevant(sub.String()))
	assert.Len(t, fw.dirs, 1)
	assert.Equal(t, []string{root}, fw.watcher.WatchList())
}

func TestSetFiles_MissingDirectory(t *testing.T) {
	root := t.TempDir()
	main := models.FileIdentity(filepath.Join(root, "main.nix"))
	missing := models.FileIdentity(filepath.Join(root, "later", "lib.nix"))

	fw := newTestWatcher(t, root, Options{})
	fw.setFiles([]models.FileIdentity{main, missing})

	assert.True(t, fw.isRelevant(missing.String()))
	assert.Equal(t, []string{root}, fw.watcher.WatchList())
}

func TestRebuild_Serialized(t *testing.T) {
	var running, maxRunning, runs atomic.Int32
	fw := newTestWatcher(t, t.TempDir(), Options{
		Debounce: 10 * time.Millisecond,
		OnChange: func() ([]models.FileIdentity, error) {
			n := running.Add(1)
			for {
				m := maxRunning.Load()
				if n <= m || maxRunning.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(150 * time.Millisecond)
			running.Add(-1)
			runs.Add(1)
			return nil, nil
		},
	})

	for i := 0; i < 4; i++ {
		fw.debounceRebuild()
		time.Sleep(60 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return runs.Load() == 4
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(1), maxRunning.Load())
}

func TestWatch_RebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, "main.nix")
	unrelated := filepath.Join(root, "notes.txt")
	require.NoError(t, os.WriteFile(main, []byte("1"), 0o644))

	files := func() ([]models.FileIdentity, error) {
		return []models.FileIdentity{models.FileIdentity(main)}, nil
	}
	changes := make(chan struct{}, 10)
	fw := newTestWatcher(t, root, Options{
		Debounce: 20 * time.Millisecond,
		OnStart:  files,
		OnChange: func() ([]models.FileIdentity, error) {
			changes <- struct{}{}
			return files()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fw.Watch(ctx) }()

	require.Eventually(t, func() bool {
		return len(fw.watcher.WatchList()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(unrelated, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(main, []byte("2"), 0o644))

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after change")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
