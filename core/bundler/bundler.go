// Package bundler wires resolution, graph building and inlining into a
// single call, and writes the resulting artifact.
package bundler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tristendillon/nixbundle/core/graph"
	"github.com/tristendillon/nixbundle/core/inliner"
	"github.com/tristendillon/nixbundle/core/logger"
	"github.com/tristendillon/nixbundle/core/models"
	"github.com/tristendillon/nixbundle/core/resolver"
	"github.com/tristendillon/nixbundle/core/source"
)

type Options struct {
	// BaseDir anchors a relative entry path. The CLI passes its working
	// directory here.
	BaseDir string
	// Source reads files. Defaults to the local filesystem.
	Source source.Source
	Inline inliner.Options
}

type Result struct {
	Entry   models.FileIdentity
	Graph   *graph.DependencyGraph
	Content string
}

// Bundle resolves entry, builds its dependency graph and inlines it.
func Bundle(entry string, opts Options) (*Result, error) {
	id, err := resolver.ResolveEntry(entry, opts.BaseDir)
	if err != nil {
		return nil, err
	}

	dg, err := BuildGraph(id, opts.Source)
	if err != nil {
		return nil, err
	}

	content, err := inliner.Inline(dg, opts.Inline)
	if err != nil {
		return nil, err
	}

	logger.Debug("Inlined %d files from %s (%d bytes)", dg.Len(), id, len(content))
	return &Result{
		Entry:   id,
		Graph:   dg,
		Content: content,
	}, nil
}

// BuildGraph builds the dependency graph of an already resolved entry.
func BuildGraph(entry models.FileIdentity, src source.Source) (*graph.DependencyGraph, error) {
	if src == nil {
		src = source.OS{}
	}
	return graph.NewBuilder(src).Build(entry)
}

// ErrorFiles returns the files a bundle error refers to: the file that
// failed and the file whose import led to it.
func ErrorFiles(err error) []models.FileIdentity {
	var bundleErr *models.BundleError
	if !errors.As(err, &bundleErr) {
		return nil
	}
	var files []models.FileIdentity
	if bundleErr.Path != "" && filepath.IsAbs(bundleErr.Path) {
		files = append(files, models.FileIdentity(bundleErr.Path))
	}
	if bundleErr.Importer != "" {
		files = append(files, bundleErr.Importer)
	}
	return files
}

// WriteOutput writes content to path through a temporary file in the same
// directory, so readers never observe a partially written bundle.
func WriteOutput(path, content string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move bundle to %s: %w", path, err)
	}
	return nil
}
