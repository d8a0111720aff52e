// Package graph discovers every file reachable from an entry point through
// import directives and records each one exactly once.
package graph

import (
	"errors"

	"github.com/tristendillon/nixbundle/core/logger"
	"github.com/tristendillon/nixbundle/core/models"
	"github.com/tristendillon/nixbundle/core/resolver"
	"github.com/tristendillon/nixbundle/core/scanner"
	"github.com/tristendillon/nixbundle/core/source"
)

// Builder walks imports depth-first from an entry file.
type Builder struct {
	source source.Source
}

func NewBuilder(src source.Source) *Builder {
	if src == nil {
		src = source.OS{}
	}
	return &Builder{source: src}
}

// Build returns the graph of entry and everything it transitively imports.
// The first failure aborts the walk; no partial graph is returned.
func (b *Builder) Build(entry models.FileIdentity) (*DependencyGraph, error) {
	dg := newDependencyGraph(entry)
	if err := b.visit(dg, entry); err != nil {
		return nil, err
	}

	logger.Debug("DependencyGraph: Built graph with %d nodes from %s", dg.Len(), entry)
	return dg, nil
}

func (b *Builder) visit(dg *DependencyGraph, id models.FileIdentity) error {
	// Processed files cover both diamonds and cycles.
	if dg.Has(id) {
		return nil
	}

	exists, err := b.source.Exists(id)
	if err != nil {
		return models.NewReadError(id, err)
	}
	if !exists {
		return models.NewFileNotFoundError(id)
	}

	content, err := b.source.ReadFile(id)
	if err != nil {
		return models.NewReadError(id, err)
	}

	imports, err := scanner.Scan(id, content)
	if err != nil {
		return err
	}

	// Record before recursing so re-entry stops at the Has check above.
	dg.add(&models.ResolvedFile{
		Identity: id,
		Content:  content,
		Imports:  imports,
	})
	logger.Debug("Scanned %s: %d imports", id, len(imports))

	for _, imp := range imports {
		child, err := resolver.Resolve(imp.Target, id)
		if err != nil {
			return withImport(err, id, imp.Line)
		}
		if err := b.visit(dg, child); err != nil {
			return withImport(err, id, imp.Line)
		}
	}

	return nil
}

func withImport(err error, importer models.FileIdentity, line int) error {
	var bundleErr *models.BundleError
	if errors.As(err, &bundleErr) {
		return bundleErr.WithImport(importer, line)
	}
	return err
}
