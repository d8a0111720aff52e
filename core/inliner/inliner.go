// Package inliner expands a dependency graph into a single document by
// replacing every import directive with the expanded text of its target.
package inliner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tristendillon/nixbundle/core/graph"
	"github.com/tristendillon/nixbundle/core/logger"
	"github.com/tristendillon/nixbundle/core/models"
	"github.com/tristendillon/nixbundle/core/resolver"
)

// CyclePolicy decides what an import of a file that is still being expanded
// turns into.
type CyclePolicy string

const (
	// CycleEmpty replaces the cyclic import with nothing.
	CycleEmpty CyclePolicy = "empty"
	// CycleError aborts the bundle with models.ErrCycle.
	CycleError CyclePolicy = "error"
)

// ReplaceMode decides how a directive is substituted in its file's text.
type ReplaceMode string

const (
	// ReplaceLiteral replaces every occurrence of the directive's exact text,
	// so byte-identical directives elsewhere in the file share one expansion.
	ReplaceLiteral ReplaceMode = "literal"
	// ReplaceSpan replaces only the byte span the directive was scanned at.
	ReplaceSpan ReplaceMode = "span"
)

type Options struct {
	CyclePolicy  CyclePolicy
	ReplaceMode  ReplaceMode
	Parenthesize bool
}

func DefaultOptions() Options {
	return Options{
		CyclePolicy: CycleEmpty,
		ReplaceMode: ReplaceLiteral,
	}
}

// Validate rejects unknown policy and mode values.
func (o Options) Validate() error {
	switch o.CyclePolicy {
	case CycleEmpty, CycleError:
	default:
		return fmt.Errorf("unknown cycle policy %q (want %q or %q)", o.CyclePolicy, CycleEmpty, CycleError)
	}
	switch o.ReplaceMode {
	case ReplaceLiteral, ReplaceSpan:
	default:
		return fmt.Errorf("unknown replace mode %q (want %q or %q)", o.ReplaceMode, ReplaceLiteral, ReplaceSpan)
	}
	return nil
}

// Inliner holds the state of one expansion run. The active set contains the
// files on the current expansion path only; it is separate from the graph's
// processed set, which spans the whole run.
type Inliner struct {
	graph  *graph.DependencyGraph
	opts   Options
	active map[models.FileIdentity]bool
	path   []models.FileIdentity
}

func New(dg *graph.DependencyGraph, opts Options) (*Inliner, error) {
	if opts.CyclePolicy == "" {
		opts.CyclePolicy = CycleEmpty
	}
	if opts.ReplaceMode == "" {
		opts.ReplaceMode = ReplaceLiteral
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Inliner{
		graph:  dg,
		opts:   opts,
		active: make(map[models.FileIdentity]bool),
	}, nil
}

// Inline expands the graph's entry file.
func Inline(dg *graph.DependencyGraph, opts Options) (string, error) {
	in, err := New(dg, opts)
	if err != nil {
		return "", err
	}
	return in.Expand(dg.Entry)
}

// Expand returns the fully inlined text of id.
func (in *Inliner) Expand(id models.FileIdentity) (string, error) {
	node, exists := in.graph.Get(id)
	if !exists {
		return "", models.NewMissingNodeError(id)
	}

	if in.active[id] {
		if in.opts.CyclePolicy == CycleError {
			return "", models.NewCycleError(append(in.cyclePath(id), id))
		}
		logger.Debug("Cycle back to %s, expanding to nothing", id)
		return "", nil
	}

	in.active[id] = true
	in.path = append(in.path, id)
	defer func() {
		delete(in.active, id)
		in.path = in.path[:len(in.path)-1]
	}()

	result := node.Content
	// Last directive first, so spans of earlier directives stay valid.
	for i := len(node.Imports) - 1; i >= 0; i-- {
		imp := node.Imports[i]

		child, err := resolver.Resolve(imp.Target, id)
		if err != nil {
			return "", withImport(err, id, imp.Line)
		}

		text, err := in.Expand(child)
		if err != nil {
			return "", withImport(err, id, imp.Line)
		}
		if in.opts.Parenthesize && text != "" {
			text = "(" + text + ")"
		}

		switch in.opts.ReplaceMode {
		case ReplaceSpan:
			result = result[:imp.Start] + text + result[imp.End:]
		default:
			result = strings.ReplaceAll(result, imp.Literal, text)
		}
	}

	return result, nil
}

// cyclePath returns the active path from the first visit of id onwards.
func (in *Inliner) cyclePath(id models.FileIdentity) []models.FileIdentity {
	for i, p := range in.path {
		if p == id {
			cycle := make([]models.FileIdentity, len(in.path)-i)
			copy(cycle, in.path[i:])
			return cycle
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
