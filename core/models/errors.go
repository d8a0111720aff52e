package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPath         = errors.New("unresolvable path")
	ErrFileNotFound = errors.New("file not found")
	ErrRead         = errors.New("failed to read file")
	ErrImportSyntax = errors.New("malformed import")
	ErrMissingNode  = errors.New("file missing from dependency graph")
	ErrCycle        = errors.New("import cycle")
)

// BundleError is returned by every stage of the bundler. Kind is one of the
// Err* sentinels above; Path is the file the failure is about. Importer and
// Line are set when the failure was reached through an import directive.
type BundleError struct {
	Kind     error
	Path     string
	Importer FileIdentity
	Line     int
	Err      error
}

func (e *BundleError) Error() string {
	if e == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Path != "" {
		b.WriteString(": ")
		b.WriteString(e.Path)
	}
	if e.Importer != "" {
		if e.Line > 0 {
			fmt.Fprintf(&b, " (imported at %s:%d)", e.Importer, e.Line)
		} else {
			fmt.Fprintf(&b, " (imported from %s)", e.Importer)
		}
	} else if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *BundleError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// WithImport attaches the importing file and directive line, unless the error
// already carries a location of its own.
func (e *BundleError) WithImport(importer FileIdentity, line int) *BundleError {
	if e.Importer == "" && e.Line == 0 {
		e.Importer = importer
		e.Line = line
	}
	return e
}

// NewPathError reports a reference that cannot be anchored to an absolute path.
func NewPathError(ref string, format string, args ...any) *BundleError {
	return &BundleError{Kind: ErrPath, Path: ref, Err: fmt.Errorf(format, args...)}
}

func NewFileNotFoundError(id FileIdentity) *BundleError {
	return &BundleError{Kind: ErrFileNotFound, Path: id.String()}
}

func NewReadError(id FileIdentity, err error) *BundleError {
	return &BundleError{Kind: ErrRead, Path: id.String(), Err: err}
}

func NewImportSyntaxError(id FileIdentity, line int, literal string) *BundleError {
	return &BundleError{Kind: ErrImportSyntax, Path: id.String(), Line: line, Err: fmt.Errorf("no path in %q", literal)}
}

func NewMissingNodeError(id FileIdentity) *BundleError {
	return &BundleError{Kind: ErrMissingNode, Path: id.String()}
}

// NewCycleError reports an import chain that returns to a file still being expanded.
func NewCycleError(path []FileIdentity) *BundleError {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = p.String()
	}
	var last string
	if len(path) > 0 {
		last = path[len(path)-1].String()
	}
	return &BundleError{Kind: ErrCycle, Path: last, Err: errors.New(strings.Join(parts, " -> "))}
}
