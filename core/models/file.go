package models

import "path/filepath"

// FileIdentity is the canonical absolute, lexically cleaned path of a source
// file. It is the only notion of file equality used by the bundler.
type FileIdentity string

func (id FileIdentity) String() string {
	return string(id)
}

// Dir returns the directory that anchors relative imports written in this file.
func (id FileIdentity) Dir() string {
	return filepath.Dir(string(id))
}

// ResolvedFile is a node of the dependency graph. It is created once per
// identity while the graph is built and never mutated afterwards.
type ResolvedFile struct {
	Identity FileIdentity
	Content  string
	Imports  []ImportOccurrence
}
