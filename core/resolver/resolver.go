// Package resolver turns import references into canonical file identities.
// Resolution is purely lexical: nothing here touches the filesystem.
package resolver

import (
	"path/filepath"

	"github.com/tristendillon/nixbundle/core/models"
)

// Resolve normalizes ref. Absolute references are cleaned as-is; relative
// references are anchored at the directory containing base.
func Resolve(ref string, base models.FileIdentity) (models.FileIdentity, error) {
	if filepath.IsAbs(ref) {
		return models.FileIdentity(filepath.Clean(ref)), nil
	}
	if base == "" {
		return "", models.NewPathError(ref, "relative reference has no base file")
	}

	dir := base.Dir()
	if dir == base.String() {
		return "", models.NewPathError(ref, "base %s has no parent directory", base)
	}

	return models.FileIdentity(filepath.Join(dir, ref)), nil
}

// ResolveEntry normalizes the entry reference against an explicit base
// directory, usually the caller's working directory.
func ResolveEntry(ref, baseDir string) (models.FileIdentity, error) {
	if filepath.IsAbs(ref) {
		return models.FileIdentity(filepath.Clean(ref)), nil
	}
	if baseDir == "" {
		return "", models.NewPathError(ref, "relative entry has no base directory")
	}
	if !filepath.IsAbs(baseDir) {
		return "", models.NewPathError(ref, "base directory %s is not absolute", baseDir)
	}

	return models.FileIdentity(filepath.Join(baseDir, ref)), nil
}
