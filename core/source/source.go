// Package source abstracts how the bundler reads files so the graph builder
// can run against the filesystem, a cache, or an in-memory stub.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/tristendillon/nixbundle/core/models"
)

// Source reads files by identity.
type Source interface {
	// Exists reports whether a file is present at id. A non-nil error means
	// existence could not be determined.
	Exists(id models.FileIdentity) (bool, error)

	// ReadFile returns the full text of the file at id.
	ReadFile(id models.FileIdentity) (string, error)
}

// OS reads straight from the local filesystem.
type OS struct{}

func (OS) Exists(id models.FileIdentity) (bool, error) {
	_, err := os.Stat(id.String())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", id, err)
}

func (OS) ReadFile(id models.FileIdentity) (string, error) {
	data, err := os.ReadFile(id.String())
	if err != nil {
		return "", err
	}
	return string(data), nil
}
