package bundler

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tristendillon/nixbundle/core/inliner"
	"github.com/tristendillon/nixbundle/core/models"
)

func write(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestBundle_LibImport(t *testing.T) {
	root := t.TempDir()
	write(t, root, "main.nix", "let lib = import \"lib.nix\"; in lib.x\n")
	write(t, root, "lib.nix", "{ x = 1; }")

	res, err := Bundle("main.nix", Options{BaseDir: root})
	require.NoError(t, err)

	assert.Equal(t, "let lib = { x = 1; }; in lib.x\n", res.Content)
	assert.Equal(t, models.FileIdentity(filepath.Join(root, "main.nix")), res.Entry)
	assert.Equal(t, 2, res.Graph.Len())
}

func TestBundle_Tree(t *testing.T) {
	root := t.TempDir()
	write(t, root, "hosts/web/default.nix", "{\n  imports = [ (import \"../../modules/nginx.nix\") ];\n  users = import ../../common/users.nix;\n}\n")
	write(t, root, "modules/nginx.nix", "{ services.nginx.enable = true; port = import ../common/port.nix; }")
	write(t, root, "common/users.nix", "[ \"alice\" ]")
	write(t, root, "common/port.nix", "443")

	res, err := Bundle(filepath.Join(root, "hosts", "web", "default.nix"), Options{})
	require.NoError(t, err)

	want := "{\n  imports = [ ({ services.nginx.enable = true; port = 443; }) ];\n  users = [ \"alice\" ];\n}\n"
	assert.Equal(t, want, res.Content)
	assert.Equal(t, 4, res.Graph.Len())
}

func TestBundle_MissingImport(t *testing.T) {
	root := t.TempDir()
	write(t, root, "main.nix", "{\n  x = import ./missing.nix;\n}\n")

	_, err := Bundle("main.nix", Options{BaseDir: root})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrFileNotFound)
	assert.Contains(t, err.Error(), filepath.Join(root, "missing.nix"))
	assert.Contains(t, err.Error(), filepath.Join(root, "main.nix")+":2")
}

func TestErrorFiles(t *testing.T) {
	root := t.TempDir()
	write(t, root, "main.nix", "{ lib = import ./lib.nix; }")
	write(t, root, "lib.nix", "{\n  x = import ../other/missing.nix;\n}")

	_, err := Bundle("main.nix", Options{BaseDir: root})
	require.Error(t, err)

	assert.Equal(t, []models.FileIdentity{
		models.FileIdentity(filepath.Join(filepath.Dir(root), "other", "missing.nix")),
		models.FileIdentity(filepath.Join(root, "lib.nix")),
	}, ErrorFiles(err))

	assert.Nil(t, ErrorFiles(errors.New("plain")))
	assert.Nil(t, ErrorFiles(nil))
}

func TestBundle_SelfImport(t *testing.T) {
	root := t.TempDir()
	write(t, root, "main.nix", "{ me = import ./main.nix; }")

	res, err := Bundle("main.nix", Options{BaseDir: root})
	require.NoError(t, err)
	assert.Equal(t, "{ me = ; }", res.Content)

	_, err = Bundle("main.nix", Options{BaseDir: root, Inline: inliner.Options{CyclePolicy: inliner.CycleError}})
	assert.ErrorIs(t, err, models.ErrCycle)
}

func TestBundle_RelativeEntryNeedsBase(t *testing.T) {
	_, err := Bundle("main.nix", Options{})
	assert.ErrorIs(t, err, models.ErrPath)
}

func TestBundle_ImportedDirectoryIsReadError(t *testing.T) {
	root := t.TempDir()
	write(t, root, "main.nix", "import ./modules")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "modules"), 0o755))

	_, err := Bundle("main.nix", Options{BaseDir: root})
	assert.ErrorIs(t, err, models.ErrRead)
}

func TestWriteOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundled.nix")

	require.NoError(t, WriteOutput(path, "{ a = 1; }"))
	require.NoError(t, WriteOutput(path, "{ a = 2; }"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{ a = 2; }", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.HasSuffix(entries[0].Name(), ".tmp"))
}

func TestWriteOutput_MissingDir(t *testing.T) {
	err := WriteOutput(filepath.Join(t.TempDir(), "nope", "bundled.nix"), "x")
	assert.Error(t, err)
}
