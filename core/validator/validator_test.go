package validator

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestNew(t *testing.T) {
	v, err := New("nix-instantiate --eval --strict")
	require.NoError(t, err)
	assert.Equal(t, "nix-instantiate", v.Command())
	assert.Equal(t, []string{"nix-instantiate", "--eval", "--strict"}, v.args)

	v, err = New(`sh -c 'echo "$0"'`)
	require.NoError(t, err)
	assert.Equal(t, []string{"sh", "-c", `echo "$0"`}, v.args)

	_, err = New("   ")
	assert.Error(t, err)

	_, err = New(`sh -c 'unterminated`)
	assert.Error(t, err)
}

func TestValidate_Success(t *testing.T) {
	requireSh(t)
	path := filepath.Join(t.TempDir(), "bundled.nix")
	require.NoError(t, os.WriteFile(path, []byte("{ }"), 0o644))

	v, err := New(`sh -c 'cat "$0"'`)
	require.NoError(t, err)

	out, err := v.Validate(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "{ }", out)
}

func TestValidate_Failure(t *testing.T) {
	requireSh(t)
	v, err := New(`sh -c 'echo "error: syntax error, unexpected end of file" >&2; exit 1'`)
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), "bundled.nix")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "error: syntax error, unexpected end of file")
}

func TestValidate_MissingProgram(t *testing.T) {
	v, err := New("nixbundle-no-such-validator --eval")
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), "bundled.nix")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidationFailed)
}
