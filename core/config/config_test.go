package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tristendillon/nixbundle/core/inliner"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{Dir: t.TempDir()})
	require.NoError(t, err)

	assert.Empty(t, cfg.Entry)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.True(t, cfg.Validate)
	assert.Equal(t, DefaultValidator, cfg.Validator)
	assert.Equal(t, inliner.DefaultOptions(), cfg.InlineOptions())
	assert.Equal(t, 512, cfg.CacheSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.Empty(t, cfg.Watch.Exclude)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, FileName, `
entry: hosts/web/default.nix
output: out/web.nix
validate: false
cycle_policy: error
replace_mode: span
parenthesize: true
cache_size: 64
watch:
  debounce: 2s
  exclude:
    - result
`)

	cfg, err := Load(LoadOptions{Dir: dir})
	require.NoError(t, err)

	assert.Equal(t, "hosts/web/default.nix", cfg.Entry)
	assert.Equal(t, "out/web.nix", cfg.Output)
	assert.False(t, cfg.Validate)
	assert.Equal(t, DefaultValidator, cfg.Validator)
	assert.Equal(t, 64, cfg.CacheSize)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.Equal(t, []string{"result"}, cfg.Watch.Exclude)
	assert.Equal(t, inliner.Options{
		CyclePolicy:  inliner.CycleError,
		ReplaceMode:  inliner.ReplaceSpan,
		Parenthesize: true,
	}, cfg.InlineOptions())
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, FileName, "output: from-file.nix\nvalidator: from-file\ncycle_policy: error\n")
	writeConfig(t, dir, ".env", "NIXBUNDLE_VALIDATOR=from-dotenv\n")
	t.Setenv("NIXBUNDLE_OUTPUT", "from-env.nix")
	t.Cleanup(func() { os.Unsetenv("NIXBUNDLE_VALIDATOR") })

	flags := pflag.NewFlagSet("bundle", pflag.ContinueOnError)
	flags.StringP("output", "o", DefaultOutput, "")
	flags.String("cycle-policy", "empty", "")
	flags.Bool("validate", true, "")
	require.NoError(t, flags.Parse([]string{"--cycle-policy", "empty"}))

	cfg, err := Load(LoadOptions{Dir: dir, Flags: flags})
	require.NoError(t, err)

	assert.Equal(t, "from-env.nix", cfg.Output)
	assert.Equal(t, "from-dotenv", cfg.Validator)
	assert.Equal(t, "empty", cfg.CyclePolicy)
	assert.True(t, cfg.Validate)

	require.NoError(t, flags.Parse([]string{"-o", "from-flag.nix"}))
	cfg, err = Load(LoadOptions{Dir: dir, Flags: flags})
	require.NoError(t, err)
	assert.Equal(t, "from-flag.nix", cfg.Output)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"cycle policy": "cycle_policy: ignore\n",
		"replace mode": "replace_mode: regex\n",
		"cache size":   "cache_size: 0\n",
		"validator":    "validator: \"  \"\n",
		"yaml":         "output: [unterminated\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, FileName, content)
			_, err := Load(LoadOptions{Dir: dir})
			assert.Error(t, err)
		})
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Entry = "default.nix"
	cfg.Watch.Debounce = 750 * time.Millisecond
	cfg.Watch.Exclude = []string{"result"}

	require.NoError(t, Write(filepath.Join(dir, FileName), cfg))

	loaded, err := Load(LoadOptions{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
