package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetWriterForAll(&buf)
	t.Cleanup(func() {
		SetWriterForAll(os.Stderr)
		SetVerbose(false)
	})
	return &buf
}

func TestDebugRequiresVerbose(t *testing.T) {
	buf := captureLogs(t)

	SetVerbose(false)
	Debug("hidden %d", 1)
	assert.NotContains(t, buf.String(), "hidden 1")

	SetVerbose(true)
	assert.True(t, IsVerbose())
	Debug("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
	assert.Contains(t, buf.String(), "DEBUG")
}

func TestLevels(t *testing.T) {
	buf := captureLogs(t)

	Info("bundled %s", "main.nix")
	Warn("careful")
	Error("broken: %v", "x")
	GetLogFromLevel(INFO)("via level")

	out := buf.String()
	for _, want := range []string{"INFO", "bundled main.nix", "WARN", "careful", "ERROR", "broken: x", "via level"} {
		assert.Contains(t, out, want)
	}
}

func TestAddWriterForAll(t *testing.T) {
	buf := captureLogs(t)
	var extra bytes.Buffer
	AddWriterForAll(&extra)

	Info("both")
	assert.Contains(t, buf.String(), "both")
	assert.Contains(t, extra.String(), "both")
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "WARN", WARN.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}
