// Package validator runs an external interpreter against a written bundle.
package validator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tristendillon/nixbundle/core/logger"
	"mvdan.cc/sh/v3/shell"
)

// ErrValidationFailed is returned when the validator exits unsuccessfully.
var ErrValidationFailed = errors.New("validation failed")

type Validator struct {
	args []string
}

// New parses a shell-style command line such as "nix-instantiate --eval".
// The bundle path is appended as the last argument on each run.
func New(cmdline string) (*Validator, error) {
	args, err := shell.Fields(cmdline, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse validator command %q: %w", cmdline, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("validator command is empty")
	}
	return &Validator{args: args}, nil
}

// Command returns the program name.
func (v *Validator) Command() string {
	return v.args[0]
}

// Validate runs the validator on path and returns its standard output. On a
// non-zero exit the error carries the validator's standard error verbatim.
func (v *Validator) Validate(ctx context.Context, path string) (string, error) {
	args := append(append([]string{}, v.args[1:]...), path)
	cmd := exec.CommandContext(ctx, v.args[0], args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Running validator: %s %s", v.args[0], strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%w: %s", ErrValidationFailed, strings.TrimRight(stderr.String(), "\n"))
		}
		return "", fmt.Errorf("failed to run %s: %w", v.args[0], err)
	}

	return stdout.String(), nil
}
