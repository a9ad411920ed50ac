// Package command runs the external binaries behind optional loader plugins.
package command

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
)

// Runner executes an external command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args. Stderr is folded into the error on failure.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, errors.Wrapf(err, "%s: %s", name, msg)
		}
		return nil, errors.Wrap(err, name)
	}
	return out, nil
}

// LookPath returns a probe that succeeds when binary is on PATH.
func LookPath(binary string) func() error {
	return func() error {
		if _, err := exec.LookPath(binary); err != nil {
			return errors.WithHint(errors.Wrapf(err, "%s not found", binary), InstallHint(binary))
		}
		return nil
	}
}

// InstallHint returns platform install instructions for a binary.
func InstallHint(binary string) string {
	switch binary {
	case "pdftotext":
		return "Install poppler:\n  macOS: brew install poppler\n  Ubuntu/Debian: sudo apt install poppler-utils"
	case "tesseract":
		return "Install tesseract:\n  macOS: brew install tesseract\n  Ubuntu/Debian: sudo apt install tesseract-ocr\n  Windows: choco install tesseract"
	}
	return "Install " + binary + " and make sure it is on PATH"
}

// WithTempFile copies r into a temporary file with the given suffix, calls
// fn with its path and removes the file afterwards.
func WithTempFile(r io.Reader, suffix string, fn func(path string) error) error {
	f, err := os.CreateTemp("", "stache-*"+suffix)
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	return fn(path)
}
