package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// maxDiagnosticBytes bounds how much converter stderr is kept for callers.
const maxDiagnosticBytes = 64 * 1024

// Converter turns the file at input into an SVG written to output.
type Converter interface {
	Convert(ctx context.Context, input string, output string) error
}

// ConversionError is returned when the external process fails. Detail holds
// the captured diagnostic output.
type ConversionError struct {
	Detail   string
	ExitCode int
	Err      error
}

func (e *ConversionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("conversion failed: %v: %s", e.Err, e.Detail)
	}
	return fmt.Sprintf("conversion failed: %v", e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Inkscape runs the inkscape command line (or any binary accepting the same
// export flags). Each call spawns an independent child process.
type Inkscape struct {
	binary  string
	timeout time.Duration
}

func NewInkscape(binary string, timeout time.Duration) *Inkscape {
	if strings.TrimSpace(binary) == "" {
		binary = "inkscape"
	}

	return &Inkscape{binary: binary, timeout: timeout}
}

// CheckInstallation resolves the binary and returns its reported version.
func (c *Inkscape) CheckInstallation(ctx context.Context) (string, error) {
	path, err := exec.LookPath(c.binary)
	if err != nil {
		return "", fmt.Errorf("converter %q not found in PATH: %w", c.binary, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("converter %q --version: %w", c.binary, err)
	}

	return strings.TrimSpace(string(output)), nil
}

func (c *Inkscape) Convert(ctx context.Context, input string, output string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	//nolint:gosec // input and output are resolved by the file store
	cmd := exec.CommandContext(ctx, c.binary,
		input,
		"--export-type=svg",
		"--export-filename="+output,
	)
	stderr := &limitedBuffer{limit: maxDiagnosticBytes}
	cmd.Stdout = nil
	cmd.Stderr = stderr
	cmd.WaitDelay = 5 * time.Second

	started := time.Now()
	runErr := cmd.Run()
	duration := time.Since(started)

	if runErr != nil {
		convErr := &ConversionError{Detail: strings.TrimSpace(stderr.String()), ExitCode: -1, Err: runErr}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			convErr.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			convErr.Err = fmt.Errorf("%w: %w", ctxErr, runErr)
		}

		slog.Warn("converter exited with error",
			"input", input,
			"exit_code", convErr.ExitCode,
			"duration_ms", duration.Milliseconds(),
			"error", runErr,
		)
		return convErr
	}

	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		return &ConversionError{
			Detail: strings.TrimSpace(stderr.String()),
			Err:    fmt.Errorf("converter produced no output at %s", output),
		}
	}

	slog.Debug("converter finished", "input", input, "output", output, "duration_ms", duration.Milliseconds())
	return nil
}

// limitedBuffer keeps the first limit bytes written and silently drops the
// rest so a chatty child cannot grow memory without bound.
type limitedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if remaining := b.limit - b.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
