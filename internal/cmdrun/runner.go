// Package cmdrun abstracts external process invocation so the installer's
// package-manager, toolchain, and packaging steps can be simulated in tests
// without touching the host system.
package cmdrun

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes external commands. Implementations must block until the
// command completes; the pipeline is strictly sequential and relies on it.
type Runner interface {
	// Run executes a command with inherited stdio. dir is the working
	// directory; empty means the current directory.
	Run(ctx context.Context, dir, name string, args ...string) error
	// Output executes a command and returns its trimmed stdout.
	Output(ctx context.Context, dir, name string, args ...string) (string, error)
	// LookPath reports the absolute path of an executable on the search
	// path, or an error when it is not installed.
	LookPath(name string) (string, error)
}

// ExecRunner runs commands on the real host via os/exec.
type ExecRunner struct{}

// NewRunner creates a runner backed by os/exec.
func NewRunner() Runner {
	return &ExecRunner{}
}

// Run executes the command with stdin/stdout/stderr inherited from the
// installer process, so package managers and build tools can interact with
// the terminal (sudo password prompts, progress bars).
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

// Output executes the command and captures stdout. Stderr is discarded;
// callers only use this for probes like `xcode-select -p`.
func (r *ExecRunner) Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("run %s: %w", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// LookPath wraps exec.LookPath.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
