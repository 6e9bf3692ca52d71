// Package sourcebuild runs the from-source packaging path inside the
// USBLink working copy. This is the last resort after the binary path;
// a failure here terminates the run.
package sourcebuild

import (
	"context"
	"fmt"
	"io"

	"github.com/usblink/usblink-setup/internal/cmdrun"
)

// Pipeline builds and packages USBLink from the working copy.
type Pipeline struct {
	runner cmdrun.Runner
	out    io.Writer
}

// NewPipeline creates a source build pipeline.
func NewPipeline(runner cmdrun.Runner, out io.Writer) *Pipeline {
	return &Pipeline{runner: runner, out: out}
}

// Build installs the exact locked dependencies and runs the packaging
// build in workDir. Output streams to the user's terminal; a non-zero
// exit from either step fails the build.
func (p *Pipeline) Build(ctx context.Context, workDir string) error {
	if _, err := p.runner.LookPath("npm"); err != nil {
		return fmt.Errorf("npm is not on PATH: %w", err)
	}

	fmt.Fprintln(p.out, "  Installing application dependencies...")
	if err := p.runner.Run(ctx, workDir, "npm", "ci"); err != nil {
		return fmt.Errorf("install dependencies: %w", err)
	}

	fmt.Fprintln(p.out, "🚀 Building USBLink from source (this can take a while)...")
	if err := p.runner.Run(ctx, workDir, "npm", "run", "tauri", "build"); err != nil {
		return fmt.Errorf("package application: %w", err)
	}

	fmt.Fprintln(p.out, "✓ Source build complete")
	return nil
}
