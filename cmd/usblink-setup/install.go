package main

import (
	"context"
	"fmt"
	"os"

	"github.com/usblink/usblink-setup/internal/bootstrap"
	"github.com/usblink/usblink-setup/internal/cmdrun"
	"github.com/usblink/usblink-setup/internal/config"
	"github.com/usblink/usblink-setup/internal/platform"
	"github.com/usblink/usblink-setup/internal/prompt"
)

// fixedDetector hands the orchestrator the platform that was already
// detected for configuration loading, so detection happens once per run.
type fixedDetector struct {
	info *platform.Info
}

func (d *fixedDetector) Detect(ctx context.Context) (*platform.Info, error) {
	return d.info, nil
}

// runInstall handles the default interactive install flow.
func runInstall(args []string) error {
	ctx := context.Background()

	fmt.Println("🚀 USBLink Setup")
	fmt.Println()

	// The platform is needed before the orchestrator starts: setup.lua
	// overrides may branch on it.
	info, err := platform.NewDetector().Detect(ctx)
	if err != nil {
		return err
	}

	settings, err := config.Load(info)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	orch := bootstrap.New(
		settings,
		&fixedDetector{info: info},
		prompt.NewTerminalPrompter(os.Stdin, os.Stdout),
		cmdrun.NewRunner(),
		os.Stdout,
	)
	return orch.Run(ctx)
}
