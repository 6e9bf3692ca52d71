package main

import (
	"context"
	"fmt"
	"os"

	"github.com/usblink/usblink-setup/internal/cmdrun"
	"github.com/usblink/usblink-setup/internal/config"
	"github.com/usblink/usblink-setup/internal/platform"
	"github.com/usblink/usblink-setup/internal/prereq"
)

// runDoctor reports what a subsequent install would find, without
// changing anything on the host.
func runDoctor(args []string) error {
	ctx := context.Background()

	info, err := platform.NewDetector().Detect(ctx)
	if err != nil {
		return err
	}

	settings, err := config.Load(info)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	fmt.Println("USBLink Setup doctor")
	fmt.Println()
	fmt.Printf("Platform:     %s/%s\n", info.Family, info.Arch)
	if info.IsLinux() {
		fmt.Printf("Distribution: %s (%s family)\n", info.Distro, info.DistroFamily)
	}
	fmt.Printf("Repository:   %s (branch %s)\n", settings.RepoURL, settings.Branch)
	fmt.Printf("Setup dir:    %s\n", settings.SetupDir)

	if _, err := os.Stat(settings.WorkingCopyDir()); err == nil {
		fmt.Printf("Working copy: present at %s\n", settings.WorkingCopyDir())
	} else {
		fmt.Println("Working copy: not cloned yet")
	}

	fmt.Println()
	runner := cmdrun.NewRunner()
	for _, status := range prereq.NewResolver(runner, os.Stdout).Status() {
		if status.Present {
			fmt.Printf("✓ %s present\n", status.Name)
		} else {
			fmt.Printf("⚠  %s missing (the source build path would install it)\n", status.Name)
		}
	}

	if info.IsMacOS() {
		if _, err := runner.Output(ctx, "", "xcode-select", "-p"); err == nil {
			fmt.Println("✓ Xcode command line tools present")
		} else {
			fmt.Println("⚠  Xcode command line tools missing; run `xcode-select --install`")
		}
	}

	fmt.Println()
	fmt.Println("Run `usblink-setup` to install USBLink.")
	return nil
}
