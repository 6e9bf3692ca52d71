// Package bootstrap drives the whole installation as a small state
// machine: choose method, detect platform, attempt the chosen path,
// clean up, report. The binary path falls back to a source build only
// when the release could not be resolved or carried no matching asset;
// an install that started and failed is terminal.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/usblink/usblink-setup/internal/cmdrun"
	"github.com/usblink/usblink-setup/internal/config"
	"github.com/usblink/usblink-setup/internal/installer"
	"github.com/usblink/usblink-setup/internal/platform"
	"github.com/usblink/usblink-setup/internal/prereq"
	"github.com/usblink/usblink-setup/internal/prompt"
	"github.com/usblink/usblink-setup/internal/release"
	"github.com/usblink/usblink-setup/internal/repo"
	"github.com/usblink/usblink-setup/internal/runlock"
	"github.com/usblink/usblink-setup/internal/sourcebuild"
)

// The pipeline stages, narrowed to what the orchestrator calls.
type (
	prereqResolver interface {
		Ensure(ctx context.Context, info *platform.Info) error
	}
	repoSyncer interface {
		Sync(ctx context.Context, dest, url, branch string) error
	}
	releaseResolver interface {
		Latest(ctx context.Context, repoURL string) (*release.Manifest, error)
	}
	binaryInstaller interface {
		Install(ctx context.Context, info *platform.Info, manifest *release.Manifest) (string, error)
	}
	sourceBuilder interface {
		Build(ctx context.Context, workDir string) error
	}
)

type state int

const (
	stateChooseMethod state = iota
	stateDetectPlatform
	stateBinaryAttempt
	stateSourceAttempt
	stateCleanup
	stateDone
	stateFailed
)

// Orchestrator owns one setup run.
type Orchestrator struct {
	settings *config.Settings
	detector platform.Detector
	prompter prompt.Prompter
	out      io.Writer

	prereqs  prereqResolver
	syncer   repoSyncer
	releases releaseResolver
	binaries binaryInstaller
	builder  sourceBuilder
}

// New wires an orchestrator from the real pipeline components.
func New(settings *config.Settings, detector platform.Detector, prompter prompt.Prompter, runner cmdrun.Runner, out io.Writer) *Orchestrator {
	return &Orchestrator{
		settings: settings,
		detector: detector,
		prompter: prompter,
		out:      out,
		prereqs:  prereq.NewResolver(runner, out),
		syncer:   repo.NewSynchronizer(prompter, out),
		releases: release.NewResolver(),
		binaries: installer.NewInstaller(runner, settings, out),
		builder:  sourcebuild.NewPipeline(runner, out),
	}
}

// Run executes the state machine once. It returns nil when USBLink was
// installed by either path, and the stage-tagged failure otherwise.
func (o *Orchestrator) Run(ctx context.Context) error {
	lock, err := runlock.Acquire(o.settings.SetupDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	var (
		info          *platform.Info
		binaryFirst   bool
		binaryEntered bool
		synced        bool
		builtFromSrc  bool
		target        string
		runErr        error
	)

	for st := stateChooseMethod; ; {
		switch st {
		case stateChooseMethod:
			// Default and invalid answers take the source path, which works
			// everywhere the prerequisites can be installed.
			choice, err := o.prompter.Choose(
				"How do you want to install USBLink?",
				[]string{"Download the latest release", "Build from source"},
				1,
			)
			if err != nil {
				runErr = fmt.Errorf("read install choice: %w", err)
				st = stateCleanup
				continue
			}
			binaryFirst = choice == 0
			st = stateDetectPlatform

		case stateDetectPlatform:
			detected, err := o.detector.Detect(ctx)
			if err != nil {
				runErr = stageErr(StagePlatform, err)
				st = stateCleanup
				continue
			}
			info = detected
			fmt.Fprintf(o.out, "✓ Detected platform: %s/%s\n", info.Family, info.Arch)
			if binaryFirst {
				st = stateBinaryAttempt
			} else {
				st = stateSourceAttempt
			}

		case stateBinaryAttempt:
			binaryEntered = true
			if err := o.sync(ctx); err != nil {
				runErr = stageErr(StageSync, err)
				st = stateCleanup
				continue
			}
			synced = true

			manifest, err := o.releases.Latest(ctx, o.settings.RepoURL)
			if err != nil {
				fmt.Fprintf(o.out, "⚠  Release lookup failed (%v)\n", err)
				fmt.Fprintln(o.out, "   Falling back to a source build...")
				st = stateSourceAttempt
				continue
			}

			installed, err := o.binaries.Install(ctx, info, manifest)
			if err != nil {
				if errors.Is(err, installer.ErrNoMatchingAsset) {
					fmt.Fprintf(o.out, "⚠  %v\n", err)
					fmt.Fprintln(o.out, "   Falling back to a source build...")
					st = stateSourceAttempt
					continue
				}
				runErr = stageErr(StageInstall, err)
				st = stateCleanup
				continue
			}
			target = installed
			st = stateCleanup

		case stateSourceAttempt:
			if err := o.prereqs.Ensure(ctx, info); err != nil {
				runErr = stageErr(StagePrereq, err)
				st = stateCleanup
				continue
			}
			if !synced {
				if err := o.sync(ctx); err != nil {
					runErr = stageErr(StageSync, err)
					st = stateCleanup
					continue
				}
				synced = true
			}
			if err := o.builder.Build(ctx, o.settings.WorkingCopyDir()); err != nil {
				runErr = stageErr(StageBuild, err)
				st = stateCleanup
				continue
			}
			builtFromSrc = true
			st = stateCleanup

		case stateCleanup:
			// The download directory is ephemeral: remove it whenever the
			// binary path ran, success or not.
			if binaryEntered {
				os.RemoveAll(o.settings.DownloadsDir())
			}
			if runErr != nil {
				st = stateFailed
			} else {
				st = stateDone
			}

		case stateDone:
			o.printSuccess(info, target, builtFromSrc)
			return nil

		case stateFailed:
			var se *StageError
			if errors.As(runErr, &se) {
				fmt.Fprintf(o.out, "✗ Setup failed during %s\n", se.Stage)
			} else {
				fmt.Fprintln(o.out, "✗ Setup failed")
			}
			return runErr
		}
	}
}

func (o *Orchestrator) sync(ctx context.Context) error {
	return o.syncer.Sync(ctx, o.settings.WorkingCopyDir(), o.settings.RepoURL, o.settings.Branch)
}

func (o *Orchestrator) printSuccess(info *platform.Info, target string, builtFromSrc bool) {
	fmt.Fprintln(o.out)
	fmt.Fprintln(o.out, "╔════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(o.out, "║  USBLink Setup Complete!                                   ║")
	fmt.Fprintln(o.out, "╚════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(o.out)

	if builtFromSrc {
		fmt.Fprintln(o.out, "Next steps:")
		fmt.Fprintf(o.out, "  1. Find the packaged app under %s/src-tauri/target/release/bundle\n", o.settings.WorkingCopyDir())
		fmt.Fprintln(o.out, "  2. Install the bundle for your platform and launch USBLink")
		return
	}

	fmt.Fprintln(o.out, "Next steps:")
	switch info.Family {
	case platform.FamilyMacOS:
		fmt.Fprintf(o.out, "  1. Launch %s (or run: open %s)\n", target, target)
		fmt.Fprintln(o.out, "  2. Grant the USB access prompt on first start")
	case platform.FamilyLinux:
		fmt.Fprintf(o.out, "  1. Make sure %s is on your PATH\n", "~/.local/bin")
		fmt.Fprintln(o.out, "  2. Run: usblink")
	case platform.FamilyWindows:
		fmt.Fprintln(o.out, "  1. Finish the installer wizard if it is still open")
		fmt.Fprintln(o.out, "  2. Launch USBLink from the Start menu")
	}
}
