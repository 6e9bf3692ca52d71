package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/usblink/usblink-setup/internal/config"
	"github.com/usblink/usblink-setup/internal/installer"
	"github.com/usblink/usblink-setup/internal/platform"
	"github.com/usblink/usblink-setup/internal/prompt"
	"github.com/usblink/usblink-setup/internal/release"
	"github.com/usblink/usblink-setup/internal/runlock"
	"github.com/usblink/usblink-setup/internal/testutil"
)

type stubDetector struct {
	info *platform.Info
	err  error
}

func (s *stubDetector) Detect(ctx context.Context) (*platform.Info, error) {
	return s.info, s.err
}

type stubPrereqs struct {
	calls int
	err   error
}

func (s *stubPrereqs) Ensure(ctx context.Context, info *platform.Info) error {
	s.calls++
	return s.err
}

type stubSyncer struct {
	calls int
	err   error
}

func (s *stubSyncer) Sync(ctx context.Context, dest, url, branch string) error {
	s.calls++
	return s.err
}

type stubReleases struct {
	calls    int
	manifest *release.Manifest
	err      error
}

func (s *stubReleases) Latest(ctx context.Context, repoURL string) (*release.Manifest, error) {
	s.calls++
	return s.manifest, s.err
}

type stubInstaller struct {
	calls  int
	target string
	err    error
}

func (s *stubInstaller) Install(ctx context.Context, info *platform.Info, manifest *release.Manifest) (string, error) {
	s.calls++
	return s.target, s.err
}

type stubBuilder struct {
	calls int
	dirs  []string
	err   error
}

func (s *stubBuilder) Build(ctx context.Context, workDir string) error {
	s.calls++
	s.dirs = append(s.dirs, workDir)
	return s.err
}

type testRig struct {
	orch     *Orchestrator
	out      *bytes.Buffer
	settings *config.Settings
	prereqs  *stubPrereqs
	syncer   *stubSyncer
	releases *stubReleases
	binaries *stubInstaller
	builder  *stubBuilder
}

func newTestRig(t *testing.T, prompter prompt.Prompter) *testRig {
	t.Helper()
	settings := &config.Settings{
		RepoURL:  config.DefaultRepoURL,
		Branch:   config.DefaultBranch,
		SetupDir: t.TempDir(),
	}
	rig := &testRig{
		out:      &bytes.Buffer{},
		settings: settings,
		prereqs:  &stubPrereqs{},
		syncer:   &stubSyncer{},
		releases: &stubReleases{manifest: &release.Manifest{Version: "v1.4.0"}},
		binaries: &stubInstaller{target: "/Applications/USBLink.app"},
		builder:  &stubBuilder{},
	}
	rig.orch = &Orchestrator{
		settings: settings,
		detector: &stubDetector{info: &platform.Info{Family: platform.FamilyMacOS, Arch: "aarch64"}},
		prompter: prompter,
		out:      rig.out,
		prereqs:  rig.prereqs,
		syncer:   rig.syncer,
		releases: rig.releases,
		binaries: rig.binaries,
		builder:  rig.builder,
	}
	return rig
}

// seedDownloads pre-populates the ephemeral download directory so tests
// can observe cleanup.
func seedDownloads(t *testing.T, settings *config.Settings) string {
	t.Helper()
	dir := settings.DownloadsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create downloads dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "leftover.dmg"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed downloads: %v", err)
	}
	return dir
}

func TestRunBinaryPathSucceeds(t *testing.T) {
	rig := newTestRig(t, &testutil.MockPrompter{ChooseAnswers: []int{0}})
	downloads := seedDownloads(t, rig.settings)

	if err := rig.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if rig.syncer.calls != 1 || rig.releases.calls != 1 || rig.binaries.calls != 1 {
		t.Errorf("sync/release/install calls = %d/%d/%d, want 1/1/1",
			rig.syncer.calls, rig.releases.calls, rig.binaries.calls)
	}
	if rig.prereqs.calls != 0 {
		t.Errorf("prerequisites must not run on the binary path, ran %d times", rig.prereqs.calls)
	}
	if rig.builder.calls != 0 {
		t.Errorf("source build must not run, ran %d times", rig.builder.calls)
	}
	if _, err := os.Stat(downloads); !os.IsNotExist(err) {
		t.Error("downloads directory should be removed during cleanup")
	}
	if !strings.Contains(rig.out.String(), "USBLink Setup Complete!") {
		t.Errorf("missing success banner: %q", rig.out.String())
	}
}

func TestRunFallsBackWhenReleaseLookupFails(t *testing.T) {
	rig := newTestRig(t, &testutil.MockPrompter{ChooseAnswers: []int{0}})
	rig.releases.err = errors.New("connection refused")
	downloads := seedDownloads(t, rig.settings)

	if err := rig.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if rig.prereqs.calls != 1 {
		t.Errorf("prerequisites calls = %d, want 1", rig.prereqs.calls)
	}
	// The working copy was synced for the binary attempt already.
	if rig.syncer.calls != 1 {
		t.Errorf("sync calls = %d, want 1", rig.syncer.calls)
	}
	if rig.builder.calls != 1 {
		t.Errorf("build calls = %d, want 1", rig.builder.calls)
	}
	if got := rig.builder.dirs[0]; got != rig.settings.WorkingCopyDir() {
		t.Errorf("build dir = %q, want %q", got, rig.settings.WorkingCopyDir())
	}
	if _, err := os.Stat(downloads); !os.IsNotExist(err) {
		t.Error("downloads directory should be removed after a binary attempt")
	}
	if !strings.Contains(rig.out.String(), "Falling back to a source build") {
		t.Errorf("missing fallback notice: %q", rig.out.String())
	}
}

func TestRunFallsBackWhenNoAssetMatches(t *testing.T) {
	rig := newTestRig(t, &testutil.MockPrompter{ChooseAnswers: []int{0}})
	rig.binaries.err = fmt.Errorf("%w: macos/aarch64", installer.ErrNoMatchingAsset)

	if err := rig.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rig.prereqs.calls != 1 || rig.builder.calls != 1 {
		t.Errorf("prereq/build calls = %d/%d, want 1/1", rig.prereqs.calls, rig.builder.calls)
	}
}

func TestRunStartedInstallFailureIsFatal(t *testing.T) {
	rig := newTestRig(t, &testutil.MockPrompter{ChooseAnswers: []int{0}})
	rig.binaries.err = errors.New("copy application bundle: permission denied")
	downloads := seedDownloads(t, rig.settings)

	err := rig.orch.Run(context.Background())
	if err == nil {
		t.Fatal("expected a fatal install failure")
	}

	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageInstall {
		t.Errorf("error = %v, want StageInstall", err)
	}
	if rig.builder.calls != 0 || rig.prereqs.calls != 0 {
		t.Errorf("a started install must not fall back, prereq/build = %d/%d",
			rig.prereqs.calls, rig.builder.calls)
	}
	if _, statErr := os.Stat(downloads); !os.IsNotExist(statErr) {
		t.Error("downloads directory should be removed even on failure")
	}
	if !strings.Contains(rig.out.String(), "✗ Setup failed during binary install") {
		t.Errorf("missing failure line: %q", rig.out.String())
	}
}

func TestRunSourceOnlyPath(t *testing.T) {
	rig := newTestRig(t, &testutil.MockPrompter{ChooseAnswers: []int{1}})
	downloads := seedDownloads(t, rig.settings)

	if err := rig.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if rig.releases.calls != 0 || rig.binaries.calls != 0 {
		t.Errorf("binary path must not run, release/install = %d/%d",
			rig.releases.calls, rig.binaries.calls)
	}
	if rig.prereqs.calls != 1 || rig.syncer.calls != 1 || rig.builder.calls != 1 {
		t.Errorf("prereq/sync/build = %d/%d/%d, want 1/1/1",
			rig.prereqs.calls, rig.syncer.calls, rig.builder.calls)
	}
	// Cleanup only touches downloads when the binary path ran.
	if _, err := os.Stat(downloads); err != nil {
		t.Error("downloads directory should be left alone on the source-only path")
	}
}

func TestRunSyncFailureIsFatalOnBinaryPath(t *testing.T) {
	rig := newTestRig(t, &testutil.MockPrompter{ChooseAnswers: []int{0}})
	rig.syncer.err = errors.New("clone repository: connection reset")

	err := rig.orch.Run(context.Background())
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageSync {
		t.Fatalf("error = %v, want StageSync", err)
	}
	if rig.builder.calls != 0 {
		t.Error("sync failure must not fall back to the source build")
	}
}

func TestRunUnsupportedPlatformIsFatal(t *testing.T) {
	rig := newTestRig(t, &testutil.MockPrompter{})
	rig.orch.detector = &stubDetector{
		err: fmt.Errorf("%w: SunOS", platform.ErrUnsupportedPlatform),
	}

	err := rig.orch.Run(context.Background())
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StagePlatform {
		t.Fatalf("error = %v, want StagePlatform", err)
	}
	if !errors.Is(err, platform.ErrUnsupportedPlatform) {
		t.Errorf("error should wrap ErrUnsupportedPlatform, got %v", err)
	}
	if rig.syncer.calls != 0 || rig.builder.calls != 0 {
		t.Error("no pipeline stage should run after failed detection")
	}
}

func TestRunPrereqFailureIsFatalOnSourcePath(t *testing.T) {
	rig := newTestRig(t, &testutil.MockPrompter{ChooseAnswers: []int{1}})
	rig.prereqs.err = errors.New("install Node.js: exit status 1")

	err := rig.orch.Run(context.Background())
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StagePrereq {
		t.Fatalf("error = %v, want StagePrereq", err)
	}
	if rig.builder.calls != 0 {
		t.Error("build must not run after failed prerequisites")
	}
}

func TestRunBuildFailureIsTerminal(t *testing.T) {
	rig := newTestRig(t, &testutil.MockPrompter{ChooseAnswers: []int{1}})
	rig.builder.err = errors.New("package application: exit status 101")

	err := rig.orch.Run(context.Background())
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageBuild {
		t.Fatalf("error = %v, want StageBuild", err)
	}
}

func TestRunDefaultsToSourcePath(t *testing.T) {
	// A non-interactive run answers the method prompt with its default,
	// which is the source build.
	rig := newTestRig(t, &testutil.MockPrompter{})

	if err := rig.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rig.binaries.calls != 0 || rig.builder.calls != 1 {
		t.Errorf("install/build = %d/%d, want 0/1", rig.binaries.calls, rig.builder.calls)
	}
}

func TestRunInvalidMethodInputTakesSourcePath(t *testing.T) {
	// An out-of-range answer at the method prompt falls through to the
	// source build, same as an empty one.
	prompter := prompt.NewTerminalPrompter(strings.NewReader("7\n"), io.Discard)
	rig := newTestRig(t, prompter)

	if err := rig.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rig.binaries.calls != 0 || rig.releases.calls != 0 {
		t.Errorf("release/install = %d/%d, want 0/0", rig.releases.calls, rig.binaries.calls)
	}
	if rig.prereqs.calls != 1 || rig.builder.calls != 1 {
		t.Errorf("prereq/build = %d/%d, want 1/1", rig.prereqs.calls, rig.builder.calls)
	}
}

func TestRunRefusesConcurrentRun(t *testing.T) {
	rig := newTestRig(t, &testutil.MockPrompter{})

	lock, err := runlock.Acquire(rig.settings.SetupDir)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer lock.Release()

	if err := rig.orch.Run(context.Background()); !errors.Is(err, runlock.ErrLockHeld) {
		t.Errorf("Run() error = %v, want ErrLockHeld", err)
	}
	if rig.syncer.calls != 0 {
		t.Error("no stage should run while the lock is held")
	}
}
