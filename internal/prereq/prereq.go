// Package prereq verifies and installs the toolchains and native
// libraries the USBLink source build needs. Behavior is table-driven per
// platform family; any install action that fails halts the source path,
// which has no further fallback.
package prereq

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/usblink/usblink-setup/internal/cmdrun"
	"github.com/usblink/usblink-setup/internal/platform"
)

// Resolver checks for and installs build prerequisites.
type Resolver struct {
	runner cmdrun.Runner
	out    io.Writer
}

// NewResolver creates a prerequisite resolver.
func NewResolver(runner cmdrun.Runner, out io.Writer) *Resolver {
	return &Resolver{runner: runner, out: out}
}

// Ensure verifies all prerequisites for the given platform, installing
// what it can. The one deliberately manual step is the Xcode command line
// tools on macOS: installing them needs interactive OS-level consent, so
// a missing toolset fails with an instruction instead of an attempt.
func (r *Resolver) Ensure(ctx context.Context, info *platform.Info) error {
	switch info.Family {
	case platform.FamilyWindows:
		// Nothing is verified automatically on Windows.
		fmt.Fprintln(r.out, "⚠  Building from source on Windows requires the Visual Studio")
		fmt.Fprintln(r.out, "   C++ Build Tools plus Node.js and Rust; install them before retrying")
		fmt.Fprintln(r.out, "   if the build fails.")
		return nil

	case platform.FamilyMacOS:
		if err := r.ensureXcodeTools(ctx); err != nil {
			return err
		}
	}

	for _, tc := range toolchains {
		if err := r.ensureToolchain(ctx, info, tc); err != nil {
			return err
		}
	}

	if info.Family == platform.FamilyLinux {
		if err := r.ensureLinuxPackages(ctx, info); err != nil {
			return err
		}
	}

	return nil
}

// ToolStatus is one toolchain's presence, as reported by Status.
type ToolStatus struct {
	Name    string
	Present bool
}

// Status probes every toolchain without installing anything.
func (r *Resolver) Status() []ToolStatus {
	statuses := make([]ToolStatus, 0, len(toolchains))
	for _, tc := range toolchains {
		statuses = append(statuses, ToolStatus{Name: tc.name, Present: r.probeToolchain(tc)})
	}
	return statuses
}

// ensureXcodeTools checks for the Xcode command line tools.
func (r *Resolver) ensureXcodeTools(ctx context.Context) error {
	if _, err := r.runner.Output(ctx, "", "xcode-select", "-p"); err != nil {
		return fmt.Errorf("Xcode command line tools are not installed; run `xcode-select --install` and try again")
	}
	fmt.Fprintln(r.out, "✓ Xcode command line tools present")
	return nil
}

// ensureToolchain probes for one toolchain and installs it when missing:
// package manager when one is available, vendor install script otherwise.
func (r *Resolver) ensureToolchain(ctx context.Context, info *platform.Info, tc toolchain) error {
	if r.probeToolchain(tc) {
		fmt.Fprintf(r.out, "✓ %s present\n", tc.name)
		return nil
	}

	fmt.Fprintf(r.out, "  %s not found, installing...\n", tc.name)
	if err := r.installToolchain(ctx, info, tc); err != nil {
		return fmt.Errorf("install %s: %w", tc.name, err)
	}

	// Re-check after the install action.
	if !r.probeToolchain(tc) {
		return fmt.Errorf("%s still missing after install; open a new shell or install it manually", tc.name)
	}
	fmt.Fprintf(r.out, "✓ %s installed\n", tc.name)
	return nil
}

func (r *Resolver) probeToolchain(tc toolchain) bool {
	if _, err := r.runner.LookPath(tc.executable); err == nil {
		return true
	}
	// Some installers (rustup) drop binaries outside the current PATH.
	for _, probe := range tc.extraProbes {
		path := probe
		if strings.Contains(path, "$HOME") {
			home, err := os.UserHomeDir()
			if err != nil {
				continue
			}
			path = strings.ReplaceAll(path, "$HOME", home)
		}
		if st, err := os.Stat(filepath.Clean(path)); err == nil && st.Mode().IsRegular() {
			return true
		}
	}
	return false
}

func (r *Resolver) installToolchain(ctx context.Context, info *platform.Info, tc toolchain) error {
	switch info.Family {
	case platform.FamilyMacOS:
		if _, err := r.runner.LookPath("brew"); err == nil {
			return r.runner.Run(ctx, "", "brew", "install", tc.brewPkg)
		}

	case platform.FamilyLinux:
		if pm, ok := packageManagers[info.DistroFamily]; ok {
			pkgs, ok := tc.linuxPkgs[info.DistroFamily]
			if ok {
				argv := append([]string{}, pm.installArgv...)
				argv = append(argv, pkgs...)
				return r.runner.Run(ctx, "", "sudo", argv...)
			}
		}
	}

	// No package manager available: vendor install script piped to a shell.
	return r.runner.Run(ctx, "", "sh", "-c", tc.script)
}

// ensureLinuxPackages probes the fixed native package list and installs
// any missing subset in one batch via the distro package manager.
func (r *Resolver) ensureLinuxPackages(ctx context.Context, info *platform.Info) error {
	pm, ok := packageManagers[info.DistroFamily]
	pkgs := linuxDevPackages[info.DistroFamily]
	if !ok || len(pkgs) == 0 {
		return fmt.Errorf(
			"unrecognized Linux distribution %q: install the WebKit2GTK, appindicator, librsvg, patchelf, libusb and libudev development packages manually",
			info.Distro,
		)
	}

	var missing []string
	for _, pkg := range pkgs {
		argv := append([]string{}, pm.checkArgv[1:]...)
		argv = append(argv, pkg)
		if _, err := r.runner.Output(ctx, "", pm.checkArgv[0], argv...); err != nil {
			missing = append(missing, pkg)
		}
	}

	if len(missing) == 0 {
		fmt.Fprintln(r.out, "✓ Native build packages present")
		return nil
	}

	fmt.Fprintf(r.out, "  Installing %s via %s...\n", strings.Join(missing, ", "), pm.name)
	argv := append([]string{}, pm.installArgv...)
	argv = append(argv, missing...)
	if err := r.runner.Run(ctx, "", "sudo", argv...); err != nil {
		return fmt.Errorf("install native packages: %w", err)
	}
	fmt.Fprintln(r.out, "✓ Native build packages installed")
	return nil
}
