package platform

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// Classify maps a kernel identifier and machine architecture string to
// platform information. It is a pure function so the full support matrix
// can be tested without running on each OS.
//
// Recognized kernels: Darwin, Linux, and the MINGW/MSYS/CYGWIN families
// reported by Windows POSIX environments, plus Go's runtime.GOOS names.
// Windows builds of USBLink target x86_64 only, so the architecture is
// pinned there regardless of what the host reports.
func Classify(kernel, machine string) (*Info, error) {
	info := &Info{ArchRaw: machine}

	k := strings.ToLower(strings.TrimSpace(kernel))
	switch {
	case k == "darwin":
		info.Family = FamilyMacOS
		info.Arch = normalizeMachine(machine)
	case k == "linux":
		info.Family = FamilyLinux
		info.Arch = normalizeMachine(machine)
	case k == "windows",
		strings.HasPrefix(k, "mingw"),
		strings.HasPrefix(k, "msys"),
		strings.HasPrefix(k, "cygwin"):
		info.Family = FamilyWindows
		info.Arch = "x86_64"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, kernel)
	}

	return info, nil
}

// RealDetector implements Detector using the running host's environment.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect classifies the running host and, on Linux, augments the result
// with distribution details from gopsutil. Distro detection failure is a
// graceful fallback (empty distro fields), not an error: the prerequisite
// resolver handles an unknown distro family on its own.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info, err := Classify(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return nil, err
	}

	if info.Family == FamilyLinux {
		id, family, _, err := host.PlatformInformationWithContext(ctx)
		if err != nil {
			// Cancellation is a hard failure, detection trouble is not.
			if ctx.Err() != nil {
				return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
			}
			return info, nil
		}

		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			info.Distro = id
			info.DistroFamily = mapDistroFamily(id, family)
		}
	}

	return info, nil
}
