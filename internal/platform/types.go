// Package platform identifies the host operating system family and CPU
// architecture for the USBLink installer.
//
// Detection happens once per run and the resulting Info is treated as
// immutable by every downstream stage. On Linux the package additionally
// detects the distribution family via gopsutil so that the prerequisite
// resolver can pick the right system package manager; distro detection is
// best-effort and never fails the run.
package platform

import (
	"context"
	"errors"
)

// ErrUnsupportedPlatform is returned when the host kernel is not one of
// the three supported families. There is no fallback for this error; the
// installer terminates immediately.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Family is the operating system family USBLink ships builds for.
type Family string

const (
	FamilyMacOS   Family = "macos"
	FamilyLinux   Family = "linux"
	FamilyWindows Family = "windows"
)

// String returns the string representation of the family.
func (f Family) String() string {
	return string(f)
}

// Linux distribution family constants, used to select a package manager.
const (
	DistroDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	DistroFedora  = "fedora"  // Fedora
	DistroRHEL    = "rhel"    // RHEL, CentOS, Rocky, AlmaLinux
	DistroArch    = "arch"    // Arch Linux, Manjaro
	DistroSUSE    = "suse"    // openSUSE, SLES
	DistroUnknown = "unknown" // everything else
)

// Info contains the detected platform information.
type Info struct {
	Family       Family // macos, linux, windows
	Arch         string // normalized machine name ("x86_64", "aarch64")
	ArchRaw      string // original machine string before normalization
	Distro       string // distro ID (Linux only, e.g. "ubuntu")
	DistroFamily string // canonical distro family (Linux only)
}

// IsMacOS returns true if the family is macOS.
func (i *Info) IsMacOS() bool {
	return i.Family == FamilyMacOS
}

// IsLinux returns true if the family is Linux.
func (i *Info) IsLinux() bool {
	return i.Family == FamilyLinux
}

// IsWindows returns true if the family is Windows.
func (i *Info) IsWindows() bool {
	return i.Family == FamilyWindows
}

// IsAppleSilicon returns true on macOS with an arm64 CPU.
func (i *Info) IsAppleSilicon() bool {
	return i.Family == FamilyMacOS && i.Arch == "aarch64"
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
