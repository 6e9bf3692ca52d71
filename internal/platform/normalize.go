package platform

import "strings"

// distroFamilyMap maps distribution identifiers reported by gopsutil to
// canonical family names. Both the platform ID and the family string are
// looked up here, since gopsutil is inconsistent across distros.
var distroFamilyMap = map[string]string{
	"debian":              DistroDebian,
	"ubuntu":              DistroDebian,
	"raspbian":            DistroDebian,
	"linuxmint":           DistroDebian,
	"pop":                 DistroDebian,
	"fedora":              DistroFedora,
	"rhel":                DistroRHEL,
	"centos":              DistroRHEL,
	"rocky":               DistroRHEL,
	"almalinux":           DistroRHEL,
	"arch":                DistroArch,
	"manjaro":             DistroArch,
	"suse":                DistroSUSE,
	"opensuse":            DistroSUSE,
	"opensuse-leap":       DistroSUSE,
	"opensuse-tumbleweed": DistroSUSE,
}

// normalizeMachine converts machine architecture strings to the naming
// USBLink release assets use. Darwin reports "arm64" for Apple Silicon
// while the release assets are named "aarch64"; Go's runtime reports
// "amd64" where uname reports "x86_64". Unrecognized values pass through
// unchanged; only the OS family is load-bearing for support decisions.
func normalizeMachine(machine string) string {
	switch strings.ToLower(strings.TrimSpace(machine)) {
	case "amd64", "x86_64", "x64":
		return "x86_64"
	case "arm64", "aarch64":
		return "aarch64"
	default:
		return machine
	}
}

// mapDistroFamily maps a distro ID or family string to a canonical family.
func mapDistroFamily(id, family string) string {
	for _, candidate := range []string{id, family} {
		normalized := strings.ToLower(strings.TrimSpace(candidate))
		if canonical, ok := distroFamilyMap[normalized]; ok {
			return canonical
		}
	}
	return DistroUnknown
}
