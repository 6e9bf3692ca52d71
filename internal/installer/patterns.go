package installer

import (
	"strings"

	"github.com/usblink/usblink-setup/internal/platform"
)

// assetPattern matches release asset names for one platform tuple. Both
// fields must match; an empty field matches everything.
type assetPattern struct {
	contains string
	suffix   string
}

func (p assetPattern) matches(name string) bool {
	return strings.Contains(name, p.contains) && strings.HasSuffix(name, p.suffix)
}

type patternKey struct {
	family platform.Family
	arch   string
}

// assetPatterns enumerates the supported platform tuples. The detector
// pins Windows to x86_64, so that is the only Windows entry.
var assetPatterns = map[patternKey]assetPattern{
	{platform.FamilyMacOS, "aarch64"}:  {contains: "aarch64", suffix: ".dmg"},
	{platform.FamilyMacOS, "x86_64"}:   {contains: "x64", suffix: ".dmg"},
	{platform.FamilyLinux, "x86_64"}:   {suffix: ".AppImage"},
	{platform.FamilyLinux, "aarch64"}:  {suffix: ".AppImage"},
	{platform.FamilyWindows, "x86_64"}: {suffix: "-setup.exe"},
}

// patternFor returns the asset pattern for the platform. Architectures
// outside the table fall back to the family's broadest pattern: the x64
// disk image on macOS, the portable image on Linux.
func patternFor(info *platform.Info) (assetPattern, bool) {
	if p, ok := assetPatterns[patternKey{info.Family, info.Arch}]; ok {
		return p, true
	}
	switch info.Family {
	case platform.FamilyMacOS:
		return assetPatterns[patternKey{platform.FamilyMacOS, "x86_64"}], true
	case platform.FamilyLinux:
		return assetPattern{suffix: ".AppImage"}, true
	}
	return assetPattern{}, false
}
