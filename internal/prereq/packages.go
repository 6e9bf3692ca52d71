package prereq

import "github.com/usblink/usblink-setup/internal/platform"

// packageManager describes how a Linux distro family checks for and
// installs native packages. Install commands run under sudo; presence
// checks do not.
type packageManager struct {
	name        string
	checkArgv   []string // + package name
	installArgv []string // + package names
}

var packageManagers = map[string]packageManager{
	platform.DistroDebian: {
		name:        "apt-get",
		checkArgv:   []string{"dpkg", "-s"},
		installArgv: []string{"apt-get", "install", "-y"},
	},
	platform.DistroFedora: {
		name:        "dnf",
		checkArgv:   []string{"rpm", "-q"},
		installArgv: []string{"dnf", "install", "-y"},
	},
	platform.DistroRHEL: {
		name:        "dnf",
		checkArgv:   []string{"rpm", "-q"},
		installArgv: []string{"dnf", "install", "-y"},
	},
	platform.DistroArch: {
		name:        "pacman",
		checkArgv:   []string{"pacman", "-Qi"},
		installArgv: []string{"pacman", "-S", "--noconfirm", "--needed"},
	},
	platform.DistroSUSE: {
		name:        "zypper",
		checkArgv:   []string{"rpm", "-q"},
		installArgv: []string{"zypper", "install", "-y"},
	},
}

// linuxDevPackages is the fixed set of native build dependencies the
// USBLink source build needs on Linux: WebKit2GTK bindings for the Tauri
// webview, the appindicator tray library, librsvg for icon rendering,
// patchelf for AppImage bundling, and the libusb/libudev headers for
// device access.
var linuxDevPackages = map[string][]string{
	platform.DistroDebian: {
		"libwebkit2gtk-4.1-dev",
		"libayatana-appindicator3-dev",
		"librsvg2-dev",
		"patchelf",
		"libusb-1.0-0-dev",
		"libudev-dev",
	},
	platform.DistroFedora: {
		"webkit2gtk4.1-devel",
		"libappindicator-gtk3-devel",
		"librsvg2-devel",
		"patchelf",
		"libusb1-devel",
		"systemd-devel",
	},
	platform.DistroRHEL: {
		"webkit2gtk4.1-devel",
		"libappindicator-gtk3-devel",
		"librsvg2-devel",
		"patchelf",
		"libusb1-devel",
		"systemd-devel",
	},
	platform.DistroArch: {
		"webkit2gtk-4.1",
		"libappindicator-gtk3",
		"librsvg",
		"patchelf",
		"libusb",
	},
	platform.DistroSUSE: {
		"webkit2gtk3-devel",
		"libappindicator3-1",
		"librsvg-devel",
		"patchelf",
		"libusb-1_0-devel",
		"libudev-devel",
	},
}

// toolchain is one cross-platform toolchain prerequisite: a probe
// executable, per-platform package names, and a vendor install script
// used when no package manager is available.
type toolchain struct {
	name       string
	executable string
	// extraProbes are paths checked after an install for toolchains that
	// do not land on PATH within the current process environment.
	extraProbes []string
	brewPkg     string
	linuxPkgs   map[string][]string
	script      string
}

var toolchains = []toolchain{
	{
		name:       "Node.js",
		executable: "node",
		brewPkg:    "node",
		linuxPkgs: map[string][]string{
			platform.DistroDebian: {"nodejs", "npm"},
			platform.DistroFedora: {"nodejs"},
			platform.DistroRHEL:   {"nodejs"},
			platform.DistroArch:   {"nodejs", "npm"},
			platform.DistroSUSE:   {"nodejs", "npm"},
		},
		script: "curl -o- https://raw.githubusercontent.com/nvm-sh/nvm/v0.40.3/install.sh | bash",
	},
	{
		name:        "Rust toolchain",
		executable:  "cargo",
		extraProbes: []string{"$HOME/.cargo/bin/cargo"},
		brewPkg:     "rust",
		linuxPkgs: map[string][]string{
			platform.DistroDebian: {"cargo"},
			platform.DistroFedora: {"cargo"},
			platform.DistroRHEL:   {"cargo"},
			platform.DistroArch:   {"rust"},
			platform.DistroSUSE:   {"cargo"},
		},
		script: "curl --proto '=https' --tlsv1.2 -sSf https://sh.rustup.rs | sh -s -- -y",
	},
}
