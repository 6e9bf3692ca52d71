// Package installer places a prebuilt USBLink release onto the host.
// Asset selection is an enumerated lookup per platform tuple; everything
// after a successful match is a hard failure with no fallback.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/usblink/usblink-setup/internal/cmdrun"
	"github.com/usblink/usblink-setup/internal/config"
	"github.com/usblink/usblink-setup/internal/platform"
	"github.com/usblink/usblink-setup/internal/release"
)

// ErrNoMatchingAsset is returned when the release carries no asset for
// the detected platform. The caller treats it as non-fatal.
var ErrNoMatchingAsset = errors.New("no release asset matches this platform")

// appBundleName is the bundle shipped inside the macOS disk image.
const appBundleName = "USBLink.app"

// Installer downloads and installs a release asset.
type Installer struct {
	runner     cmdrun.Runner
	settings   *config.Settings
	downloader *downloader
	out        io.Writer
}

// NewInstaller creates an installer writing into the settings' download
// directory.
func NewInstaller(runner cmdrun.Runner, settings *config.Settings, out io.Writer) *Installer {
	return &Installer{
		runner:     runner,
		settings:   settings,
		downloader: newDownloader(),
		out:        out,
	}
}

// Install selects the platform's asset from the manifest, downloads and
// verifies it, and installs it in the OS-appropriate location. It
// returns the install target. ErrNoMatchingAsset is the only non-fatal
// failure; anything later means an install was started and failed.
func (i *Installer) Install(ctx context.Context, info *platform.Info, manifest *release.Manifest) (string, error) {
	asset, err := selectAsset(info, manifest)
	if err != nil {
		return "", err
	}

	fmt.Fprintf(i.out, "  Downloading %s (%s)...\n", asset.Name, manifest.Version)
	assetPath := filepath.Join(i.settings.DownloadsDir(), asset.Name)
	if err := i.downloader.fetch(ctx, asset.URL, assetPath); err != nil {
		return "", fmt.Errorf("download asset: %w", err)
	}

	if err := i.verifyAsset(ctx, manifest, asset, assetPath); err != nil {
		return "", err
	}

	switch info.Family {
	case platform.FamilyMacOS:
		return i.installDiskImage(ctx, assetPath)
	case platform.FamilyLinux:
		return i.installPortableImage(assetPath)
	case platform.FamilyWindows:
		return i.runNativeInstaller(ctx, assetPath)
	}
	return "", fmt.Errorf("no install procedure for platform %q", info.Family)
}

// selectAsset picks the first manifest asset matching the platform's
// pattern.
func selectAsset(info *platform.Info, manifest *release.Manifest) (*release.Asset, error) {
	pattern, ok := patternFor(info)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoMatchingAsset, info.Family, info.Arch)
	}
	for idx := range manifest.Assets {
		if pattern.matches(manifest.Assets[idx].Name) {
			return &manifest.Assets[idx], nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s in release %s", ErrNoMatchingAsset, info.Family, info.Arch, manifest.Version)
}

// installDiskImage mounts the dmg at a unique temporary mount point,
// copies the application bundle into /Applications, and always detaches
// the image afterwards, copy failure included.
func (i *Installer) installDiskImage(ctx context.Context, dmgPath string) (string, error) {
	mountPoint := filepath.Join(os.TempDir(), "usblink-dmg-"+uuid.NewString())

	if err := i.runner.Run(ctx, "", "hdiutil", "attach", dmgPath, "-mountpoint", mountPoint, "-nobrowse", "-quiet"); err != nil {
		return "", fmt.Errorf("mount disk image: %w", err)
	}
	defer func() {
		i.runner.Run(ctx, "", "hdiutil", "detach", mountPoint, "-quiet")
		os.Remove(mountPoint)
	}()

	target := filepath.Join("/Applications", appBundleName)
	// An earlier install is replaced wholesale, never merged into.
	if err := i.runner.Run(ctx, "", "rm", "-rf", target); err != nil {
		return "", fmt.Errorf("remove previous install: %w", err)
	}
	if err := i.runner.Run(ctx, "", "cp", "-R", filepath.Join(mountPoint, appBundleName), "/Applications/"); err != nil {
		return "", fmt.Errorf("copy application bundle: %w", err)
	}

	fmt.Fprintf(i.out, "✓ Installed %s\n", target)
	return target, nil
}

// installPortableImage places the AppImage at ~/.local/bin/usblink with
// the executable bit set.
func (i *Installer) installPortableImage(assetPath string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	binDir := filepath.Join(home, ".local", "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", binDir, err)
	}

	target := filepath.Join(binDir, "usblink")
	if err := copyFile(assetPath, target, 0o755); err != nil {
		return "", fmt.Errorf("install portable image: %w", err)
	}

	fmt.Fprintf(i.out, "✓ Installed %s\n", target)
	return target, nil
}

// runNativeInstaller hands control to the downloaded Windows installer.
func (i *Installer) runNativeInstaller(ctx context.Context, assetPath string) (string, error) {
	fmt.Fprintln(i.out, "  Launching the USBLink installer...")
	if err := i.runner.Run(ctx, "", assetPath); err != nil {
		return "", fmt.Errorf("run installer: %w", err)
	}
	return assetPath, nil
}

func copyFile(src, dest string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
