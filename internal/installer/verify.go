package installer

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // maintained fork

	"github.com/usblink/usblink-setup/internal/release"
)

// signingKeyPath is the release signing key inside the working copy,
// relative to its root.
var signingKeyPath = filepath.Join("keys", "usblink.asc")

// verifyAsset checks the downloaded asset against whatever verification
// material the release publishes. Absent material downgrades to a
// warning; material that is present but does not match fails the
// install.
func (i *Installer) verifyAsset(ctx context.Context, manifest *release.Manifest, asset *release.Asset, assetPath string) error {
	if err := i.verifyChecksum(ctx, manifest, asset, assetPath); err != nil {
		return err
	}
	return i.verifySignature(ctx, manifest, asset, assetPath)
}

func (i *Installer) verifyChecksum(ctx context.Context, manifest *release.Manifest, asset *release.Asset, assetPath string) error {
	sums := findChecksumAsset(manifest)
	if sums == nil {
		fmt.Fprintln(i.out, "⚠  Release publishes no checksums, skipping checksum verification")
		return nil
	}

	sumsPath := filepath.Join(i.settings.DownloadsDir(), sums.Name)
	if err := i.downloader.fetch(ctx, sums.URL, sumsPath); err != nil {
		return fmt.Errorf("download checksums: %w", err)
	}

	expected, err := findChecksum(sumsPath, asset.Name)
	if err != nil {
		return fmt.Errorf("read checksums: %w", err)
	}
	if expected == "" {
		fmt.Fprintf(i.out, "⚠  %s is not listed in %s, skipping checksum verification\n", asset.Name, sums.Name)
		return nil
	}

	actual, err := fileSHA256(assetPath)
	if err != nil {
		return fmt.Errorf("hash downloaded asset: %w", err)
	}
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("checksum mismatch for %s: got %s, want %s", asset.Name, actual, expected)
	}

	fmt.Fprintln(i.out, "✓ Checksum verified")
	return nil
}

func (i *Installer) verifySignature(ctx context.Context, manifest *release.Manifest, asset *release.Asset, assetPath string) error {
	sig := findSignatureAsset(manifest, asset.Name)
	if sig == nil {
		fmt.Fprintln(i.out, "⚠  Release publishes no signature for this asset, skipping signature verification")
		return nil
	}

	keyring, err := i.loadSigningKey()
	if err != nil {
		fmt.Fprintf(i.out, "⚠  Release signing key unavailable (%v), skipping signature verification\n", err)
		return nil
	}

	sigPath := filepath.Join(i.settings.DownloadsDir(), sig.Name)
	if err := i.downloader.fetch(ctx, sig.URL, sigPath); err != nil {
		return fmt.Errorf("download signature: %w", err)
	}

	if err := checkDetachedSignature(keyring, assetPath, sigPath); err != nil {
		return fmt.Errorf("verify signature for %s: %w", asset.Name, err)
	}

	fmt.Fprintln(i.out, "✓ Signature verified")
	return nil
}

// loadSigningKey reads the release signing key shipped in the working
// copy.
func (i *Installer) loadSigningKey() (openpgp.EntityList, error) {
	keyPath := filepath.Join(i.settings.WorkingCopyDir(), signingKeyPath)

	keyFile, err := os.Open(keyPath)
	if err != nil {
		return nil, err
	}
	defer keyFile.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(keyFile)
	if err != nil {
		keyFile.Seek(0, io.SeekStart)
		keyring, err = openpgp.ReadKeyRing(keyFile)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}
	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}
	return keyring, nil
}

func checkDetachedSignature(keyring openpgp.EntityList, assetPath, sigPath string) error {
	assetFile, err := os.Open(assetPath)
	if err != nil {
		return fmt.Errorf("open asset: %w", err)
	}
	defer assetFile.Close()

	sigFile, err := os.Open(sigPath)
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}
	defer sigFile.Close()

	_, err = openpgp.CheckArmoredDetachedSignature(keyring, assetFile, sigFile, nil)
	if err != nil {
		// Retry as a binary signature.
		assetFile.Seek(0, io.SeekStart)
		sigFile.Seek(0, io.SeekStart)
		_, err = openpgp.CheckDetachedSignature(keyring, assetFile, sigFile, nil)
	}
	return err
}

// findChecksumAsset locates a SHA256SUMS-style asset in the manifest.
func findChecksumAsset(manifest *release.Manifest) *release.Asset {
	for idx := range manifest.Assets {
		name := strings.ToUpper(manifest.Assets[idx].Name)
		if strings.Contains(name, "SHA256SUMS") || strings.HasSuffix(name, ".SHA256") {
			return &manifest.Assets[idx]
		}
	}
	return nil
}

// findSignatureAsset locates a detached signature for the named asset.
func findSignatureAsset(manifest *release.Manifest, assetName string) *release.Asset {
	for idx := range manifest.Assets {
		name := manifest.Assets[idx].Name
		if name == assetName+".sig" || name == assetName+".asc" {
			return &manifest.Assets[idx]
		}
	}
	return nil
}

// findChecksum scans a "hash  filename" checksum file for the named
// asset. An unlisted name returns "" without error.
func findChecksum(sumsPath, filename string) (string, error) {
	file, err := os.Open(sumsPath)
	if err != nil {
		return "", fmt.Errorf("open checksum file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}
		// Some checksum files carry paths, match on the basename too.
		if parts[1] == filename || filepath.Base(parts[1]) == filename {
			return parts[0], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan checksum file: %w", err)
	}
	return "", nil
}

func fileSHA256(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
