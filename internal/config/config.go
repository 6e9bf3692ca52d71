// Package config holds the installer's settings: compiled defaults,
// optionally overridden by a sandboxed setup.lua in the setup directory.
//
// The CLI itself is flagless and interactive; this file is the only
// configuration surface, intended for mirrors of the USBLink repository
// and non-standard setup locations.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// Compiled defaults for the USBLink source repository.
const (
	DefaultRepoURL = "https://github.com/usblink/usblink"
	DefaultBranch  = "main"

	// OverrideFile is the name of the optional Lua override file inside
	// the setup directory.
	OverrideFile = "setup.lua"
)

// Settings is the resolved installer configuration. It is read once at
// startup and never mutated afterwards.
type Settings struct {
	// RepoURL is the USBLink source repository (clone and release origin).
	RepoURL string
	// Branch is the default branch pulled on update.
	Branch string
	// SetupDir is the user-scoped root holding the working copy, the
	// ephemeral downloads directory, and the run lock.
	SetupDir string
}

// WorkingCopyDir is where the USBLink source tree is cloned.
func (s *Settings) WorkingCopyDir() string {
	return filepath.Join(s.SetupDir, "src")
}

// DownloadsDir is the ephemeral download directory used by the binary
// install path and removed unconditionally during cleanup.
func (s *Settings) DownloadsDir() string {
	return filepath.Join(s.SetupDir, "downloads")
}

// OverridePath is the location of the optional setup.lua file.
func (s *Settings) OverridePath() string {
	return filepath.Join(s.SetupDir, OverrideFile)
}

// Validate checks the settings for obvious misconfiguration.
func (s *Settings) Validate() error {
	if s.SetupDir == "" {
		return fmt.Errorf("setup directory cannot be empty")
	}
	if s.Branch == "" {
		return fmt.Errorf("branch cannot be empty")
	}

	u, err := url.Parse(s.RepoURL)
	if err != nil {
		return fmt.Errorf("invalid repo_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid repo_url %q: scheme must be http or https", s.RepoURL)
	}
	return nil
}

// DefaultSettings resolves the compiled defaults. The setup directory is
// $USBLINK_SETUP_DIR when set, otherwise ~/.usblink-setup.
func DefaultSettings() (*Settings, error) {
	setupDir := os.Getenv("USBLINK_SETUP_DIR")
	if setupDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		setupDir = filepath.Join(home, ".usblink-setup")
	}

	return &Settings{
		RepoURL:  DefaultRepoURL,
		Branch:   DefaultBranch,
		SetupDir: setupDir,
	}, nil
}
