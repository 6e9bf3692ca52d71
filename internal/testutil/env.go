// Package testutil provides utilities for testing the installer in
// isolation, plus shared mock implementations of its capability
// interfaces (command runner, prompter).
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SetupTestEnv points the installer at an isolated setup directory so
// tests never touch the user's real working copy, downloads, or lock
// file. Returns the setup directory. Cleanup is handled by t.TempDir().
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	setupDir := filepath.Join(tmpDir, "usblink-setup")

	t.Setenv("USBLINK_SETUP_DIR", setupDir)
	// Keep anything that falls back to $HOME inside the sandbox too.
	t.Setenv("HOME", tmpDir)

	if err := os.MkdirAll(setupDir, 0o755); err != nil {
		t.Fatalf("failed to create test setup directory: %v", err)
	}

	return setupDir
}
