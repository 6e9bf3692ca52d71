package config

import (
	"strings"
	"testing"

	"github.com/usblink/usblink-setup/internal/platform"
)

func baseSettings() *Settings {
	return &Settings{
		RepoURL:  DefaultRepoURL,
		Branch:   DefaultBranch,
		SetupDir: "/tmp/usblink-setup-test",
	}
}

func TestApplyOverrides(t *testing.T) {
	tests := []struct {
		name     string
		luaCode  string
		wantErr  bool
		wantRepo string
	}{
		{
			name:     "full_override",
			luaCode:  `setup = { repo_url = "https://x.example/r", branch = "dev", dir = "/opt/u" }`,
			wantRepo: "https://x.example/r",
		},
		{
			name:     "partial_override",
			luaCode:  `setup = { branch = "dev" }`,
			wantRepo: DefaultRepoURL,
		},
		{
			name:     "no_setup_table",
			luaCode:  `-- nothing to override`,
			wantRepo: DefaultRepoURL,
		},
		{
			name:    "setup_not_a_table",
			luaCode: `setup = "https://x.example/r"`,
			wantErr: true,
		},
		{
			name:    "syntax_error",
			luaCode: `setup = {{{`,
			wantErr: true,
		},
		{
			name:     "wrong_value_types_ignored",
			luaCode:  `setup = { repo_url = 42, branch = true }`,
			wantRepo: DefaultRepoURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := baseSettings()
			err := applyOverrides(settings, tt.luaCode, nil)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("applyOverrides() error = %v", err)
			}
			if settings.RepoURL != tt.wantRepo {
				t.Errorf("RepoURL = %q, want %q", settings.RepoURL, tt.wantRepo)
			}
		})
	}
}

func TestApplyOverridesPlatformConditional(t *testing.T) {
	info := &platform.Info{Family: platform.FamilyMacOS, Arch: "aarch64"}

	luaCode := `
setup = {
	branch = platform.is_macos and "macos-stable" or "main",
}
`
	settings := baseSettings()
	if err := applyOverrides(settings, luaCode, info); err != nil {
		t.Fatalf("applyOverrides() error = %v", err)
	}
	if settings.Branch != "macos-stable" {
		t.Errorf("Branch = %q, want macos-stable", settings.Branch)
	}
}

func TestSandboxBlocksDangerousFunctions(t *testing.T) {
	// Each snippet must fail: the sandbox strips os/io/require/load/debug.
	attempts := []string{
		`os.execute("rm -rf /")`,
		`io.open("/etc/passwd")`,
		`require("socket")`,
		`dofile("/tmp/evil.lua")`,
		`loadstring("return 1")()`,
		`debug.getinfo(1)`,
	}

	for _, code := range attempts {
		settings := baseSettings()
		err := applyOverrides(settings, code, nil)
		if err == nil {
			t.Errorf("sandbox allowed %q", code)
		}
	}
}

func TestParseErrorTrimsTraceback(t *testing.T) {
	err := &ParseError{
		Message: "Lua syntax error",
		Detail:  "something broke\nstack traceback:\n\t[G]: in ?",
	}
	if strings.Contains(err.Error(), "traceback") {
		t.Errorf("traceback not trimmed: %q", err.Error())
	}
}
