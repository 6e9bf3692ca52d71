package config

import (
	"fmt"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/usblink/usblink-setup/internal/platform"
)

// ParseError is a setup.lua parsing error with a user-friendly message.
type ParseError struct {
	Message string // user-friendly message
	Detail  string // raw Lua error
}

func (e *ParseError) Error() string {
	detail := e.Detail
	// The Lua stack traceback is noise for a config file one table deep.
	if idx := strings.Index(detail, "stack traceback"); idx > 0 {
		detail = strings.TrimSpace(detail[:idx])
	}
	return fmt.Sprintf("%s: %s", e.Message, detail)
}

// Load returns the settings for this run: DefaultSettings, overridden by
// the setup.lua file when one exists. A missing override file is normal;
// a present-but-broken one is an error, since silently ignoring it would
// install from the wrong source.
func Load(info *platform.Info) (*Settings, error) {
	settings, err := DefaultSettings()
	if err != nil {
		return nil, err
	}

	code, err := os.ReadFile(settings.OverridePath())
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, fmt.Errorf("read %s: %w", OverrideFile, err)
	}

	if err := applyOverrides(settings, string(code), info); err != nil {
		return nil, fmt.Errorf("parse %s: %w", OverrideFile, err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}
	return settings, nil
}

// applyOverrides executes Lua override code in a sandboxed VM and merges
// any recognized fields of the global `setup` table into settings.
func applyOverrides(settings *Settings, luaCode string, info *platform.Info) error {
	L := newSandboxedVM()
	defer L.Close()

	if info != nil {
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		return &ParseError{Message: "Lua syntax error", Detail: err.Error()}
	}

	setupTable := L.GetGlobal("setup")
	if setupTable.Type() == lua.LTNil {
		// An override file that sets nothing is legal.
		return nil
	}
	if setupTable.Type() != lua.LTTable {
		return &ParseError{
			Message: "invalid 'setup' table",
			Detail:  fmt.Sprintf("expected table, got %s", setupTable.Type()),
		}
	}

	table := setupTable.(*lua.LTable)
	if v := table.RawGetString("repo_url"); v.Type() == lua.LTString {
		settings.RepoURL = v.String()
	}
	if v := table.RawGetString("branch"); v.Type() == lua.LTString {
		settings.Branch = v.String()
	}
	if v := table.RawGetString("dir"); v.Type() == lua.LTString {
		settings.SetupDir = v.String()
	}

	return nil
}

// newSandboxedVM creates a Lua VM with the dangerous surface stripped:
// no os/io, no module loading, no debug. The override file is meant to be
// declarative; anything it needs to know about the host comes from the
// injected platform table.
func newSandboxedVM() *lua.LState {
	L := lua.NewState()

	L.SetGlobal("os", lua.LNil)
	L.SetGlobal("io", lua.LNil)
	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("loadstring", lua.LNil)
	L.SetGlobal("debug", lua.LNil)

	return L
}
