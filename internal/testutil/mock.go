package testutil

import (
	"context"
	"fmt"
	"strings"
)

// MockRunner is a scripted cmdrun.Runner. Commands are matched by prefix
// against "name arg1 arg2 ...", so tests can fail a whole family of
// invocations ("apt-get") or a single exact command.
type MockRunner struct {
	// Calls records every Run/Output invocation in order.
	Calls []string
	// Dirs records the working directory of each Run/Output call.
	Dirs []string
	// FailOn maps a command prefix to the error Run/Output returns.
	FailOn map[string]error
	// Outputs maps a command prefix to the stdout Output returns.
	Outputs map[string]string
	// Paths maps executable names to LookPath results. Missing entries
	// report the executable as not installed.
	Paths map[string]string
	// MissingUntilInstalled maps an executable name to a command prefix;
	// LookPath fails for that executable until a recorded call matches
	// the prefix. Models install actions that put a tool on PATH.
	MissingUntilInstalled map[string]string
}

// NewMockRunner creates a mock runner with empty script tables.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		FailOn:                map[string]error{},
		Outputs:               map[string]string{},
		Paths:                 map[string]string{},
		MissingUntilInstalled: map[string]string{},
	}
}

func (m *MockRunner) record(dir, name string, args []string) string {
	call := strings.TrimSpace(name + " " + strings.Join(args, " "))
	m.Calls = append(m.Calls, call)
	m.Dirs = append(m.Dirs, dir)
	return call
}

func (m *MockRunner) errorFor(call string) error {
	for prefix, err := range m.FailOn {
		if strings.HasPrefix(call, prefix) {
			return err
		}
	}
	return nil
}

// Run records the call and returns the scripted error, if any.
func (m *MockRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	call := m.record(dir, name, args)
	return m.errorFor(call)
}

// Output records the call and returns the scripted output or error.
func (m *MockRunner) Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	call := m.record(dir, name, args)
	if err := m.errorFor(call); err != nil {
		return "", err
	}
	for prefix, out := range m.Outputs {
		if strings.HasPrefix(call, prefix) {
			return out, nil
		}
	}
	return "", nil
}

// LookPath resolves from the Paths table, then from
// MissingUntilInstalled once the matching install command has run.
func (m *MockRunner) LookPath(name string) (string, error) {
	if path, ok := m.Paths[name]; ok {
		return path, nil
	}
	if prefix, ok := m.MissingUntilInstalled[name]; ok && m.Ran(prefix) {
		return "/usr/bin/" + name, nil
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
}

// Ran reports whether any recorded call starts with the given prefix.
func (m *MockRunner) Ran(prefix string) bool {
	for _, call := range m.Calls {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}

// MockPrompter is a scripted prompt.Prompter. Answers are consumed in
// order; running out of answers returns the question's default, which
// matches the terminal prompter's non-interactive behavior.
type MockPrompter struct {
	// ConfirmAnswers are consumed by successive Confirm calls.
	ConfirmAnswers []bool
	// ChooseAnswers are consumed by successive Choose calls.
	ChooseAnswers []int
	// Questions records every question asked.
	Questions []string
}

// Confirm pops the next scripted yes/no answer.
func (m *MockPrompter) Confirm(question string, def bool) (bool, error) {
	m.Questions = append(m.Questions, question)
	if len(m.ConfirmAnswers) == 0 {
		return def, nil
	}
	answer := m.ConfirmAnswers[0]
	m.ConfirmAnswers = m.ConfirmAnswers[1:]
	return answer, nil
}

// Choose pops the next scripted selection.
func (m *MockPrompter) Choose(question string, options []string, def int) (int, error) {
	m.Questions = append(m.Questions, question)
	if len(m.ChooseAnswers) == 0 {
		return def, nil
	}
	answer := m.ChooseAnswers[0]
	m.ChooseAnswers = m.ChooseAnswers[1:]
	if answer < 0 || answer >= len(options) {
		return def, nil
	}
	return answer, nil
}
