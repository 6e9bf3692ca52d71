// Package prompt models the installer's two interactive questions as an
// injectable capability, so the orchestrator can run fully automated in
// tests and degrade sanely when stdin is not a terminal.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks the user blocking questions on the terminal.
type Prompter interface {
	// Confirm asks a yes/no question and returns the answer. Empty or
	// unreadable input (EOF, non-interactive context) yields def.
	Confirm(question string, def bool) (bool, error)
	// Choose presents numbered options and returns the chosen index.
	// Empty or invalid input yields def.
	Choose(question string, options []string, def int) (int, error)
}

// TerminalPrompter reads answers line by line from In and writes the
// questions to Out.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer

	scanner *bufio.Scanner
}

// NewTerminalPrompter creates a prompter bound to the given streams,
// normally os.Stdin and os.Stdout.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{In: in, Out: out}
}

func (p *TerminalPrompter) readLine() (string, bool) {
	if p.scanner == nil {
		p.scanner = bufio.NewScanner(p.In)
	}
	if !p.scanner.Scan() {
		// EOF or read failure: treat as non-interactive.
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}

// Confirm asks a yes/no question.
func (p *TerminalPrompter) Confirm(question string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	fmt.Fprintf(p.Out, "%s [%s]: ", question, hint)

	line, ok := p.readLine()
	if !ok || line == "" {
		return def, nil
	}

	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return def, nil
	}
}

// Choose presents numbered options and reads a selection.
func (p *TerminalPrompter) Choose(question string, options []string, def int) (int, error) {
	fmt.Fprintln(p.Out, question)
	for i, opt := range options {
		fmt.Fprintf(p.Out, "  %d) %s\n", i+1, opt)
	}
	fmt.Fprintf(p.Out, "Choice [%d]: ", def+1)

	line, ok := p.readLine()
	if !ok || line == "" {
		return def, nil
	}

	var n int
	if _, err := fmt.Sscanf(line, "%d", &n); err != nil || n < 1 || n > len(options) {
		// Invalid input routes to the default, never to an error.
		return def, nil
	}
	return n - 1, nil
}
