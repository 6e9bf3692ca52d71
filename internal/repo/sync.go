// Package repo obtains and refreshes the local working copy of the
// USBLink source tree using go-git. The working copy is owned by this
// package; later stages only read from it.
package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/usblink/usblink-setup/internal/prompt"
)

// ErrNotARepository is returned when the destination exists but does not
// hold a git repository. Nothing is deleted on the user's behalf.
var ErrNotARepository = errors.New("destination exists but is not a git repository")

// Synchronizer clones or updates the USBLink working copy.
type Synchronizer struct {
	prompter prompt.Prompter
	out      io.Writer
}

// NewSynchronizer creates a synchronizer. The prompter is consulted only
// when an existing working copy could be updated.
func NewSynchronizer(prompter prompt.Prompter, out io.Writer) *Synchronizer {
	return &Synchronizer{prompter: prompter, out: out}
}

// Sync ensures dest holds the USBLink source tree. A missing destination
// is cloned; an existing one is pulled after a yes/no prompt, or left
// untouched on "no" (the non-interactive default). Repeated invocations
// converge to "repository present, optionally refreshed".
func (s *Synchronizer) Sync(ctx context.Context, dest, url, branch string) error {
	_, err := os.Stat(dest)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("stat working copy: %w", err)
		}
		return s.clone(ctx, dest, url, branch)
	}
	return s.update(ctx, dest, branch)
}

func (s *Synchronizer) clone(ctx context.Context, dest, url, branch string) error {
	fmt.Fprintf(s.out, "  Cloning %s...\n", url)

	_, err := gogit.PlainCloneContext(ctx, dest, false, &gogit.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
	})
	if err != nil {
		return fmt.Errorf("clone repository: %w", err)
	}

	fmt.Fprintln(s.out, "✓ Source tree cloned")
	return nil
}

func (s *Synchronizer) update(ctx context.Context, dest, branch string) error {
	repo, err := gogit.PlainOpen(dest)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return fmt.Errorf("%w: %s", ErrNotARepository, dest)
		}
		return fmt.Errorf("open repository: %w", err)
	}

	update, err := s.prompter.Confirm("Source tree already present, pull the latest changes?", false)
	if err != nil {
		return fmt.Errorf("read update choice: %w", err)
	}
	if !update {
		fmt.Fprintln(s.out, "✓ Using existing source tree")
		return nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}

	err = worktree.PullContext(ctx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
	})
	if err != nil {
		if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
			fmt.Fprintln(s.out, "✓ Source tree already up to date")
			return nil
		}
		return fmt.Errorf("pull repository: %w", err)
	}

	fmt.Fprintln(s.out, "✓ Source tree updated")
	return nil
}
