package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// GitDestination commits snapshots to a file in a local clone and pushes
// the branch to origin. A snapshot identical to the committed file makes
// no commit.
type GitDestination struct {
	repo   string // path to the local clone
	file   string // path of the export within the clone
	branch string
}

// NewGitDestination creates a git destination for an existing clone.
func NewGitDestination(repo, file, branch string) *GitDestination {
	return &GitDestination{repo: repo, file: file, branch: branch}
}

func (d *GitDestination) Name() string {
	return "git:" + filepath.Join(d.repo, d.file)
}

func (d *GitDestination) Write(ctx context.Context, snap *Snapshot) error {
	if err := d.git(ctx, "checkout", d.branch); err != nil {
		return err
	}
	// The branch may not exist on origin yet.
	_ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	path := filepath.Join(d.repo, d.file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	if err := os.WriteFile(path, snap.Data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	if err := d.git(ctx, "add", "--", d.file); err != nil {
		return err
	}

	changed, err := d.hasStagedChanges(ctx)
	if err != nil || !changed {
		return err
	}
	if err := d.git(ctx, "commit", "-m", commitMessage(snap)); err != nil {
		return err
	}
	return d.git(ctx, "push", "origin", d.branch)
}

// commitMessage is the one-line subject recorded for snap.
func commitMessage(snap *Snapshot) string {
	noun := "variables"
	if snap.Header.VariableCount == 1 {
		noun = "variable"
	}
	return fmt.Sprintf("varhub: export %d %s (sha256 %s)", snap.Header.VariableCount, noun, snap.ShortChecksum())
}

func (d *GitDestination) hasStagedChanges(ctx context.Context) (bool, error) {
	err := d.git(ctx, "diff", "--cached", "--quiet")
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return false, nil
	case errors.As(err, &exitErr) && exitErr.ExitCode() == 1:
		return true, nil
	}
	return false, err
}

// git runs a git subcommand inside the clone. A failure carries git's output.
func (d *GitDestination) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git %s: %w: %s", args[0], err, bytes.TrimSpace(out))
	}
	return nil
}
