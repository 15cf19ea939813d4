package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Committer durably records an applied file change as one attributable unit.
// The path identifies the changed file relative to the workspace root; only
// that file is part of the recorded change. Record returns an opaque revision
// identifier, or an empty string when the backend has no revision concept.
type Committer interface {
	Record(path, description string) (string, error)
}

// GitCommitter records changes as commits in the workspace's git repository.
type GitCommitter struct {
	repo *git.Repository
}

// NewGitCommitter opens the git repository at the workspace root.
func NewGitCommitter(root string) (*GitCommitter, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %q: %w", root, err)
	}
	return &GitCommitter{repo: repo}, nil
}

// Record stages the single file at the given root-relative path and commits
// it with the description. Files changed out of band are never swept into the
// commit. A staged tree identical to HEAD means the change is already
// recorded (the same content was applied before); the current HEAD hash is
// returned rather than an error.
func (c *GitCommitter) Record(path, description string) (string, error) {
	worktree, err := c.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	if _, err := worktree.Add(path); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", path, err)
	}

	commitHash, err := worktree.Commit(description, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "workspace-bridge",
			Email: "workspace-bridge@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			head, headErr := c.repo.Head()
			if headErr != nil {
				return "", fmt.Errorf("failed to resolve HEAD on clean worktree: %w", headErr)
			}
			slog.Debug("No changes to record, worktree already clean", "path", path)
			return head.Hash().String(), nil
		}
		return "", fmt.Errorf("failed to commit changes: %w", err)
	}

	slog.Debug("Recorded change", "path", path, "commit", commitHash.String())
	return commitHash.String(), nil
}

// LogCommitter is the fallback when the workspace root has no git repository.
// Changes are recorded to the log only; there is no revision to return.
type LogCommitter struct{}

func (LogCommitter) Record(path, description string) (string, error) {
	slog.Info("Recorded change (no git repository)", "path", path, "description", description)
	return "", nil
}
