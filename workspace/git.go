package workspace

import (
	"fmt"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Committer records an integration into some form of history.
type Committer interface {
	Commit(root, nodeID string, files []string) error
}

// GitCommitter commits integrated files to a git repository at the shared
// tree root, initializing one if none exists.
type GitCommitter struct {
	Name  string
	Email string
}

var _ Committer = &GitCommitter{}

func NewGitCommitter() *GitCommitter {
	return &GitCommitter{
		Name:  "gantry",
		Email: "gantry@localhost",
	}
}

func (c *GitCommitter) Commit(root, nodeID string, files []string) error {
	repo, err := git.PlainOpen(root)
	if err == git.ErrRepositoryNotExists {
		repo, err = git.PlainInit(root, false)
	}
	if err != nil {
		return fmt.Errorf("error opening repository: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("error getting worktree: %w", err)
	}
	for _, file := range files {
		if _, err := worktree.Add(file); err != nil {
			return fmt.Errorf("error staging %q: %w", file, err)
		}
	}
	message := fmt.Sprintf("integrate %s (%d files)", nodeID, len(files))
	_, err = worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  c.Name,
			Email: c.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("error committing integration: %w", err)
	}
	return nil
}
