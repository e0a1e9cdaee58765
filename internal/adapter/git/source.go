// Package git resolves revision metadata for the audited project so
// reports can pin findings to the code that made the promises.
package git

import (
	"fmt"

	goGit "github.com/go-git/go-git/v5"

	"github.com/verityhq/verity/internal/usecase/run"
)

// Resolver implements the run.SourceResolver port backed by go-git.
type Resolver struct{}

// NewResolver constructs a source resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve opens the repository containing dir and reports its HEAD
// commit, branch, and worktree cleanliness.
func (r *Resolver) Resolve(dir string) (run.SourceInfo, error) {
	repo, err := goGit.PlainOpenWithOptions(dir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return run.SourceInfo{}, fmt.Errorf("open repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return run.SourceInfo{}, fmt.Errorf("resolve HEAD: %w", err)
	}

	info := run.SourceInfo{
		CommitHash: head.Hash().String(),
	}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}

	// Worktree status is best-effort; a bare repo still yields a commit.
	if wt, err := repo.Worktree(); err == nil {
		if status, err := wt.Status(); err == nil {
			info.Dirty = !status.IsClean()
		}
	}

	return info, nil
}
