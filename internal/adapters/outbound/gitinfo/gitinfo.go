package gitinfo

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/detectiq/workbench/internal/domain"
)

// Adapter implements domain.GitInspector using go-git. The sync CI gate uses
// it to mirror the old `git status --porcelain` check without shelling out.
type Adapter struct{}

// New creates an Adapter.
func New() *Adapter {
	return &Adapter{}
}

// IsRepo reports whether path is inside a git repository.
func (g *Adapter) IsRepo(path string) bool {
	_, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	return err == nil
}

// ShortHead returns the abbreviated HEAD commit hash.
func (g *Adapter) ShortHead(path string) (string, error) {
	repo, err := g.open(path)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	return head.Hash().String()[:8], nil
}

// DirtyPaths lists modified, staged and untracked paths, optionally filtered
// to the given relative prefixes. Paths come back sorted.
func (g *Adapter) DirtyPaths(path string, prefixes ...string) ([]string, error) {
	repo, err := g.open(path)
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading worktree status: %w", err)
	}

	var dirty []string
	for file, st := range status {
		if st.Staging == git.Unmodified && st.Worktree == git.Unmodified {
			continue
		}
		if len(prefixes) > 0 && !hasAnyPrefix(file, prefixes) {
			continue
		}
		dirty = append(dirty, file)
	}
	sort.Strings(dirty)
	return dirty, nil
}

func (g *Adapter) open(path string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNotARepository)
	}
	if err != nil {
		return nil, fmt.Errorf("opening git repo: %w", err)
	}
	return repo, nil
}

func hasAnyPrefix(file string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(file, p) {
			return true
		}
	}
	return false
}
