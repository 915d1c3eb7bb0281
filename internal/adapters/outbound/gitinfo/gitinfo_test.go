package gitinfo_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/detectiq/workbench/internal/adapters/outbound/gitinfo"
	"github.com/detectiq/workbench/internal/domain"
)

func initRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir, repo
}

func commitAll(t *testing.T, repo *git.Repository, msg string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(".")
	require.NoError(t, err)
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestIsRepo(t *testing.T) {
	dir, _ := initRepo(t)
	adapter := gitinfo.New()

	assert.True(t, adapter.IsRepo(dir))
	assert.False(t, adapter.IsRepo(t.TempDir()))
}

func TestShortHead(t *testing.T) {
	dir, repo := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte("[tool.poetry]\n"), 0o644))
	commitAll(t, repo, "init")

	head, err := gitinfo.New().ShortHead(dir)
	require.NoError(t, err)
	assert.Len(t, head, 8)
}

func TestShortHead_NotARepository(t *testing.T) {
	_, err := gitinfo.New().ShortHead(t.TempDir())
	assert.True(t, errors.Is(err, domain.ErrNotARepository))
}

func TestDirtyPaths(t *testing.T) {
	dir, repo := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte("[tool.poetry]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("requests==2.31.0\n"), 0o644))
	commitAll(t, repo, "init")

	adapter := gitinfo.New()
	dirty, err := adapter.DirtyPaths(dir)
	require.NoError(t, err)
	assert.Empty(t, dirty)

	// A modified tracked file and a fresh untracked file both count.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("requests==2.32.0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements-splunk.txt"), []byte("splunk-sdk==1.7.4\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("scratch\n"), 0o644))

	dirty, err = adapter.DirtyPaths(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.md", "requirements-splunk.txt", "requirements.txt"}, dirty)

	dirty, err = adapter.DirtyPaths(dir, "requirements")
	require.NoError(t, err)
	assert.Equal(t, []string{"requirements-splunk.txt", "requirements.txt"}, dirty)

	dirty, err = adapter.DirtyPaths(dir, "pyproject.toml", "poetry.lock")
	require.NoError(t, err)
	assert.Empty(t, dirty)
}

func TestDirtyPaths_NotARepository(t *testing.T) {
	_, err := gitinfo.New().DirtyPaths(t.TempDir())
	assert.True(t, errors.Is(err, domain.ErrNotARepository))
}
