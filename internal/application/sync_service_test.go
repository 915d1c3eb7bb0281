package application_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/detectiq/workbench/internal/adapters/outbound/gitinfo"
	"github.com/detectiq/workbench/internal/adapters/outbound/history"
	"github.com/detectiq/workbench/internal/adapters/outbound/pyproject"
	"github.com/detectiq/workbench/internal/adapters/outbound/reqstore"
	"github.com/detectiq/workbench/internal/application"
	"github.com/detectiq/workbench/internal/domain"
)

const syncedManifest = `[tool.poetry]
name = "detectiq"
version = "0.1.0"

[tool.poetry.dependencies]
python = "^3.10"
requests = "^2.31.0"

[tool.poetry.group.dev.dependencies]
pytest = "^7.4.3"
`

const syncedLock = `[[package]]
name = "certifi"
version = "2023.11.17"
optional = false
python-versions = ">=3.6"

[[package]]
name = "pytest"
version = "7.4.3"
optional = false
python-versions = ">=3.7"

[[package]]
name = "requests"
version = "2.31.0"
optional = false
python-versions = ">=3.7"

[package.dependencies]
certifi = ">=2017.4.17"
urllib3 = ">=1.21.1,<3"

[[package]]
name = "urllib3"
version = "2.1.0"
optional = false
python-versions = ">=3.8"

[metadata]
lock-version = "2.0"
content-hash = "1f2e3d4c5b6a"
`

// staleManifest requires a package the lock never resolved.
const staleManifest = `[tool.poetry]
name = "detectiq"
version = "0.1.0"

[tool.poetry.dependencies]
python = "^3.10"
requests = "^2.31.0"
numpy = "^1.26.0"
`

func syncFixture(t *testing.T, manifest string) application.Workspace {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte(manifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "poetry.lock"), []byte(syncedLock), 0o644))
	ws, err := application.NewWorkspace(dir, domain.DefaultWorkspaceConfig("detectiq"))
	require.NoError(t, err)
	return ws
}

type captureNotifier struct {
	mu        sync.Mutex
	published []domain.Notification
}

func (c *captureNotifier) Publish(n domain.Notification) domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, n)
	return n
}

func (c *captureNotifier) Dismiss(string, domain.CloseReason) bool { return false }

func (c *captureNotifier) last(t *testing.T) domain.Notification {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.published)
	return c.published[len(c.published)-1]
}

func newSyncService(t *testing.T, ws application.Workspace) (*application.SyncService, *history.Store, *captureNotifier) {
	t.Helper()
	store, err := history.Open(ws.HistoryPath())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	notifier := &captureNotifier{}
	svc := application.NewSyncService(pyproject.New(), reqstore.New(), gitinfo.New(), store, notifier)
	return svc, store, notifier
}

func commitWorkspace(t *testing.T, repo *git.Repository, msg string) {
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

func TestSyncService_PlanReportsMissingExports(t *testing.T) {
	ws := syncFixture(t, syncedManifest)
	svc, _, _ := newSyncService(t, ws)

	report, err := svc.Plan(ws)
	require.NoError(t, err)

	require.Len(t, report.Files, 2)
	for _, f := range report.Files {
		assert.Equal(t, domain.FileDrifted, f.Status, f.File)
	}
	assert.False(t, report.Clean())
	assert.Empty(t, report.LockIssues)

	// Plan never writes.
	_, err = os.Stat(filepath.Join(ws.Root, "requirements.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestSyncService_SyncWritesAndIsIdempotent(t *testing.T) {
	ws := syncFixture(t, syncedManifest)
	svc, store, notifier := newSyncService(t, ws)
	ctx := context.Background()

	report, err := svc.Sync(ctx, ws)
	require.NoError(t, err)

	statuses := map[string]domain.FileStatus{}
	for _, f := range report.Files {
		statuses[f.File] = f.Status
	}
	assert.Equal(t, domain.FileCreated, statuses["requirements.txt"])
	assert.Equal(t, domain.FileCreated, statuses["requirements-dev.txt"])

	raw, err := os.ReadFile(filepath.Join(ws.Root, "requirements.txt"))
	require.NoError(t, err)
	core := string(raw)
	assert.True(t, strings.HasPrefix(core, domain.ExportHeader))
	assert.Contains(t, core, "certifi==2023.11.17")
	assert.Contains(t, core, "requests==2.31.0")
	assert.Contains(t, core, "urllib3==2.1.0")
	assert.NotContains(t, core, "pytest")

	raw, err = os.ReadFile(filepath.Join(ws.Root, "requirements-dev.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "pytest==7.4.3")

	assert.Equal(t, domain.SeverityInfo, notifier.last(t).Severity)

	// Second pass finds nothing to do.
	again, err := svc.Sync(ctx, ws)
	require.NoError(t, err)
	for _, f := range again.Files {
		assert.Equal(t, domain.FileUnchanged, f.Status, f.File)
	}

	runs, err := store.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, domain.RunOK, runs[0].Status)
	assert.Equal(t, "already in sync", runs[0].Detail)
	assert.Equal(t, "2 files written", runs[1].Detail)
}

func TestSyncService_CheckReportsDrift(t *testing.T) {
	ws := syncFixture(t, syncedManifest)
	svc, store, notifier := newSyncService(t, ws)
	ctx := context.Background()

	_, err := svc.Sync(ctx, ws)
	require.NoError(t, err)
	_, err = svc.Check(ctx, ws, false)
	require.NoError(t, err)

	// A hand-edited export is drift, whatever its content claims.
	reqPath := filepath.Join(ws.Root, "requirements.txt")
	require.NoError(t, os.WriteFile(reqPath, []byte("requests==9.9.9\n"), 0o644))

	report, err := svc.Check(ctx, ws, false)
	assert.ErrorIs(t, err, domain.ErrOutOfSync)
	require.Len(t, report.Drifted(), 1)
	assert.NotEmpty(t, report.Drifted()[0].Diff)
	assert.Equal(t, domain.SeverityWarning, notifier.last(t).Severity)

	runs, err := store.RecentRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunDrift, runs[0].Status)
}

func TestSyncService_StaleLockBlocksWrites(t *testing.T) {
	ws := syncFixture(t, staleManifest)
	svc, _, notifier := newSyncService(t, ws)
	ctx := context.Background()

	report, err := svc.Sync(ctx, ws)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLockStale)
	require.NotEmpty(t, report.LockIssues)
	assert.Contains(t, report.LockIssues[0], "numpy")

	// Nothing may be written while the lock is stale.
	_, statErr := os.Stat(filepath.Join(ws.Root, "requirements.txt"))
	assert.True(t, os.IsNotExist(statErr))

	assert.Equal(t, domain.SeverityError, notifier.last(t).Severity)

	_, err = svc.Check(ctx, ws, false)
	assert.ErrorIs(t, err, domain.ErrLockStale)
}

func TestSyncService_OrphanDoesNotFailCheck(t *testing.T) {
	ws := syncFixture(t, syncedManifest)
	svc, _, _ := newSyncService(t, ws)
	ctx := context.Background()

	_, err := svc.Sync(ctx, ws)
	require.NoError(t, err)

	orphan := domain.RenderExport("deadbeef", []domain.Pin{{Name: "qradar-sdk", Version: "1.0.0"}})
	require.NoError(t, os.WriteFile(filepath.Join(ws.Root, "requirements-old.txt"), []byte(orphan), 0o644))

	report, err := svc.Check(ctx, ws, false)
	require.NoError(t, err, "orphans alone must not fail the gate")
	require.Len(t, report.Orphans(), 1)
	assert.Equal(t, "requirements-old.txt", report.Orphans()[0].File)
	assert.False(t, report.Clean())
}

func TestSyncService_CIGateWantsExportsCommitted(t *testing.T) {
	ws := syncFixture(t, syncedManifest)
	repo, err := git.PlainInit(ws.Root, false)
	require.NoError(t, err)
	commitWorkspace(t, repo, "manifest and lock")

	svc, _, _ := newSyncService(t, ws)
	ctx := context.Background()

	_, err = svc.Sync(ctx, ws)
	require.NoError(t, err)

	// Content matches, so the plain check passes.
	_, err = svc.Check(ctx, ws, false)
	require.NoError(t, err)

	// CI also wants the regenerated exports committed.
	_, err = svc.Check(ctx, ws, true)
	assert.ErrorIs(t, err, domain.ErrOutOfSync)

	commitWorkspace(t, repo, "exports")
	_, err = svc.Check(ctx, ws, true)
	require.NoError(t, err)
}

func TestSyncService_PlanFailsWithoutManifest(t *testing.T) {
	ws, err := application.NewWorkspace(t.TempDir(), domain.DefaultWorkspaceConfig("empty"))
	require.NoError(t, err)
	svc := application.NewSyncService(pyproject.New(), reqstore.New(), gitinfo.New(), nil, nil)

	_, err = svc.Plan(ws)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading manifest")
}
