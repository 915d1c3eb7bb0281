package domain

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// ManifestLoader loads the Poetry manifest and lockfile from a workspace.
type ManifestLoader interface {
	LoadManifest(path string) (*Manifest, error)
	LoadLockfile(path string) (*Lockfile, error)
	// Fingerprint hashes the manifest and lock bytes for the export stamp.
	Fingerprint(manifestPath, lockPath string) (string, error)
}

// RequirementsStore reads and writes generated requirement exports.
type RequirementsStore interface {
	Read(dir, file string) (content string, exists bool, err error)
	Write(dir, file, content string) error
	// ListManaged returns requirement files on disk that carry the
	// generated header, for orphan detection.
	ListManaged(dir string) ([]string, error)
	// Diff renders a line diff between want and got for drift reporting.
	Diff(want, got string) string
}

// SettingsStore persists the non-secret settings document.
type SettingsStore interface {
	// Load returns ok=false when no settings file exists yet.
	Load(path string) (Settings, bool, error)
	Save(path string, s Settings) error
}

// ErrSecretNotFound reports a secret absent from the secret store.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore holds sensitive fields outside the settings file.
type SecretStore interface {
	Get(ref SecretRef) (string, error)
	Set(ref SecretRef, value string) error
	Delete(ref SecretRef) error
}

// ErrNotARepository reports a workspace outside git; the CI gate then relies
// on content comparison alone.
var ErrNotARepository = errors.New("not a git repository")

// GitInspector reports repository state for the CI gate.
type GitInspector interface {
	IsRepo(path string) bool
	ShortHead(path string) (string, error)
	// DirtyPaths lists modified or untracked paths, optionally filtered to
	// the given relative prefixes.
	DirtyPaths(path string, prefixes ...string) ([]string, error)
}

// RuleScanner walks one configured rule directory.
type RuleScanner interface {
	Scan(ctx context.Context, kind RuleKind, dir string, exclude []string) (*RulesetReport, error)
}

// VectorStoreManager inspects and scaffolds vector store directories.
type VectorStoreManager interface {
	Status(kind RuleKind, dir string) (*VectorStoreReport, error)
	Create(kind RuleKind, dir string) (*VectorStoreReport, error)
}

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunOK      RunStatus = "ok"
	RunDrift   RunStatus = "drift"
	RunFailed  RunStatus = "failed"
)

// NewRunID returns a lexically sortable run id, so recent-run listings order
// the same way by id and by start time.
func NewRunID() string {
	return ulid.Make().String()
}

// Run is one recorded workbench invocation.
type Run struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	Status     RunStatus `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// HistoryStore records run and notification history.
type HistoryStore interface {
	RecordRun(ctx context.Context, run Run) error
	FinishRun(ctx context.Context, id string, status RunStatus, detail string, finishedAt time.Time) error
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
	RecordNotification(ctx context.Context, runID string, n Notification) error
	Close() error
}

// Notifier publishes workbench notifications. Publish fills in the id and
// timestamp when the caller left them empty and returns the stored value.
type Notifier interface {
	Publish(n Notification) Notification
	Dismiss(id string, reason CloseReason) bool
}

// IntegrationTestResult is the outcome of one connectivity probe.
type IntegrationTestResult struct {
	Integration string `json:"integration"`
	Endpoint    string `json:"endpoint,omitempty"`
	LatencyMS   int64  `json:"latency_ms"`
	Detail      string `json:"detail,omitempty"`
}

// Integration is a configured SIEM connection that can be probed.
type Integration interface {
	Name() string
	// Configured reports why the integration cannot be probed, nil when ready.
	Configured() error
	TestConnection(ctx context.Context) (*IntegrationTestResult, error)
}
