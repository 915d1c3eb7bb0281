package application

import (
	"path"
	"path/filepath"

	"github.com/detectiq/workbench/internal/domain"
)

// Workspace binds a resolved root directory to its loaded configuration.
// Services take it by value; the CLI and server build it once per invocation.
type Workspace struct {
	Root   string
	Config domain.WorkspaceConfig
}

// NewWorkspace normalizes the root and applies config defaults.
func NewWorkspace(root string, cfg domain.WorkspaceConfig) (Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Workspace{}, err
	}
	return Workspace{Root: abs, Config: cfg.Normalized()}, nil
}

func (w Workspace) ManifestPath() string { return w.Config.ManifestPath(w.Root) }

func (w Workspace) LockPath() string { return w.Config.LockPath(w.Root) }

func (w Workspace) RequirementsDir() string { return w.Config.RequirementsPath(w.Root) }

func (w Workspace) SettingsPath() string { return w.Config.SettingsPath(w.Root) }

func (w Workspace) HistoryPath() string { return w.Config.HistoryPath(w.Root) }

// GatePrefixes lists the workspace-relative paths the CI gate inspects for
// dirty state: the manifest, the lock, and the managed requirement exports.
func (w Workspace) GatePrefixes() []string {
	prefixes := []string{
		filepath.ToSlash(w.Config.Manifest),
		filepath.ToSlash(w.Config.Lock),
	}
	dir := filepath.ToSlash(w.Config.RequirementsDir)
	if dir == "" || dir == "." {
		prefixes = append(prefixes, "requirements")
	} else {
		prefixes = append(prefixes, path.Join(dir, "requirements"))
	}
	return prefixes
}
