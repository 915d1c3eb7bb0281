package domain_test

import (
	"path/filepath"
	"testing"

	"github.com/detectiq/workbench/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestWorkspaceConfig_Normalized(t *testing.T) {
	cfg := domain.WorkspaceConfig{}.Normalized()

	assert.Equal(t, "pyproject.toml", cfg.Manifest)
	assert.Equal(t, "poetry.lock", cfg.Lock)
	assert.Equal(t, ".", cfg.RequirementsDir)
	assert.Equal(t, ".detectiq/settings.json", cfg.SettingsFile)
	assert.Equal(t, ".detectiq/history.db", cfg.HistoryDB)
	assert.Equal(t, "127.0.0.1:8000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
}

func TestWorkspaceConfig_NormalizedKeepsOverrides(t *testing.T) {
	cfg := domain.WorkspaceConfig{
		Manifest:        "backend/pyproject.toml",
		RequirementsDir: "requirements",
		Server:          domain.ServerConfig{Addr: "0.0.0.0:9000"},
	}.Normalized()

	assert.Equal(t, "backend/pyproject.toml", cfg.Manifest)
	assert.Equal(t, "requirements", cfg.RequirementsDir)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	// Untouched fields still get defaults.
	assert.Equal(t, "poetry.lock", cfg.Lock)
}

func TestWorkspaceConfig_Validate(t *testing.T) {
	assert.NoError(t, domain.WorkspaceConfig{}.Validate())
	assert.NoError(t, domain.WorkspaceConfig{}.Normalized().Validate())

	bad := domain.WorkspaceConfig{Manifest: "/etc/pyproject.toml"}
	assert.ErrorContains(t, bad.Validate(), "must be a relative path")

	bad = domain.WorkspaceConfig{Lock: "../poetry.lock"}
	assert.ErrorContains(t, bad.Validate(), "must be a relative path")

	bad = domain.WorkspaceConfig{Server: domain.ServerConfig{Addr: "8000"}}
	assert.ErrorContains(t, bad.Validate(), "must be host:port")
}

func TestWorkspaceConfig_Paths(t *testing.T) {
	cfg := domain.WorkspaceConfig{RequirementsDir: "requirements"}

	assert.Equal(t, filepath.Join("/ws", "pyproject.toml"), cfg.ManifestPath("/ws"))
	assert.Equal(t, filepath.Join("/ws", "poetry.lock"), cfg.LockPath("/ws"))
	assert.Equal(t, filepath.Join("/ws", "requirements"), cfg.RequirementsPath("/ws"))
	assert.Equal(t, filepath.Join("/ws", ".detectiq", "settings.json"), cfg.SettingsPath("/ws"))
	assert.Equal(t, filepath.Join("/ws", ".detectiq", "history.db"), cfg.HistoryPath("/ws"))
}
