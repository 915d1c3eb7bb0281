package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Default workspace file locations, relative to the workspace root.
const (
	DefaultManifestFile   = "pyproject.toml"
	DefaultLockFile       = "poetry.lock"
	DefaultSettingsFile   = ".detectiq/settings.json"
	DefaultHistoryDB      = ".detectiq/history.db"
	DefaultServerAddr     = "127.0.0.1:8000"
	DefaultFrontendOrigin = "http://localhost:3000"
	WorkspaceConfigFile   = ".detectiq.yaml"
)

// WorkspaceConfig holds workspace-level configuration loaded from
// .detectiq.yaml. Zero values fall back to the defaults above.
type WorkspaceConfig struct {
	Project         string       `yaml:"project"          json:"project,omitempty"`
	Manifest        string       `yaml:"manifest"         json:"manifest,omitempty"`
	Lock            string       `yaml:"lock"             json:"lock,omitempty"`
	RequirementsDir string       `yaml:"requirements_dir" json:"requirements_dir,omitempty"`
	SettingsFile    string       `yaml:"settings_file"    json:"settings_file,omitempty"`
	HistoryDB       string       `yaml:"history_db"       json:"history_db,omitempty"`
	ExcludeRules    []string     `yaml:"exclude_rules"    json:"exclude_rules,omitempty"`
	Server          ServerConfig `yaml:"server"           json:"server,omitempty"`
}

// ServerConfig configures the local admin API server.
type ServerConfig struct {
	Addr        string   `yaml:"addr"         json:"addr,omitempty"`
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins,omitempty"`
}

// DefaultWorkspaceConfig returns the configuration detectiq init writes.
func DefaultWorkspaceConfig(project string) WorkspaceConfig {
	cfg := WorkspaceConfig{Project: project}
	return cfg.Normalized()
}

// Normalized returns a copy with every unset field replaced by its default.
func (c WorkspaceConfig) Normalized() WorkspaceConfig {
	if c.Manifest == "" {
		c.Manifest = DefaultManifestFile
	}
	if c.Lock == "" {
		c.Lock = DefaultLockFile
	}
	if c.RequirementsDir == "" {
		c.RequirementsDir = "."
	}
	if c.SettingsFile == "" {
		c.SettingsFile = DefaultSettingsFile
	}
	if c.HistoryDB == "" {
		c.HistoryDB = DefaultHistoryDB
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{DefaultFrontendOrigin}
	}
	return c
}

// Validate checks the config for values the workbench cannot act on.
func (c WorkspaceConfig) Validate() error {
	// 1. file locations must stay inside the workspace
	for name, path := range map[string]string{
		"manifest":         c.Manifest,
		"lock":             c.Lock,
		"requirements_dir": c.RequirementsDir,
		"settings_file":    c.SettingsFile,
		"history_db":       c.HistoryDB,
	} {
		if path == "" {
			continue
		}
		if filepath.IsAbs(path) || strings.HasPrefix(path, "..") {
			return fmt.Errorf("%s %q must be a relative path inside the workspace", name, path)
		}
	}

	// 2. server address must be host:port when set
	if c.Server.Addr != "" && !strings.Contains(c.Server.Addr, ":") {
		return fmt.Errorf("server.addr %q must be host:port", c.Server.Addr)
	}
	return nil
}

// ManifestPath resolves the manifest location against the workspace root.
func (c WorkspaceConfig) ManifestPath(root string) string {
	return filepath.Join(root, firstNonEmpty(c.Manifest, DefaultManifestFile))
}

// LockPath resolves the lockfile location against the workspace root.
func (c WorkspaceConfig) LockPath(root string) string {
	return filepath.Join(root, firstNonEmpty(c.Lock, DefaultLockFile))
}

// RequirementsPath resolves the export directory against the workspace root.
func (c WorkspaceConfig) RequirementsPath(root string) string {
	return filepath.Join(root, firstNonEmpty(c.RequirementsDir, "."))
}

// SettingsPath resolves the settings file against the workspace root.
func (c WorkspaceConfig) SettingsPath(root string) string {
	return filepath.Join(root, firstNonEmpty(c.SettingsFile, DefaultSettingsFile))
}

// HistoryPath resolves the history database against the workspace root.
func (c WorkspaceConfig) HistoryPath(root string) string {
	return filepath.Join(root, firstNonEmpty(c.HistoryDB, DefaultHistoryDB))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
