package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/detectiq/workbench/internal/domain"
)

// YAMLLoader reads and writes the workspace's .detectiq.yaml.
type YAMLLoader struct{}

// New creates a YAMLLoader.
func New() *YAMLLoader { return &YAMLLoader{} }

// Load reads .detectiq.yaml from the workspace root. A missing file yields
// the defaults, so every command works in an uninitialized workspace.
func (l *YAMLLoader) Load(root string) (domain.WorkspaceConfig, error) {
	data, err := os.ReadFile(filepath.Join(root, domain.WorkspaceConfigFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.DefaultWorkspaceConfig(filepath.Base(root)), nil
		}
		return domain.WorkspaceConfig{}, err
	}

	var cfg domain.WorkspaceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.WorkspaceConfig{}, fmt.Errorf("parsing %s: %w", domain.WorkspaceConfigFile, err)
	}

	// Validate the raw input before defaulting so typos fail loudly.
	if err := cfg.Validate(); err != nil {
		return domain.WorkspaceConfig{}, fmt.Errorf("invalid %s: %w", domain.WorkspaceConfigFile, err)
	}
	if cfg.Project == "" {
		cfg.Project = filepath.Base(root)
	}

	return cfg.Normalized(), nil
}

// Save writes the config to .detectiq.yaml at the workspace root.
func (l *YAMLLoader) Save(root string, cfg domain.WorkspaceConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid workspace config: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", domain.WorkspaceConfigFile, err)
	}
	return os.WriteFile(filepath.Join(root, domain.WorkspaceConfigFile), data, 0o644)
}
