package settingsstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"github.com/detectiq/workbench/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store persists the non-secret settings document as settings.json, the same
// layout the platform reads. Secret fields are expected to be blanked by the
// caller before Save.
type Store struct{}

// New creates a Store.
func New() *Store { return &Store{} }

// Load reads settings from path. ok is false when no file exists yet.
func (s *Store) Load(path string) (domain.Settings, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Settings{}, false, nil
	}
	if err != nil {
		return domain.Settings{}, false, fmt.Errorf("reading settings: %w", err)
	}

	var out domain.Settings
	if err := json.Unmarshal(data, &out); err != nil {
		return domain.Settings{}, false, fmt.Errorf("parsing %s: %w", path, err)
	}
	return out, true, nil
}

// Save writes settings to path, creating parent directories when needed.
func (s *Store) Save(path string, settings domain.Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}
