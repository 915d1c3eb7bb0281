package application

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"

	"github.com/detectiq/workbench/internal/domain"
	"github.com/detectiq/workbench/internal/logging"
)

// SettingsService resolves workspace settings from their four sources.
// Precedence, highest first: keyring secret, settings.json, environment
// variable, built-in default.
type SettingsService struct {
	store   domain.SettingsStore
	secrets domain.SecretStore
	lookup  domain.EnvLookup
	log     *logrus.Entry
}

// NewSettingsService creates a SettingsService. A nil lookup falls back to
// the process environment.
func NewSettingsService(
	store domain.SettingsStore,
	secrets domain.SecretStore,
	lookup domain.EnvLookup,
) *SettingsService {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &SettingsService{
		store:   store,
		secrets: secrets,
		lookup:  lookup,
		log:     logging.Component("settings"),
	}
}

// Load resolves the effective settings for ws. The first load creates
// settings.json with defaults so the admin UI has a file to edit.
func (s *SettingsService) Load(ws Workspace) (domain.Settings, error) {
	path := ws.SettingsPath()

	// 1. Start from workspace defaults, then apply environment overrides.
	cfg := domain.DefaultSettings(ws.Root)
	if err := cfg.ApplyEnv(s.lookup); err != nil {
		return domain.Settings{}, fmt.Errorf("applying environment: %w", err)
	}

	// 2. Overlay the settings file. A value present in the file wins over
	// the environment; fields the file leaves empty keep the value from
	// step 1.
	stored, ok, err := s.store.Load(path)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("loading settings: %w", err)
	}
	if ok {
		cfg = mergeStored(cfg, stored)
	} else {
		if err := s.store.Save(path, cfg.WithoutSecrets()); err != nil {
			return domain.Settings{}, fmt.Errorf("creating settings file: %w", err)
		}
		s.log.WithField("path", path).Info("settings file created")
	}

	// 3. Keyring secrets beat everything on disk or in the environment.
	for _, ref := range domain.SecretRefs() {
		value, err := s.secrets.Get(ref)
		switch {
		case errors.Is(err, domain.ErrSecretNotFound):
			continue
		case err != nil:
			s.log.WithError(err).WithField("key", ref.Key()).Warn("keyring lookup failed")
			continue
		case value != "":
			cfg.SetSecret(ref, value)
		}
	}

	// 4. Expand ~ in directory values so file access works as-is.
	if err := expandDirectories(&cfg); err != nil {
		return domain.Settings{}, err
	}

	if err := cfg.Validate(); err != nil {
		return domain.Settings{}, fmt.Errorf("settings invalid: %w", err)
	}

	// The resolved log_level drives the shared logger, as it does in the
	// platform backend.
	logging.ApplyLevel(cfg.LogLevel)
	return cfg, nil
}

// Save persists cfg: secrets go to the secret store, everything else to
// settings.json with the secret fields blanked.
func (s *SettingsService) Save(ws Workspace, cfg domain.Settings) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("settings invalid: %w", err)
	}
	for _, ref := range domain.SecretRefs() {
		value := cfg.Secret(ref)
		if value == "" {
			// An empty value means "unchanged", not "delete". Explicit
			// removal goes through the keyring tooling.
			continue
		}
		if err := s.secrets.Set(ref, value); err != nil {
			return fmt.Errorf("storing secret %s: %w", ref.Key(), err)
		}
	}
	if err := s.store.Save(ws.SettingsPath(), cfg.WithoutSecrets()); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	s.log.WithField("path", ws.SettingsPath()).Debug("settings saved")
	return nil
}

// Update applies a partial change set on top of the resolved settings and
// persists the result. Unknown keys are rejected before anything is written.
func (s *SettingsService) Update(ws Workspace, changes map[string]any) (domain.Settings, error) {
	cfg, err := s.Load(ws)
	if err != nil {
		return domain.Settings{}, err
	}
	if err := cfg.Apply(changes); err != nil {
		return domain.Settings{}, err
	}
	if err := s.Save(ws, cfg); err != nil {
		return domain.Settings{}, err
	}
	return cfg, nil
}

// mergeStored overlays the settings file on top of the resolved base. The
// file is the canonical document for fields it carries; empty fields fall
// back, which keeps environment-supplied secrets alive after Save blanked
// them on disk.
func mergeStored(base, stored domain.Settings) domain.Settings {
	merged := stored

	if merged.Model == "" {
		merged.Model = base.Model
	}
	if merged.LogLevel == "" {
		merged.LogLevel = base.LogLevel
	}
	if merged.OpenAIAPIKey == "" {
		merged.OpenAIAPIKey = base.OpenAIAPIKey
	}
	merged.RuleDirectories = mergeDirs(base.RuleDirectories, merged.RuleDirectories)
	merged.VectorStoreDirectories = mergeDirs(base.VectorStoreDirectories, merged.VectorStoreDirectories)

	if merged.Integrations.Splunk.Password == "" {
		merged.Integrations.Splunk.Password = base.Integrations.Splunk.Password
	}
	if merged.Integrations.Elastic.APIKey == "" {
		merged.Integrations.Elastic.APIKey = base.Integrations.Elastic.APIKey
	}
	if merged.Integrations.MicrosoftXDR.ClientSecret == "" {
		merged.Integrations.MicrosoftXDR.ClientSecret = base.Integrations.MicrosoftXDR.ClientSecret
	}
	return merged
}

func mergeDirs(base, over map[domain.RuleKind]string) map[domain.RuleKind]string {
	out := make(map[domain.RuleKind]string, len(base))
	for kind, dir := range base {
		out[kind] = dir
	}
	for kind, dir := range over {
		if dir != "" {
			out[kind] = dir
		}
	}
	return out
}

func expandDirectories(cfg *domain.Settings) error {
	for kind, dir := range cfg.RuleDirectories {
		expanded, err := homedir.Expand(dir)
		if err != nil {
			return fmt.Errorf("expanding rule directory for %s: %w", kind, err)
		}
		cfg.RuleDirectories[kind] = expanded
	}
	for kind, dir := range cfg.VectorStoreDirectories {
		expanded, err := homedir.Expand(dir)
		if err != nil {
			return fmt.Errorf("expanding vector store directory for %s: %w", kind, err)
		}
		cfg.VectorStoreDirectories[kind] = expanded
	}
	return nil
}
