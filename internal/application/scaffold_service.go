package application

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/detectiq/workbench/internal/domain"
	"github.com/detectiq/workbench/internal/logging"
)

// ConfigWriter persists the workspace configuration file. The yaml loader
// adapter satisfies it.
type ConfigWriter interface {
	Save(root string, cfg domain.WorkspaceConfig) error
}

// ScaffoldAction records one path the scaffolder visited and whether it
// wrote it. Written is false when an existing file was kept.
type ScaffoldAction struct {
	Path    string
	Written bool
}

// ScaffoldService generates the workspace starter files: the config file,
// the editor launch config, the environment template and the CI gate
// workflow.
type ScaffoldService struct {
	configs ConfigWriter
	history domain.HistoryStore
	log     *logrus.Entry
}

// NewScaffoldService creates a ScaffoldService. history may be nil.
func NewScaffoldService(configs ConfigWriter, history domain.HistoryStore) *ScaffoldService {
	return &ScaffoldService{
		configs: configs,
		history: history,
		log:     logging.Component("scaffold"),
	}
}

// Init scaffolds a workspace at root. Existing files are kept unless force
// is set; every visited path is reported either way.
func (s *ScaffoldService) Init(ctx context.Context, root string, cfg domain.WorkspaceConfig, force bool) ([]ScaffoldAction, error) {
	run := s.startRun(ctx)
	actions, err := s.scaffold(root, cfg, force)
	if err != nil {
		s.finishRun(ctx, run, domain.RunFailed, err.Error())
		return actions, err
	}

	var written int
	for _, a := range actions {
		if a.Written {
			written++
		}
	}
	s.finishRun(ctx, run, domain.RunOK, fmt.Sprintf("%d files created", written))
	return actions, nil
}

func (s *ScaffoldService) scaffold(root string, cfg domain.WorkspaceConfig, force bool) ([]ScaffoldAction, error) {
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var actions []ScaffoldAction

	// 1. Workspace config.
	cfgPath := filepath.Join(root, domain.WorkspaceConfigFile)
	if force || !fileExists(cfgPath) {
		if err := s.configs.Save(root, cfg); err != nil {
			return actions, fmt.Errorf("writing %s: %w", domain.WorkspaceConfigFile, err)
		}
		actions = append(actions, ScaffoldAction{Path: domain.WorkspaceConfigFile, Written: true})
	} else {
		actions = append(actions, ScaffoldAction{Path: domain.WorkspaceConfigFile})
	}

	// 2. Editor launch config.
	launch, err := domain.RenderLaunchJSON(domain.LaunchSpec{})
	if err != nil {
		return actions, err
	}
	action, err := s.writeScaffold(root, filepath.Join(".vscode", "launch.json"), launch, force)
	if err != nil {
		return actions, err
	}
	actions = append(actions, action)

	// 3. Environment template, derived from the override registry so it
	// never drifts from what the workbench actually reads.
	action, err = s.writeScaffold(root, ".env.example", renderEnvExample(), force)
	if err != nil {
		return actions, err
	}
	actions = append(actions, action)

	// 4. CI gate workflow.
	workflow := renderSyncWorkflow(cfg)
	action, err = s.writeScaffold(root, filepath.Join(".github", "workflows", "requirements-sync.yml"), workflow, force)
	if err != nil {
		return actions, err
	}
	actions = append(actions, action)

	for _, a := range actions {
		s.log.WithFields(logrus.Fields{"path": a.Path, "written": a.Written}).Debug("scaffold")
	}
	return actions, nil
}

func (s *ScaffoldService) startRun(ctx context.Context) domain.Run {
	run := domain.Run{
		ID:        domain.NewRunID(),
		Command:   "init",
		Status:    domain.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if s.history != nil {
		if err := s.history.RecordRun(ctx, run); err != nil {
			s.log.WithError(err).Warn("recording run")
		}
	}
	return run
}

func (s *ScaffoldService) finishRun(ctx context.Context, run domain.Run, status domain.RunStatus, detail string) {
	if s.history == nil {
		return
	}
	if err := s.history.FinishRun(ctx, run.ID, status, detail, time.Now().UTC()); err != nil {
		s.log.WithError(err).Warn("finishing run")
	}
}

func (s *ScaffoldService) writeScaffold(root, rel, content string, force bool) (ScaffoldAction, error) {
	dest := filepath.Join(root, rel)
	if !force && fileExists(dest) {
		return ScaffoldAction{Path: rel}, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return ScaffoldAction{}, fmt.Errorf("creating directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
		return ScaffoldAction{}, fmt.Errorf("writing %s: %w", rel, err)
	}
	return ScaffoldAction{Path: rel, Written: true}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func renderEnvExample() string {
	var b strings.Builder
	b.WriteString("# DetectIQ environment overrides.\n")
	b.WriteString("# Copy to .env and fill in what you use. Values in settings.json and\n")
	b.WriteString("# the system keyring take precedence over the environment.\n")

	group := ""
	for _, binding := range domain.EnvBindings() {
		if g := envGroup(binding.Key); g != group {
			b.WriteString("\n")
			group = g
		}
		b.WriteString(binding.Key)
		b.WriteString("=\n")
	}
	return b.String()
}

func envGroup(key string) string {
	for _, name := range domain.IntegrationNames {
		if strings.HasPrefix(key, "DETECTIQ_"+strings.ToUpper(name)+"_") {
			return name
		}
	}
	return "global"
}

const syncWorkflowTemplate = `name: requirements-sync

on:
  push:
    paths:
%[1]s
  pull_request:
    paths:
%[1]s

jobs:
  check:
    name: Verify requirement exports
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - uses: actions/setup-go@v5
        with:
          go-version: stable
      - name: Install detectiq
        run: go install github.com/detectiq/workbench/cmd/detectiq@latest
      - name: Check requirement exports against poetry.lock
        run: detectiq sync --ci
`

func renderSyncWorkflow(cfg domain.WorkspaceConfig) string {
	globs := []string{
		filepath.ToSlash(cfg.Manifest),
		filepath.ToSlash(cfg.Lock),
	}
	dir := filepath.ToSlash(cfg.RequirementsDir)
	if dir == "" || dir == "." {
		globs = append(globs, "requirements*")
	} else {
		globs = append(globs, path.Join(dir, "requirements*"))
	}

	lines := make([]string, 0, len(globs))
	for _, g := range globs {
		lines = append(lines, fmt.Sprintf("      - '%s'", g))
	}
	return fmt.Sprintf(syncWorkflowTemplate, strings.Join(lines, "\n"))
}
