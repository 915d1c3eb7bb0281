package application_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/detectiq/workbench/internal/adapters/outbound/rulescan"
	"github.com/detectiq/workbench/internal/application"
	"github.com/detectiq/workbench/internal/domain"
)

const sampleSigmaRule = `title: Suspicious Curl Download
id: 2d4c5a8e-1f6b-4e3a-9c7d-0a1b2c3d4e5f
status: experimental
logsource:
  category: process_creation
detection:
  selection:
    Image|endswith: '\curl.exe'
  condition: selection
level: medium
`

const sampleYaraRule = `rule DropperStrings
{
    strings:
        $a = "cmd.exe /c start"
    condition:
        $a
}
`

func rulesetFixture(t *testing.T) (application.Workspace, domain.Settings) {
	t.Helper()
	ws := testWorkspace(t)
	cfg := domain.DefaultSettings(ws.Root)

	sigmaDir := cfg.RuleDirectories[domain.RuleSigma]
	require.NoError(t, os.MkdirAll(sigmaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sigmaDir, "curl.yml"), []byte(sampleSigmaRule), 0o644))

	yaraDir := cfg.RuleDirectories[domain.RuleYara]
	require.NoError(t, os.MkdirAll(yaraDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(yaraDir, "dropper.yar"), []byte(sampleYaraRule), 0o644))

	return ws, cfg
}

func TestRulesetService_ScanAll(t *testing.T) {
	ws, cfg := rulesetFixture(t)
	svc := application.NewRulesetService(rulescan.New(), rulescan.NewStores())

	reports, err := svc.ScanAll(context.Background(), ws, cfg)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	byKind := map[domain.RuleKind]*domain.RulesetReport{}
	for _, r := range reports {
		byKind[r.Kind] = r
	}

	assert.Equal(t, 1, byKind[domain.RuleSigma].Rules)
	assert.Equal(t, 1, byKind[domain.RuleSigma].Files)
	assert.Equal(t, 1, byKind[domain.RuleYara].Rules)
	assert.True(t, byKind[domain.RuleSnort].Missing, "no snort directory was created")

	// Order follows the kind registry, not goroutine completion.
	assert.Equal(t, domain.RuleSigma, reports[0].Kind)
	assert.Equal(t, domain.RuleYara, reports[1].Kind)
	assert.Equal(t, domain.RuleSnort, reports[2].Kind)
}

func TestRulesetService_ScanAllHonorsExcludes(t *testing.T) {
	ws, cfg := rulesetFixture(t)
	ws.Config.ExcludeRules = []string{"deprecated/*"}

	sigmaDir := cfg.RuleDirectories[domain.RuleSigma]
	require.NoError(t, os.MkdirAll(filepath.Join(sigmaDir, "deprecated"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(sigmaDir, "deprecated", "old.yml"), []byte(sampleSigmaRule), 0o644))

	svc := application.NewRulesetService(rulescan.New(), rulescan.NewStores())
	reports, err := svc.ScanAll(context.Background(), ws, cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, reports[0].Files, "excluded rule must not be counted")
}

func TestRulesetService_StoreLifecycle(t *testing.T) {
	_, cfg := rulesetFixture(t)
	svc := application.NewRulesetService(rulescan.New(), rulescan.NewStores())

	statuses, err := svc.StoreStatuses(cfg)
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	for _, s := range statuses {
		assert.Equal(t, domain.StoreMissing, s.Status, string(s.Kind))
	}

	created, err := svc.CreateStore(cfg, domain.RuleSigma)
	require.NoError(t, err)
	assert.Equal(t, domain.StorePending, created.Status)
	assert.DirExists(t, cfg.VectorStoreDirectories[domain.RuleSigma])

	statuses, err = svc.StoreStatuses(cfg)
	require.NoError(t, err)
	byKind := map[domain.RuleKind]domain.VectorStoreStatus{}
	for _, s := range statuses {
		byKind[s.Kind] = s.Status
	}
	assert.Equal(t, domain.StorePending, byKind[domain.RuleSigma])
	assert.Equal(t, domain.StoreMissing, byKind[domain.RuleYara])
}

func TestRulesetService_CreateStoreUnconfiguredKind(t *testing.T) {
	svc := application.NewRulesetService(rulescan.New(), rulescan.NewStores())

	cfg := domain.Settings{VectorStoreDirectories: map[domain.RuleKind]string{}}
	_, err := svc.CreateStore(cfg, domain.RuleSigma)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no vector store directory")
}
