package application

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/detectiq/workbench/internal/domain"
	"github.com/detectiq/workbench/internal/logging"
)

// StatusService assembles the workspace overview behind detectiq status and
// the admin API's sync-status endpoint.
type StatusService struct {
	sync     *SyncService
	settings *SettingsService
	rulesets *RulesetService
	git      domain.GitInspector
	log      *logrus.Entry
}

// NewStatusService creates a StatusService.
func NewStatusService(
	sync *SyncService,
	settings *SettingsService,
	rulesets *RulesetService,
	git domain.GitInspector,
) *StatusService {
	return &StatusService{
		sync:     sync,
		settings: settings,
		rulesets: rulesets,
		git:      git,
		log:      logging.Component("status"),
	}
}

// Status gathers requirements drift, git state, rule packs, vector stores
// and integration state into one report.
func (s *StatusService) Status(ctx context.Context, ws Workspace) (*domain.WorkspaceStatus, error) {
	// 1. Settings drive the scan directories, so failure here is fatal.
	cfg, err := s.settings.Load(ws)
	if err != nil {
		return nil, err
	}

	status := &domain.WorkspaceStatus{
		Project:             ws.Config.Project,
		Root:                ws.Root,
		Model:               cfg.Model,
		EnabledIntegrations: enabledIntegrations(cfg.Integrations),
	}

	// 2. Requirements drift. A broken manifest must not hide the rest of
	// the overview, so the error rides along instead of aborting.
	report, err := s.sync.Plan(ws)
	if err != nil {
		status.SyncError = err.Error()
		s.log.WithError(err).Debug("sync plan failed")
	} else {
		status.Sync = report
	}

	// 3. Git state feeds the header and previews the CI gate.
	if s.git != nil && s.git.IsRepo(ws.Root) {
		if head, err := s.git.ShortHead(ws.Root); err == nil {
			status.GitHead = head
		}
		if dirty, err := s.git.DirtyPaths(ws.Root, ws.GatePrefixes()...); err == nil {
			status.DirtyExports = dirty
		}
	}

	// 4. Rule packs and vector stores.
	rulesets, err := s.rulesets.ScanAll(ctx, ws, cfg)
	if err != nil {
		return nil, err
	}
	status.Rulesets = rulesets

	stores, err := s.rulesets.StoreStatuses(cfg)
	if err != nil {
		return nil, err
	}
	status.VectorStores = stores

	return status, nil
}

func enabledIntegrations(in domain.IntegrationSettings) []string {
	var names []string
	if in.Splunk.Enabled {
		names = append(names, "splunk")
	}
	if in.Elastic.Enabled {
		names = append(names, "elastic")
	}
	if in.MicrosoftXDR.Enabled {
		names = append(names, "microsoft_xdr")
	}
	return names
}
