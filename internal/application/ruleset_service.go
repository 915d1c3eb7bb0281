package application

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/detectiq/workbench/internal/domain"
	"github.com/detectiq/workbench/internal/logging"
)

// RulesetService inspects the rule packs and vector stores the settings
// point at.
type RulesetService struct {
	scanner domain.RuleScanner
	stores  domain.VectorStoreManager
	log     *logrus.Entry
}

// NewRulesetService creates a RulesetService.
func NewRulesetService(scanner domain.RuleScanner, stores domain.VectorStoreManager) *RulesetService {
	return &RulesetService{
		scanner: scanner,
		stores:  stores,
		log:     logging.Component("rulesets"),
	}
}

// ScanAll walks every configured rule directory concurrently. Reports come
// back in RuleKinds order regardless of completion order.
func (s *RulesetService) ScanAll(ctx context.Context, ws Workspace, cfg domain.Settings) ([]*domain.RulesetReport, error) {
	kinds := domain.RuleKinds()
	reports := make([]*domain.RulesetReport, len(kinds))

	g, ctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			report, err := s.scanner.Scan(ctx, kind, cfg.RuleDirectories[kind], ws.Config.ExcludeRules)
			if err != nil {
				return fmt.Errorf("scanning %s rules: %w", kind, err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// StoreStatuses reports the state of every configured vector store.
func (s *RulesetService) StoreStatuses(cfg domain.Settings) ([]*domain.VectorStoreReport, error) {
	reports := make([]*domain.VectorStoreReport, 0, len(domain.RuleKinds()))
	for _, kind := range domain.RuleKinds() {
		report, err := s.stores.Status(kind, cfg.VectorStoreDirectories[kind])
		if err != nil {
			return nil, fmt.Errorf("checking %s store: %w", kind, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// CreateStore scaffolds the vector store directory for kind. Creating a
// store that is already ready leaves it untouched.
func (s *RulesetService) CreateStore(cfg domain.Settings, kind domain.RuleKind) (*domain.VectorStoreReport, error) {
	dir := cfg.VectorStoreDirectories[kind]
	if dir == "" {
		return nil, fmt.Errorf("no vector store directory configured for %s", kind)
	}
	report, err := s.stores.Create(kind, dir)
	if err != nil {
		return nil, fmt.Errorf("creating %s store: %w", kind, err)
	}
	s.log.WithFields(logrus.Fields{"rule_type": kind, "path": report.Path}).Info("vector store scaffolded")
	return report, nil
}
