package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/detectiq/workbench/internal/domain"
	"github.com/detectiq/workbench/internal/logging"
)

// SyncService owns the manifest-to-requirements pipeline: plan, sync, and the
// CI drift gate. History and notifier are optional; a nil value disables that
// side channel.
type SyncService struct {
	loader   domain.ManifestLoader
	store    domain.RequirementsStore
	git      domain.GitInspector
	history  domain.HistoryStore
	notifier domain.Notifier
	log      *logrus.Entry
}

func NewSyncService(
	loader domain.ManifestLoader,
	store domain.RequirementsStore,
	git domain.GitInspector,
	history domain.HistoryStore,
	notifier domain.Notifier,
) *SyncService {
	return &SyncService{
		loader:   loader,
		store:    store,
		git:      git,
		history:  history,
		notifier: notifier,
		log:      logging.Component("sync"),
	}
}

// planResult pairs the public report with the rendered content sync would
// write.
type planResult struct {
	report   *domain.SyncReport
	contents map[string]string
	existed  map[string]bool
}

// Plan loads the manifest and lock, renders every export target and compares
// with disk. Read-only; lock violations land in the report instead of failing.
func (s *SyncService) Plan(ws Workspace) (*domain.SyncReport, error) {
	result, err := s.plan(ws)
	if err != nil {
		return nil, err
	}
	return result.report, nil
}

// RenderTarget returns the requirements content sync would write for one
// export file, without touching disk.
func (s *SyncService) RenderTarget(ws Workspace, file string) (string, error) {
	result, err := s.plan(ws)
	if err != nil {
		return "", err
	}
	content, ok := result.contents[file]
	if !ok {
		return "", fmt.Errorf("unknown export target %q", file)
	}
	return content, nil
}

func (s *SyncService) plan(ws Workspace) (*planResult, error) {
	// 1. Load both sides of the contract
	manifest, err := s.loader.LoadManifest(ws.ManifestPath())
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	lock, err := s.loader.LoadLockfile(ws.LockPath())
	if err != nil {
		return nil, fmt.Errorf("loading lock: %w", err)
	}
	fingerprint, err := s.loader.Fingerprint(ws.ManifestPath(), ws.LockPath())
	if err != nil {
		return nil, fmt.Errorf("fingerprinting: %w", err)
	}

	report := &domain.SyncReport{Fingerprint: fingerprint}
	result := &planResult{
		report:   report,
		contents: map[string]string{},
		existed:  map[string]bool{},
	}

	// 2. Manifest/lock coherence
	var stale *domain.LockStaleError
	if err := lock.Verify(manifest); errors.As(err, &stale) {
		report.LockIssues = append(report.LockIssues, stale.Violations...)
	}

	// 3. Render each target and classify against disk
	targets, err := domain.ExportTargets(manifest)
	if err != nil {
		return nil, err
	}
	reqDir := ws.RequirementsDir()
	known := map[string]bool{}
	for _, target := range targets {
		known[target.File] = true

		pins, err := lock.Resolve(target.Roots)
		if err != nil {
			report.LockIssues = append(report.LockIssues, err.Error())
			continue
		}
		content := domain.RenderExport(fingerprint, pins)
		result.contents[target.File] = content

		existing, exists, err := s.store.Read(reqDir, target.File)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", target.File, err)
		}
		result.existed[target.File] = exists

		file := domain.FileResult{File: target.File, Label: target.Label, Pins: len(pins)}
		switch {
		case !exists:
			file.Status = domain.FileDrifted
		case existing == content:
			file.Status = domain.FileUnchanged
		default:
			file.Status = domain.FileDrifted
			file.Diff = s.store.Diff(content, existing)
		}
		report.Files = append(report.Files, file)
	}

	// 4. Managed files that no longer map to a target
	managed, err := s.store.ListManaged(reqDir)
	if err != nil {
		return nil, fmt.Errorf("listing managed exports: %w", err)
	}
	for _, file := range managed {
		if !known[file] {
			report.Files = append(report.Files, domain.FileResult{File: file, Status: domain.FileOrphaned})
		}
	}

	return result, nil
}

// Sync regenerates every drifted or missing export. A stale lock blocks all
// writes and is returned as an ErrLockStale error.
func (s *SyncService) Sync(ctx context.Context, ws Workspace) (*domain.SyncReport, error) {
	run := s.startRun(ctx, "sync")

	result, err := s.plan(ws)
	if err != nil {
		s.failRun(ctx, run, err)
		return nil, err
	}
	report := result.report

	if len(report.LockIssues) > 0 {
		err := &domain.LockStaleError{Violations: report.LockIssues}
		s.finishRun(ctx, run, domain.RunFailed, err.Error())
		s.notify(ctx, run.ID, domain.SeverityError, "Lock out of date", firstLine(report.LockIssues))
		return report, err
	}

	reqDir := ws.RequirementsDir()
	written := 0
	for i, file := range report.Files {
		if file.Status != domain.FileDrifted {
			continue
		}
		if err := s.store.Write(reqDir, file.File, result.contents[file.File]); err != nil {
			wrapped := fmt.Errorf("writing %s: %w", file.File, err)
			s.failRun(ctx, run, wrapped)
			return nil, wrapped
		}
		if result.existed[file.File] {
			report.Files[i].Status = domain.FileUpdated
		} else {
			report.Files[i].Status = domain.FileCreated
		}
		report.Files[i].Diff = ""
		written++
		s.log.WithField("file", file.File).Info("export written")
	}

	detail := fmt.Sprintf("%d files written", written)
	if written == 0 {
		detail = "already in sync"
	}
	s.finishRun(ctx, run, domain.RunOK, detail)
	s.notify(ctx, run.ID, domain.SeverityInfo, "Requirements synced", detail)
	return report, nil
}

// Check is the drift gate: plan only, fail on any difference. In CI mode the
// porcelain state of the managed paths is consulted as well, so a regenerated
// but uncommitted export still fails.
func (s *SyncService) Check(ctx context.Context, ws Workspace, ci bool) (*domain.SyncReport, error) {
	command := "check"
	if ci {
		command = "ci"
	}
	run := s.startRun(ctx, command)

	result, err := s.plan(ws)
	if err != nil {
		s.failRun(ctx, run, err)
		return nil, err
	}
	report := result.report

	if len(report.LockIssues) > 0 {
		err := &domain.LockStaleError{Violations: report.LockIssues}
		s.finishRun(ctx, run, domain.RunFailed, err.Error())
		s.notify(ctx, run.ID, domain.SeverityError, "Lock out of date", firstLine(report.LockIssues))
		return report, err
	}

	drifted := report.Drifted()
	dirty := s.dirtyGatePaths(ws, ci)

	if len(drifted) == 0 && len(dirty) == 0 {
		s.finishRun(ctx, run, domain.RunOK, "requirements in sync")
		return report, nil
	}

	detail := describeDrift(drifted, dirty)
	s.finishRun(ctx, run, domain.RunDrift, detail)
	s.notify(ctx, run.ID, domain.SeverityWarning, "Requirements drift", detail)
	return report, domain.ErrOutOfSync
}

// dirtyGatePaths returns uncommitted managed paths in CI mode. Outside a git
// repository the gate degrades to content comparison alone.
func (s *SyncService) dirtyGatePaths(ws Workspace, ci bool) []string {
	if !ci || s.git == nil || !s.git.IsRepo(ws.Root) {
		return nil
	}
	dirty, err := s.git.DirtyPaths(ws.Root, ws.GatePrefixes()...)
	if err != nil {
		s.log.WithError(err).Warn("porcelain gate unavailable")
		return nil
	}
	return dirty
}

func describeDrift(drifted []domain.FileResult, dirty []string) string {
	switch {
	case len(drifted) > 0 && len(dirty) > 0:
		return fmt.Sprintf("%d files drifted, %d uncommitted", len(drifted), len(dirty))
	case len(drifted) > 0:
		return fmt.Sprintf("%d files drifted", len(drifted))
	default:
		return fmt.Sprintf("%d uncommitted managed files", len(dirty))
	}
}

func firstLine(violations []string) string {
	if len(violations) == 0 {
		return ""
	}
	if len(violations) == 1 {
		return violations[0]
	}
	return fmt.Sprintf("%s (and %d more)", violations[0], len(violations)-1)
}

func (s *SyncService) startRun(ctx context.Context, command string) domain.Run {
	run := domain.Run{
		ID:        domain.NewRunID(),
		Command:   command,
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

func (s *SyncService) finishRun(ctx context.Context, run domain.Run, status domain.RunStatus, detail string) {
	if s.history == nil {
		return
	}
	if err := s.history.FinishRun(ctx, run.ID, status, detail, time.Now().UTC()); err != nil {
		s.log.WithError(err).Warn("finishing run")
	}
}

func (s *SyncService) failRun(ctx context.Context, run domain.Run, cause error) {
	s.finishRun(ctx, run, domain.RunFailed, cause.Error())
	s.notify(ctx, run.ID, domain.SeverityError, "Sync failed", cause.Error())
}

func (s *SyncService) notify(ctx context.Context, runID string, severity domain.Severity, title, message string) {
	n := domain.NewNotification(severity, title, message)
	n.Source = "sync"
	if s.notifier != nil {
		n = s.notifier.Publish(n)
	}
	if s.history != nil {
		if err := s.history.RecordNotification(ctx, runID, n); err != nil {
			s.log.WithError(err).Warn("recording notification")
		}
	}
}
