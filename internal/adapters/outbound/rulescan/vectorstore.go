package rulescan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	homedir "github.com/mitchellh/go-homedir"

	"github.com/detectiq/workbench/internal/domain"
)

// Artifact names written by the embedding pipeline. A store directory with
// both index files is ready to serve similarity queries.
const (
	indexFile    = "index.faiss"
	docstoreFile = "index.pkl"
	stampFile    = "store.json"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Stores inspects and stamps vector store directories on disk. It implements
// domain.VectorStoreManager.
type Stores struct{}

// NewStores creates a Stores manager.
func NewStores() *Stores { return &Stores{} }

// Status reports whether a store directory holds a usable index, a pending
// build stamp, or nothing at all.
func (s *Stores) Status(kind domain.RuleKind, dir string) (*domain.VectorStoreReport, error) {
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("expanding %s: %w", dir, err)
	}
	report := &domain.VectorStoreReport{Kind: kind, Path: expanded}

	if _, err := os.Stat(expanded); errors.Is(err, os.ErrNotExist) {
		report.Status = domain.StoreMissing
		return report, nil
	} else if err != nil {
		return nil, fmt.Errorf("stat %s: %w", expanded, err)
	}

	if fileExists(filepath.Join(expanded, indexFile)) && fileExists(filepath.Join(expanded, docstoreFile)) {
		report.Status = domain.StoreReady
		return report, nil
	}
	report.Status = domain.StorePending
	return report, nil
}

// Create requests a store build by stamping the directory. An already ready
// store is left alone; otherwise the directory is created if needed and a
// pending stamp written for the embedding pipeline to pick up.
func (s *Stores) Create(kind domain.RuleKind, dir string) (*domain.VectorStoreReport, error) {
	report, err := s.Status(kind, dir)
	if err != nil {
		return nil, err
	}
	if report.Status == domain.StoreReady {
		return report, nil
	}

	if err := os.MkdirAll(report.Path, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", report.Path, err)
	}
	stamp := domain.StoreStamp{
		RuleType:    string(kind),
		RequestedAt: time.Now().UTC(),
		Status:      string(domain.StorePending),
	}
	data, err := json.MarshalIndent(stamp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding store stamp: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(report.Path, stampFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("writing store stamp: %w", err)
	}
	report.Status = domain.StorePending
	return report, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
