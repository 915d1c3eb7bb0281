package reqstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/detectiq/workbench/internal/domain"
)

// Store implements domain.RequirementsStore on the local filesystem.
type Store struct{}

// New creates a Store.
func New() *Store { return &Store{} }

// Read returns the current content of one export file. A missing file is not
// an error; exists reports it.
func (s *Store) Read(dir, file string) (string, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, file))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", file, err)
	}
	return string(data), true, nil
}

// Write stores one export file, creating the directory when needed.
func (s *Store) Write(dir, file, content string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", file, err)
	}
	return nil
}

// ListManaged returns requirement files in dir that carry the generated
// header, sorted by name. Hand-written requirement files are excluded.
func (s *Store) ListManaged(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var managed []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "requirements") || !strings.HasSuffix(name, ".txt") {
			continue
		}
		content, _, err := s.Read(dir, name)
		if err != nil {
			return nil, err
		}
		if domain.IsManagedExport(content) {
			managed = append(managed, name)
		}
	}
	sort.Strings(managed)
	return managed, nil
}

// Diff renders a line diff between the rendered export (want) and the on-disk
// content (got). Only changed lines appear, prefixed with + and -.
func (s *Store) Diff(want, got string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(got, want)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		default:
			continue
		}
		for _, line := range splitLines(d.Text) {
			out.WriteString(prefix)
			out.WriteString(line)
			out.WriteByte('\n')
		}
	}
	return out.String()
}

func splitLines(text string) []string {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	return lines
}
