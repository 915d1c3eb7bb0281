package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrOutOfSync is the canonical drift failure. The CI gate prints this message
// verbatim, so the text is part of the contract.
var ErrOutOfSync = errors.New("requirements files are out of sync with pyproject.toml; run 'detectiq sync' and commit the result")

// ExportHeader is the first line of every generated requirements file and is
// how the workbench recognizes files it owns.
const ExportHeader = "# Generated by `detectiq sync` from pyproject.toml. Do not edit by hand."

const fingerprintPrefix = "# manifest-fingerprint: "

// Pin is one resolved line of a requirements export.
type Pin struct {
	Name    string
	Version string
	Markers string
}

// Line renders the pin in pip requirement syntax.
func (p Pin) Line() string {
	if p.Markers != "" {
		return fmt.Sprintf("%s==%s ; %s", p.Name, p.Version, p.Markers)
	}
	return fmt.Sprintf("%s==%s", p.Name, p.Version)
}

// ExportTarget is one requirements file together with the manifest roots whose
// closure it pins.
type ExportTarget struct {
	File  string
	Label string
	Roots []Dependency
}

// ExportTargets derives the full target set from a manifest: the core export,
// a dev export when the dev group exists, and one export per declared extra.
func ExportTargets(m *Manifest) ([]ExportTarget, error) {
	main := m.MainRoots()
	targets := []ExportTarget{{File: "requirements.txt", Label: "core", Roots: main}}

	if dev := m.GroupRoots("dev"); len(dev) > 0 {
		targets = append(targets, ExportTarget{
			File:  "requirements-dev.txt",
			Label: "dev",
			Roots: append(append([]Dependency(nil), main...), dev...),
		})
	}

	for _, extra := range m.ExtraNames() {
		file := fmt.Sprintf("requirements-%s.txt", extra)
		for _, t := range targets {
			if t.File == file {
				return nil, fmt.Errorf("extra %q collides with the %s export", extra, t.Label)
			}
		}
		roots, err := m.ExtraRoots(extra)
		if err != nil {
			return nil, err
		}
		targets = append(targets, ExportTarget{
			File:  file,
			Label: extra,
			Roots: append(append([]Dependency(nil), main...), roots...),
		})
	}
	return targets, nil
}

// RenderExport produces the deterministic file content for a target: header,
// fingerprint stamp, then pins sorted by name. LF endings, trailing newline.
func RenderExport(fingerprint string, pins []Pin) string {
	sorted := append([]Pin(nil), pins...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	b.WriteString(ExportHeader)
	b.WriteByte('\n')
	b.WriteString(fingerprintPrefix)
	b.WriteString(fingerprint)
	b.WriteByte('\n')
	for _, p := range sorted {
		b.WriteString(p.Line())
		b.WriteByte('\n')
	}
	return b.String()
}

// IsManagedExport reports whether file content carries the generated header.
// Orphan detection keys off this so hand-written requirement files are left
// alone.
func IsManagedExport(content string) bool {
	return strings.HasPrefix(content, ExportHeader)
}

// ExportFingerprint extracts the fingerprint stamp from generated content.
func ExportFingerprint(content string) (string, bool) {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, fingerprintPrefix) {
			return strings.TrimPrefix(line, fingerprintPrefix), true
		}
	}
	return "", false
}

// FileStatus classifies one export file after a plan or sync pass.
type FileStatus string

const (
	// FileUnchanged means disk already matches the rendered export.
	FileUnchanged FileStatus = "unchanged"
	// FileDrifted means disk is missing or differs from the rendered export.
	FileDrifted FileStatus = "drifted"
	// FileCreated means sync wrote a file that did not exist.
	FileCreated FileStatus = "created"
	// FileUpdated means sync rewrote a file that differed.
	FileUpdated FileStatus = "updated"
	// FileOrphaned means a managed-looking file no longer maps to any target.
	// Orphans are reported, never deleted.
	FileOrphaned FileStatus = "orphaned"
)

// FileResult is the outcome for one export file.
type FileResult struct {
	File   string     `json:"file"`
	Label  string     `json:"label,omitempty"`
	Status FileStatus `json:"status"`
	Pins   int        `json:"pins,omitempty"`
	Diff   string     `json:"diff,omitempty"`
}

// SyncReport is the outcome of a plan, check or sync pass over all targets.
type SyncReport struct {
	Fingerprint string       `json:"fingerprint"`
	Files       []FileResult `json:"files"`
	LockIssues  []string     `json:"lock_issues,omitempty"`
}

// Drifted returns the files that differ from their rendered form.
func (r *SyncReport) Drifted() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Status == FileDrifted {
			out = append(out, f)
		}
	}
	return out
}

// Orphans returns managed files with no remaining target.
func (r *SyncReport) Orphans() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Status == FileOrphaned {
			out = append(out, f)
		}
	}
	return out
}

// Clean reports whether nothing drifted and the lock was coherent.
func (r *SyncReport) Clean() bool {
	return len(r.Drifted()) == 0 && len(r.LockIssues) == 0
}
