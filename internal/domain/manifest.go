package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Manifest is the parsed Poetry project manifest (pyproject.toml). Dependencies
// holds the main group sorted by normalized name; named groups such as "dev"
// live in Groups. Extras map extra names to the optional packages they
// activate.
type Manifest struct {
	Name        string
	RawVersion  string
	Version     Version
	Description string
	Authors     []string
	License     string

	Python       Constraint
	Dependencies []Dependency
	Groups       map[string][]Dependency
	Extras       map[string][]string
	Scripts      map[string]string

	// Fingerprint is the hex sha256 of the manifest and lock bytes, stamped
	// into generated requirement files so drift is attributable.
	Fingerprint string
}

// Dependency is a single requirement from the manifest. Extras are extras
// requested of the dependency itself (uvicorn[standard]), not project extras.
type Dependency struct {
	Name           string
	NormalizedName string
	Constraint     Constraint
	Optional       bool
	Extras         []string
	Markers        string
}

var nameRunRE = regexp.MustCompile(`[-_.]+`)

// NormalizeName canonicalizes a package name per PEP 503: lowercase with runs
// of "-", "_" and "." collapsed to a single dash.
func NormalizeName(name string) string {
	return nameRunRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// Dependency looks up a main-group dependency by name (normalized on both
// sides).
func (m *Manifest) Dependency(name string) (Dependency, bool) {
	want := NormalizeName(name)
	for _, d := range m.Dependencies {
		if d.NormalizedName == want {
			return d, true
		}
	}
	return Dependency{}, false
}

// MainRoots returns the non-optional main-group dependencies.
func (m *Manifest) MainRoots() []Dependency {
	roots := make([]Dependency, 0, len(m.Dependencies))
	for _, d := range m.Dependencies {
		if !d.Optional {
			roots = append(roots, d)
		}
	}
	return roots
}

// GroupRoots returns the dependencies of a named group ("dev" in DetectIQ).
func (m *Manifest) GroupRoots(group string) []Dependency {
	return m.Groups[group]
}

// ExtraRoots resolves an extra's package list to the optional dependencies it
// activates.
func (m *Manifest) ExtraRoots(extra string) ([]Dependency, error) {
	packages, ok := m.Extras[extra]
	if !ok {
		return nil, fmt.Errorf("unknown extra %q", extra)
	}
	roots := make([]Dependency, 0, len(packages))
	for _, name := range packages {
		d, found := m.Dependency(name)
		if !found {
			return nil, fmt.Errorf("extra %q references undeclared package %q", extra, name)
		}
		roots = append(roots, d)
	}
	return roots, nil
}

// ExtraNames returns the declared extras sorted for deterministic output.
func (m *Manifest) ExtraNames() []string {
	names := make([]string, 0, len(m.Extras))
	for name := range m.Extras {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GroupNames returns the declared dependency groups sorted.
func (m *Manifest) GroupNames() []string {
	names := make([]string, 0, len(m.Groups))
	for name := range m.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllDependencies returns main plus group dependencies, groups in sorted order.
func (m *Manifest) AllDependencies() []Dependency {
	all := append([]Dependency(nil), m.Dependencies...)
	for _, group := range m.GroupNames() {
		all = append(all, m.Groups[group]...)
	}
	return all
}

// Validate checks manifest coherence. Violations are collected so a broken
// manifest reports everything wrong with it at once.
func (m *Manifest) Validate() error {
	var problems []string

	if m.Name == "" {
		problems = append(problems, "project name is empty")
	}
	if m.RawVersion == "" {
		problems = append(problems, "project version is empty")
	}

	seen := map[string]string{}
	for _, d := range m.Dependencies {
		if prev, dup := seen[d.NormalizedName]; dup {
			problems = append(problems, fmt.Sprintf("dependency %q declared twice (as %q and %q)", d.NormalizedName, prev, d.Name))
			continue
		}
		seen[d.NormalizedName] = d.Name
	}

	inExtra := map[string]bool{}
	for _, extra := range m.ExtraNames() {
		for _, name := range m.Extras[extra] {
			d, ok := m.Dependency(name)
			if !ok {
				problems = append(problems, fmt.Sprintf("extra %q references undeclared package %q", extra, name))
				continue
			}
			inExtra[d.NormalizedName] = true
			if !d.Optional {
				problems = append(problems, fmt.Sprintf("extra %q includes %q which is not marked optional", extra, name))
			}
		}
	}
	for _, d := range m.Dependencies {
		if d.Optional && !inExtra[d.NormalizedName] {
			problems = append(problems, fmt.Sprintf("optional dependency %q is not referenced by any extra", d.Name))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid manifest: %s", strings.Join(problems, "; "))
	}
	return nil
}
