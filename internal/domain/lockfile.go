package domain

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrLockStale marks a lockfile that no longer agrees with the manifest.
// Callers branch on it with errors.Is; the concrete error carries the full
// violation list.
var ErrLockStale = errors.New("poetry.lock is stale")

// LockStaleError reports every manifest requirement the lock fails to satisfy.
type LockStaleError struct {
	Violations []string
}

func (e *LockStaleError) Error() string {
	return fmt.Sprintf("poetry.lock is stale: %s", strings.Join(e.Violations, "; "))
}

func (e *LockStaleError) Is(target error) bool { return target == ErrLockStale }

// Lockfile is the parsed poetry.lock: the solver's pinned package set plus the
// metadata block Poetry uses to detect drift itself.
type Lockfile struct {
	Packages    []LockedPackage
	LockVersion string
	ContentHash string
}

// LockedPackage is one [[package]] entry.
type LockedPackage struct {
	Name           string
	NormalizedName string
	RawVersion     string
	Version        Version
	Description    string
	Optional       bool
	PythonVersions string
	Groups         []string
	Dependencies   []LockDependency
	Extras         map[string][]string
}

// LockDependency is one edge in the lock's dependency graph. Markers keeps the
// raw environment marker; an "extra == …" clause means the edge is active only
// when that extra of the parent package was requested.
type LockDependency struct {
	Name           string
	NormalizedName string
	Constraint     Constraint
	Extras         []string
	Markers        string
}

// Package looks up a locked package by name, normalized on both sides.
func (l *Lockfile) Package(name string) (LockedPackage, bool) {
	want := NormalizeName(name)
	for _, p := range l.Packages {
		if p.NormalizedName == want {
			return p, true
		}
	}
	return LockedPackage{}, false
}

// Verify checks that every manifest dependency (main, groups and optionals) is
// present in the lock at a satisfying version. All violations are collected;
// the returned error matches ErrLockStale.
func (l *Lockfile) Verify(m *Manifest) error {
	var violations []string
	for _, d := range m.AllDependencies() {
		p, ok := l.Package(d.NormalizedName)
		if !ok {
			violations = append(violations, fmt.Sprintf("%s is required by pyproject.toml but missing from the lock", d.Name))
			continue
		}
		if !d.Constraint.Matches(p.Version) {
			violations = append(violations,
				fmt.Sprintf("%s is locked at %s which does not satisfy %s", d.Name, p.RawVersion, d.Constraint))
		}
	}
	if len(violations) > 0 {
		return &LockStaleError{Violations: violations}
	}
	return nil
}

var extraClauseRE = regexp.MustCompile(`extra\s*==\s*['"]([^'"]+)['"]`)

// splitExtraMarker pulls the "extra == …" clause out of a marker expression,
// returning the extra name and the remaining environment marker.
func splitExtraMarker(markers string) (extra string, rest string) {
	m := extraClauseRE.FindStringSubmatch(markers)
	if m == nil {
		return "", strings.TrimSpace(markers)
	}
	rest = extraClauseRE.ReplaceAllString(markers, "")
	rest = strings.TrimSpace(rest)
	rest = strings.TrimPrefix(rest, "and ")
	rest = strings.TrimPrefix(rest, "or ")
	rest = strings.TrimSuffix(rest, " and")
	rest = strings.TrimSuffix(rest, " or")
	return m[1], strings.TrimSpace(rest)
}

type resolveNode struct {
	name   string
	extras map[string]bool
}

// Resolve walks the lock graph from the given manifest roots and returns the
// transitive closure as sorted pins. Edges guarded by an extra marker are
// followed only when the parent was requested with that extra; remaining
// environment markers are carried onto the pin (paths with no marker win,
// otherwise distinct markers are or-joined).
func (l *Lockfile) Resolve(roots []Dependency) ([]Pin, error) {
	markers := map[string]map[string]bool{}
	unconditional := map[string]bool{}

	note := func(name, marker string) {
		if marker == "" {
			unconditional[name] = true
			return
		}
		if markers[name] == nil {
			markers[name] = map[string]bool{}
		}
		markers[name][marker] = true
	}

	var queue []resolveNode
	for _, d := range sortedRoots(roots) {
		node := resolveNode{name: d.NormalizedName, extras: map[string]bool{}}
		for _, e := range d.Extras {
			node.extras[e] = true
		}
		queue = append(queue, node)
		note(d.NormalizedName, d.Markers)
	}

	seen := map[string]map[string]bool{}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		if grown := mergeExtras(seen, node); !grown {
			continue
		}

		p, ok := l.Package(node.name)
		if !ok {
			return nil, fmt.Errorf("package %q reachable from the manifest is missing from the lock", node.name)
		}
		for _, edge := range p.Dependencies {
			extra, rest := splitExtraMarker(edge.Markers)
			if extra != "" && !node.extras[extra] {
				continue
			}
			child := resolveNode{name: edge.NormalizedName, extras: map[string]bool{}}
			for _, e := range edge.Extras {
				child.extras[e] = true
			}
			note(edge.NormalizedName, rest)
			queue = append(queue, child)
		}
	}

	pins := make([]Pin, 0, len(seen))
	for name := range seen {
		p, ok := l.Package(name)
		if !ok {
			return nil, fmt.Errorf("package %q reachable from the manifest is missing from the lock", name)
		}
		pin := Pin{Name: p.NormalizedName, Version: p.RawVersion}
		if !unconditional[name] && len(markers[name]) > 0 {
			pin.Markers = joinMarkers(markers[name])
		}
		pins = append(pins, pin)
	}
	sort.Slice(pins, func(i, j int) bool { return pins[i].Name < pins[j].Name })
	return pins, nil
}

func sortedRoots(roots []Dependency) []Dependency {
	out := append([]Dependency(nil), roots...)
	sort.Slice(out, func(i, j int) bool { return out[i].NormalizedName < out[j].NormalizedName })
	return out
}

// mergeExtras records the node visit and reports whether it added anything new.
func mergeExtras(seen map[string]map[string]bool, node resolveNode) bool {
	prev, visited := seen[node.name]
	if !visited {
		extras := map[string]bool{}
		for e := range node.extras {
			extras[e] = true
		}
		seen[node.name] = extras
		return true
	}
	grown := false
	for e := range node.extras {
		if !prev[e] {
			prev[e] = true
			grown = true
		}
	}
	return grown
}

func joinMarkers(set map[string]bool) string {
	parts := make([]string, 0, len(set))
	for m := range set {
		parts = append(parts, m)
	}
	sort.Strings(parts)
	return strings.Join(parts, " or ")
}
