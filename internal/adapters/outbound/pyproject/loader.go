package pyproject

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/detectiq/workbench/internal/domain"
)

// Loader reads Poetry artifacts (pyproject.toml, poetry.lock) from disk and
// implements domain.ManifestLoader.
type Loader struct{}

// New creates a Loader.
func New() *Loader { return &Loader{} }

type pyprojectDoc struct {
	Tool struct {
		Poetry struct {
			Name         string              `toml:"name"`
			Version      string              `toml:"version"`
			Description  string              `toml:"description"`
			Authors      []string            `toml:"authors"`
			License      string              `toml:"license"`
			Dependencies map[string]any      `toml:"dependencies"`
			Extras       map[string][]string `toml:"extras"`
			Group        map[string]struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"group"`
			Scripts map[string]string `toml:"scripts"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// LoadManifest parses a pyproject.toml. Dependencies come back sorted by
// normalized name; the Poetry "python" entry becomes Manifest.Python instead
// of a dependency.
func (l *Loader) LoadManifest(path string) (*domain.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var doc pyprojectDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	poetry := doc.Tool.Poetry
	if poetry.Name == "" && len(poetry.Dependencies) == 0 {
		return nil, fmt.Errorf("%s has no [tool.poetry] section", path)
	}

	m := &domain.Manifest{
		Name:        poetry.Name,
		RawVersion:  poetry.Version,
		Description: poetry.Description,
		Authors:     poetry.Authors,
		License:     poetry.License,
		Extras:      map[string][]string{},
		Scripts:     poetry.Scripts,
		Python:      domain.AnyConstraint,
	}
	if poetry.Version != "" {
		v, err := domain.ParseVersion(poetry.Version)
		if err != nil {
			return nil, fmt.Errorf("project version: %w", err)
		}
		m.Version = v
	}

	for name, raw := range poetry.Dependencies {
		if domain.NormalizeName(name) == "python" {
			c, err := constraintOf(raw)
			if err != nil {
				return nil, fmt.Errorf("python constraint: %w", err)
			}
			m.Python = c
			continue
		}
		d, err := parseDependency(name, raw)
		if err != nil {
			return nil, err
		}
		m.Dependencies = append(m.Dependencies, d)
	}
	sortDeps(m.Dependencies)

	if len(poetry.Group) > 0 {
		m.Groups = map[string][]domain.Dependency{}
		for group, body := range poetry.Group {
			var deps []domain.Dependency
			for name, raw := range body.Dependencies {
				d, err := parseDependency(name, raw)
				if err != nil {
					return nil, fmt.Errorf("group %s: %w", group, err)
				}
				deps = append(deps, d)
			}
			sortDeps(deps)
			m.Groups[group] = deps
		}
	}

	for extra, packages := range poetry.Extras {
		sorted := append([]string(nil), packages...)
		sort.Strings(sorted)
		m.Extras[extra] = sorted
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

type lockDoc struct {
	Package []struct {
		Name           string              `toml:"name"`
		Version        string              `toml:"version"`
		Description    string              `toml:"description"`
		Optional       bool                `toml:"optional"`
		PythonVersions string              `toml:"python-versions"`
		Groups         []string            `toml:"groups"`
		Dependencies   map[string]any      `toml:"dependencies"`
		Extras         map[string][]string `toml:"extras"`
	} `toml:"package"`
	Metadata struct {
		LockVersion string `toml:"lock-version"`
		ContentHash string `toml:"content-hash"`
	} `toml:"metadata"`
}

// LoadLockfile parses a poetry.lock.
func (l *Loader) LoadLockfile(path string) (*domain.Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lockfile: %w", err)
	}

	var doc lockDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	lock := &domain.Lockfile{
		LockVersion: doc.Metadata.LockVersion,
		ContentHash: doc.Metadata.ContentHash,
	}
	for _, p := range doc.Package {
		v, err := domain.ParseVersion(p.Version)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", p.Name, err)
		}
		pkg := domain.LockedPackage{
			Name:           p.Name,
			NormalizedName: domain.NormalizeName(p.Name),
			RawVersion:     p.Version,
			Version:        v,
			Description:    p.Description,
			Optional:       p.Optional,
			PythonVersions: p.PythonVersions,
			Groups:         p.Groups,
			Extras:         p.Extras,
		}
		for name, raw := range p.Dependencies {
			edges, err := parseLockDependency(name, raw)
			if err != nil {
				return nil, fmt.Errorf("package %s: %w", p.Name, err)
			}
			pkg.Dependencies = append(pkg.Dependencies, edges...)
		}
		sort.Slice(pkg.Dependencies, func(i, j int) bool {
			return pkg.Dependencies[i].NormalizedName < pkg.Dependencies[j].NormalizedName
		})
		lock.Packages = append(lock.Packages, pkg)
	}
	sort.Slice(lock.Packages, func(i, j int) bool {
		return lock.Packages[i].NormalizedName < lock.Packages[j].NormalizedName
	})
	return lock, nil
}

// Fingerprint hashes the manifest and lock bytes. The digest lands in every
// generated requirements file.
func (l *Loader) Fingerprint(manifestPath, lockPath string) (string, error) {
	h := sha256.New()
	for _, path := range []string{manifestPath, lockPath} {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("fingerprint: %w", err)
		}
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// parseDependency normalizes the two manifest forms, bare constraint string
// and option table, into a domain.Dependency.
func parseDependency(name string, raw any) (domain.Dependency, error) {
	d := domain.Dependency{
		Name:           name,
		NormalizedName: domain.NormalizeName(name),
		Constraint:     domain.AnyConstraint,
	}

	switch value := raw.(type) {
	case string:
		c, err := domain.ParseConstraint(value)
		if err != nil {
			return domain.Dependency{}, fmt.Errorf("dependency %s: %w", name, err)
		}
		d.Constraint = c
	case map[string]any:
		for _, key := range []string{"git", "url", "path"} {
			if _, found := value[key]; found {
				return domain.Dependency{}, fmt.Errorf("dependency %s: %s sources are not supported", name, key)
			}
		}
		if v, found := value["version"]; found {
			c, err := constraintOf(v)
			if err != nil {
				return domain.Dependency{}, fmt.Errorf("dependency %s: %w", name, err)
			}
			d.Constraint = c
		}
		if v, found := value["optional"]; found {
			b, ok := v.(bool)
			if !ok {
				return domain.Dependency{}, fmt.Errorf("dependency %s: optional must be a boolean", name)
			}
			d.Optional = b
		}
		if v, found := value["markers"]; found {
			s, ok := v.(string)
			if !ok {
				return domain.Dependency{}, fmt.Errorf("dependency %s: markers must be a string", name)
			}
			d.Markers = s
		}
		if v, found := value["extras"]; found {
			extras, err := stringList(v)
			if err != nil {
				return domain.Dependency{}, fmt.Errorf("dependency %s: extras: %w", name, err)
			}
			d.Extras = extras
		}
	default:
		return domain.Dependency{}, fmt.Errorf("dependency %s: unsupported declaration form %T", name, raw)
	}
	return d, nil
}

// parseLockDependency handles the three lock edge forms: constraint string,
// option table, and array of option tables (one edge per alternative).
func parseLockDependency(name string, raw any) ([]domain.LockDependency, error) {
	base := domain.LockDependency{
		Name:           name,
		NormalizedName: domain.NormalizeName(name),
		Constraint:     domain.AnyConstraint,
	}

	switch value := raw.(type) {
	case string:
		c, err := domain.ParseConstraint(value)
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", name, err)
		}
		base.Constraint = c
		return []domain.LockDependency{base}, nil
	case map[string]any:
		edge, err := lockEdgeFromTable(base, value)
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", name, err)
		}
		return []domain.LockDependency{edge}, nil
	case []any:
		var edges []domain.LockDependency
		for _, item := range value {
			table, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("dependency %s: unsupported alternative form %T", name, item)
			}
			edge, err := lockEdgeFromTable(base, table)
			if err != nil {
				return nil, fmt.Errorf("dependency %s: %w", name, err)
			}
			edges = append(edges, edge)
		}
		return edges, nil
	default:
		return nil, fmt.Errorf("dependency %s: unsupported declaration form %T", name, raw)
	}
}

func lockEdgeFromTable(base domain.LockDependency, table map[string]any) (domain.LockDependency, error) {
	edge := base
	if v, found := table["version"]; found {
		c, err := constraintOf(v)
		if err != nil {
			return domain.LockDependency{}, err
		}
		edge.Constraint = c
	}
	if v, found := table["markers"]; found {
		s, ok := v.(string)
		if !ok {
			return domain.LockDependency{}, fmt.Errorf("markers must be a string")
		}
		edge.Markers = s
	}
	if v, found := table["extras"]; found {
		extras, err := stringList(v)
		if err != nil {
			return domain.LockDependency{}, fmt.Errorf("extras: %w", err)
		}
		edge.Extras = extras
	}
	return edge, nil
}

func constraintOf(raw any) (domain.Constraint, error) {
	s, ok := raw.(string)
	if !ok {
		return domain.Constraint{}, fmt.Errorf("version must be a string, got %T", raw)
	}
	return domain.ParseConstraint(s)
}

func stringList(raw any) ([]string, error) {
	switch value := raw.(type) {
	case []string:
		return value, nil
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list, got %T", raw)
	}
}

func sortDeps(deps []domain.Dependency) {
	sort.Slice(deps, func(i, j int) bool {
		return deps[i].NormalizedName < deps[j].NormalizedName
	})
}
