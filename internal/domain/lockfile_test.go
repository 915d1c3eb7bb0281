package domain_test

import (
	"errors"
	"testing"

	"github.com/detectiq/workbench/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func locked(name, version string, deps ...domain.LockDependency) domain.LockedPackage {
	return domain.LockedPackage{
		Name:           name,
		NormalizedName: domain.NormalizeName(name),
		RawVersion:     version,
		Version:        domain.MustParseVersion(version),
		Dependencies:   deps,
	}
}

func lockEdge(name, markers string, extras ...string) domain.LockDependency {
	return domain.LockDependency{
		Name:           name,
		NormalizedName: domain.NormalizeName(name),
		Constraint:     domain.AnyConstraint,
		Extras:         extras,
		Markers:        markers,
	}
}

func detectiqLock() *domain.Lockfile {
	return &domain.Lockfile{
		LockVersion: "2.0",
		ContentHash: "abc123",
		Packages: []domain.LockedPackage{
			locked("requests", "2.31.0", lockEdge("urllib3", ""), lockEdge("certifi", "")),
			locked("urllib3", "2.1.0"),
			locked("certifi", "2023.11.17"),
			locked("PyYAML", "6.0.1"),
			locked("splunk-sdk", "1.7.4"),
			locked("elasticsearch", "8.11.1", lockEdge("elastic-transport", "")),
			locked("elastic-transport", "8.10.0", lockEdge("urllib3", ""), lockEdge("certifi", "")),
			locked("msal", "1.26.0", lockEdge("requests", "")),
			locked("Django", "4.2.8", lockEdge("asgiref", ""), lockEdge("sqlparse", "")),
			locked("asgiref", "3.7.2"),
			locked("sqlparse", "0.4.4"),
			locked("pytest", "7.4.3"),
		},
	}
}

func TestLockfile_PackageLookup(t *testing.T) {
	l := detectiqLock()

	p, ok := l.Package("pyyaml")
	require.True(t, ok)
	assert.Equal(t, "6.0.1", p.RawVersion)

	p, ok = l.Package("Splunk_SDK")
	require.True(t, ok)
	assert.Equal(t, "splunk-sdk", p.NormalizedName)

	_, ok = l.Package("flask")
	assert.False(t, ok)
}

func TestLockfile_VerifyOK(t *testing.T) {
	assert.NoError(t, detectiqLock().Verify(detectiqManifest()))
}

func TestLockfile_VerifyCollectsViolations(t *testing.T) {
	m := detectiqManifest()
	m.Dependencies = append(m.Dependencies, dep("langchain", "^0.1.0", false))
	m.Dependencies[0] = dep("requests", "^3.0.0", false) // locked at 2.31.0

	err := detectiqLock().Verify(m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrLockStale))

	var stale *domain.LockStaleError
	require.True(t, errors.As(err, &stale))
	require.Len(t, stale.Violations, 2)
	assert.Contains(t, stale.Violations[0], "requests is locked at 2.31.0")
	assert.Contains(t, stale.Violations[1], "langchain is required by pyproject.toml but missing")
}

func TestLockfile_ResolveClosure(t *testing.T) {
	l := detectiqLock()
	pins, err := l.Resolve([]domain.Dependency{dep("requests", "^2.31.0", false)})
	require.NoError(t, err)

	names := pinNames(pins)
	assert.Equal(t, []string{"certifi", "requests", "urllib3"}, names)
}

func TestLockfile_ResolveSortsDeterministically(t *testing.T) {
	l := detectiqLock()
	roots := []domain.Dependency{
		dep("msal", "^1.26.0", true),
		dep("requests", "^2.31.0", false),
	}
	first, err := l.Resolve(roots)
	require.NoError(t, err)
	second, err := l.Resolve([]domain.Dependency{roots[1], roots[0]})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"certifi", "msal", "requests", "urllib3"}, pinNames(first))
}

func TestLockfile_ResolveExtraEdges(t *testing.T) {
	l := &domain.Lockfile{Packages: []domain.LockedPackage{
		locked("uvicorn", "0.24.0", lockEdge("click", ""), lockEdge("uvloop", `extra == "standard"`)),
		locked("click", "8.1.7"),
		locked("uvloop", "0.19.0"),
	}}

	plain := dep("uvicorn", "^0.24.0", false)
	pins, err := l.Resolve([]domain.Dependency{plain})
	require.NoError(t, err)
	assert.Equal(t, []string{"click", "uvicorn"}, pinNames(pins))

	withExtra := plain
	withExtra.Extras = []string{"standard"}
	pins, err = l.Resolve([]domain.Dependency{withExtra})
	require.NoError(t, err)
	assert.Equal(t, []string{"click", "uvicorn", "uvloop"}, pinNames(pins))
}

func TestLockfile_ResolveCarriesMarkers(t *testing.T) {
	l := &domain.Lockfile{Packages: []domain.LockedPackage{
		locked("tool", "1.0.0",
			lockEdge("colorama", `sys_platform == "win32"`),
			lockEdge("tomli", `python_version < "3.11"`)),
		locked("colorama", "0.4.6"),
		locked("tomli", "2.0.1"),
	}}

	pins, err := l.Resolve([]domain.Dependency{dep("tool", "*", false)})
	require.NoError(t, err)
	byName := map[string]domain.Pin{}
	for _, p := range pins {
		byName[p.Name] = p
	}
	assert.Equal(t, `sys_platform == "win32"`, byName["colorama"].Markers)
	assert.Equal(t, `python_version < "3.11"`, byName["tomli"].Markers)
	assert.Empty(t, byName["tool"].Markers)
}

func TestLockfile_UnconditionalPathDropsMarker(t *testing.T) {
	// colorama is needed on win32 via tool, and unconditionally via cli.
	l := &domain.Lockfile{Packages: []domain.LockedPackage{
		locked("tool", "1.0.0", lockEdge("colorama", `sys_platform == "win32"`)),
		locked("cli", "2.0.0", lockEdge("colorama", "")),
		locked("colorama", "0.4.6"),
	}}

	pins, err := l.Resolve([]domain.Dependency{dep("tool", "*", false), dep("cli", "*", false)})
	require.NoError(t, err)
	for _, p := range pins {
		if p.Name == "colorama" {
			assert.Empty(t, p.Markers)
		}
	}
}

func TestLockfile_ResolveMissingPackage(t *testing.T) {
	l := &domain.Lockfile{Packages: []domain.LockedPackage{
		locked("requests", "2.31.0", lockEdge("urllib3", "")),
	}}
	_, err := l.Resolve([]domain.Dependency{dep("requests", "*", false)})
	assert.ErrorContains(t, err, `"urllib3" reachable from the manifest is missing`)
}

func pinNames(pins []domain.Pin) []string {
	names := make([]string, len(pins))
	for i, p := range pins {
		names[i] = p.Name
	}
	return names
}
