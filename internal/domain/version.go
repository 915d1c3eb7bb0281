package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed Python package version covering the PEP 440 forms that
// appear in Poetry manifests and lockfiles: epoch, dotted release, pre/post/dev
// segments and a local identifier. Local identifiers are preserved but ignored
// for ordering.
type Version struct {
	Epoch   int
	Release []int
	Pre     *PreTag
	Post    *int
	Dev     *int
	Local   string

	original string
}

// PreTag is a pre-release marker: phase "a", "b" or "rc" plus a number.
type PreTag struct {
	Phase  string
	Number int
}

var prePhases = map[string]string{
	"a": "a", "alpha": "a",
	"b": "b", "beta": "b",
	"c": "rc", "rc": "rc", "pre": "rc", "preview": "rc",
}

var preRank = map[string]int{"a": 0, "b": 1, "rc": 2}

// ParseVersion parses a version string. The input is normalized (lowercased,
// optional leading "v" stripped) before parsing.
func ParseVersion(s string) (Version, error) {
	v := Version{original: strings.TrimSpace(s)}
	rest := strings.ToLower(v.original)
	rest = strings.TrimPrefix(rest, "v")
	if rest == "" {
		return Version{}, fmt.Errorf("empty version")
	}

	if i := strings.IndexByte(rest, '+'); i >= 0 {
		v.Local = rest[i+1:]
		rest = rest[:i]
	}

	if i := strings.IndexByte(rest, '!'); i >= 0 {
		epoch, err := strconv.Atoi(rest[:i])
		if err != nil {
			return Version{}, fmt.Errorf("invalid epoch in %q", s)
		}
		v.Epoch = epoch
		rest = rest[i+1:]
	}

	// Release segment: leading dotted integers.
	for {
		j := 0
		for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
			j++
		}
		if j == 0 {
			if len(v.Release) == 0 {
				return Version{}, fmt.Errorf("invalid version %q", s)
			}
			break
		}
		n, err := strconv.Atoi(rest[:j])
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q", s)
		}
		v.Release = append(v.Release, n)
		rest = rest[j:]
		if strings.HasPrefix(rest, ".") && len(rest) > 1 && rest[1] >= '0' && rest[1] <= '9' {
			rest = rest[1:]
			continue
		}
		break
	}

	for rest != "" {
		rest = strings.TrimLeft(rest, ".-_")
		if rest == "" {
			break
		}
		j := 0
		for j < len(rest) && rest[j] >= 'a' && rest[j] <= 'z' {
			j++
		}
		word := rest[:j]
		rest = rest[j:]
		num := 0
		rest = strings.TrimLeft(rest, ".-_")
		k := 0
		for k < len(rest) && rest[k] >= '0' && rest[k] <= '9' {
			k++
		}
		if k > 0 {
			num, _ = strconv.Atoi(rest[:k])
			rest = rest[k:]
		}

		switch {
		case word == "post" || word == "rev" || word == "r":
			n := num
			v.Post = &n
		case word == "dev":
			n := num
			v.Dev = &n
		case prePhases[word] != "":
			v.Pre = &PreTag{Phase: prePhases[word], Number: num}
		case word == "" && v.Pre == nil && v.Post == nil:
			// "1.0-1" is a legacy post-release spelling.
			n := num
			v.Post = &n
		default:
			return Version{}, fmt.Errorf("unsupported version segment %q in %q", word, s)
		}
	}

	return v, nil
}

// MustParseVersion parses s and panics on failure. For tests and literals.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	if v.original != "" {
		return v.original
	}
	parts := make([]string, len(v.Release))
	for i, n := range v.Release {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Compare returns -1, 0 or 1 ordering v against o per PEP 440: epoch, release
// (shorter release padded with zeros), then dev < pre < final < post.
func (v Version) Compare(o Version) int {
	if v.Epoch != o.Epoch {
		return sign(v.Epoch - o.Epoch)
	}
	if c := compareRelease(v.Release, o.Release); c != 0 {
		return c
	}
	if c := compareInts(v.phaseKey(), o.phaseKey()); c != 0 {
		return c
	}
	return 0
}

// phaseKey flattens pre/post/dev presence into a comparable integer key.
// A bare dev release sorts below any pre-release; post sorts above final;
// a dev marker on an otherwise equal version sorts below its release.
func (v Version) phaseKey() []int {
	key := make([]int, 0, 7)
	switch {
	case v.Pre != nil:
		key = append(key, 1, preRank[v.Pre.Phase], v.Pre.Number)
	case v.Dev != nil && v.Post == nil:
		key = append(key, 0, 0, 0)
	default:
		key = append(key, 2, 0, 0)
	}
	if v.Post != nil {
		key = append(key, 1, *v.Post)
	} else {
		key = append(key, 0, 0)
	}
	if v.Dev != nil {
		key = append(key, 0, *v.Dev)
	} else {
		key = append(key, 1, 0)
	}
	return key
}

// IsPrerelease reports whether the version carries a pre or dev marker.
func (v Version) IsPrerelease() bool {
	return v.Pre != nil || v.Dev != nil
}

// releaseAt returns the release component at index i, zero-padded.
func (v Version) releaseAt(i int) int {
	if i < len(v.Release) {
		return v.Release[i]
	}
	return 0
}

func compareRelease(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			return sign(av - bv)
		}
	}
	return 0
}

func compareInts(a, b []int) int {
	for i := range a {
		if i >= len(b) {
			return 1
		}
		if a[i] != b[i] {
			return sign(a[i] - b[i])
		}
	}
	if len(b) > len(a) {
		return -1
	}
	return 0
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
