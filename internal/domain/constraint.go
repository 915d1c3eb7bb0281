package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Constraint is a parsed Poetry version constraint. Comma-separated clauses
// must all hold, and "||" separates alternatives, so "^1.2 || >=2.1,<2.4"
// matches either range. Caret and tilde shorthands expand to bound pairs at
// parse time.
type Constraint struct {
	groups [][]clause
	raw    string
}

type clause struct {
	op string // "==", "!=", ">=", ">", "<=", "<", "any", "prefix", "notprefix"
	v  Version
	// prefix holds the literal release components of a wildcard clause,
	// e.g. [1 2] for "1.2.*".
	prefix []int
}

// AnyConstraint matches every version.
var AnyConstraint = Constraint{groups: [][]clause{{{op: "any"}}}, raw: "*"}

// ParseConstraint parses a Poetry constraint expression.
func ParseConstraint(s string) (Constraint, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Constraint{}, fmt.Errorf("empty constraint")
	}
	c := Constraint{raw: raw}
	for _, alt := range strings.Split(raw, "||") {
		var group []clause
		for _, part := range strings.Split(alt, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			cls, err := parseClauses(part)
			if err != nil {
				return Constraint{}, fmt.Errorf("constraint %q: %w", s, err)
			}
			group = append(group, cls...)
		}
		if len(group) == 0 {
			return Constraint{}, fmt.Errorf("constraint %q: empty alternative", s)
		}
		c.groups = append(c.groups, group)
	}
	return c, nil
}

// MustParseConstraint parses s and panics on failure. For tests and literals.
func MustParseConstraint(s string) Constraint {
	c, err := ParseConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseClauses(part string) ([]clause, error) {
	if part == "*" {
		return []clause{{op: "any"}}, nil
	}

	op := ""
	for _, candidate := range []string{">=", "<=", "==", "!=", ">", "<", "^", "~", "="} {
		if strings.HasPrefix(part, candidate) {
			op = candidate
			part = strings.TrimSpace(part[len(candidate):])
			break
		}
	}

	// Wildcard clauses match on release prefix instead of exact compare.
	if strings.HasSuffix(part, ".*") || strings.HasSuffix(part, ".x") {
		prefix, err := parseReleasePrefix(part[:len(part)-2])
		if err != nil {
			return nil, err
		}
		switch op {
		case "", "=", "==":
			return []clause{{op: "prefix", prefix: prefix}}, nil
		case "!=":
			return []clause{{op: "notprefix", prefix: prefix}}, nil
		default:
			return nil, fmt.Errorf("wildcard not allowed with %q", op)
		}
	}

	v, err := ParseVersion(part)
	if err != nil {
		return nil, err
	}

	switch op {
	case "", "=", "==":
		return []clause{{op: "==", v: v}}, nil
	case "!=", ">=", ">", "<=", "<":
		return []clause{{op: op, v: v}}, nil
	case "^":
		return []clause{{op: ">=", v: v}, {op: "<", v: caretUpper(v)}}, nil
	case "~":
		return []clause{{op: ">=", v: v}, {op: "<", v: tildeUpper(v)}}, nil
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}

func parseReleasePrefix(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ".")
	prefix := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid wildcard prefix %q", s)
		}
		prefix = append(prefix, n)
	}
	return prefix, nil
}

// caretUpper computes the exclusive upper bound of a caret constraint: the
// leftmost non-zero release component is bumped. "^0.2.3" allows <0.3.0 and
// "^1.2" allows <2.0.0, matching Poetry.
func caretUpper(v Version) Version {
	release := append([]int(nil), v.Release...)
	for i, n := range release {
		if n != 0 || i == len(release)-1 {
			release[i]++
			release = release[:i+1]
			break
		}
	}
	return Version{Epoch: v.Epoch, Release: release}
}

// tildeUpper computes the exclusive upper bound of a tilde constraint: the
// second release component is bumped when present, otherwise the first.
func tildeUpper(v Version) Version {
	release := append([]int(nil), v.Release...)
	if len(release) >= 2 {
		release[1]++
		release = release[:2]
	} else {
		release[0]++
		release = release[:1]
	}
	return Version{Epoch: v.Epoch, Release: release}
}

// Matches reports whether version v satisfies the constraint.
func (c Constraint) Matches(v Version) bool {
	for _, group := range c.groups {
		ok := true
		for _, cls := range group {
			if !cls.matches(v) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// MatchesString parses s as a version and checks it against the constraint.
func (c Constraint) MatchesString(s string) (bool, error) {
	v, err := ParseVersion(s)
	if err != nil {
		return false, err
	}
	return c.Matches(v), nil
}

// IsAny reports whether the constraint accepts every version.
func (c Constraint) IsAny() bool {
	for _, group := range c.groups {
		for _, cls := range group {
			if cls.op != "any" {
				return false
			}
		}
	}
	return len(c.groups) > 0
}

func (c Constraint) String() string {
	if c.raw != "" {
		return c.raw
	}
	return "*"
}

func (cl clause) matches(v Version) bool {
	switch cl.op {
	case "any":
		return true
	case "prefix":
		return releaseHasPrefix(v, cl.prefix)
	case "notprefix":
		return !releaseHasPrefix(v, cl.prefix)
	}
	cmp := v.Compare(cl.v)
	switch cl.op {
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	case ">=":
		return cmp >= 0
	case ">":
		return cmp > 0
	case "<=":
		return cmp <= 0
	case "<":
		return cmp < 0
	}
	return false
}

func releaseHasPrefix(v Version, prefix []int) bool {
	for i, n := range prefix {
		if v.releaseAt(i) != n {
			return false
		}
	}
	return true
}
