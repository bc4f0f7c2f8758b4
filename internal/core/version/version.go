// Package version compares dotted versions and evaluates comma-separated
// constraint specifiers such as ">=1.0.0,<2.0.0".
package version

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/barysiuk/specify/internal/core/exterr"
)

// operators in match order. Two-character operators come first so that
// ">=1.0" is never read as ">" followed by "=1.0".
var operators = []string{">=", "<=", "!=", "==", ">", "<"}

// Parse turns a dotted version into a semver.Version. Up to three
// components are read; missing components are 0, and each component's
// value is its leading digits (so "3-beta" reads as 3). Parse never fails.
func Parse(v string) *semver.Version {
	var parts [3]uint64
	fields := strings.Split(strings.TrimPrefix(strings.TrimSpace(v), "v"), ".")
	for i := 0; i < len(fields) && i < 3; i++ {
		parts[i] = leadingInt(fields[i])
	}
	return semver.New(parts[0], parts[1], parts[2], "", "")
}

// Compare returns -1, 0 or +1 as a is less than, equal to or greater than b.
func Compare(a, b string) int {
	return Parse(a).Compare(Parse(b))
}

// Satisfies checks version against every constraint in specifier. It
// returns a compatibility error carrying the whole specifier when any
// constraint fails.
func Satisfies(version, specifier string) error {
	actual := Parse(version)
	for _, raw := range strings.Split(specifier, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		op, want := splitConstraint(raw)
		if !holds(actual.Compare(Parse(want)), op) {
			return exterr.NewCompatibility(specifier, version)
		}
	}
	return nil
}

// splitConstraint separates the operator from the version. A constraint
// without a known operator is an exact match.
func splitConstraint(c string) (op, v string) {
	for _, o := range operators {
		if strings.HasPrefix(c, o) {
			return o, strings.TrimSpace(c[len(o):])
		}
	}
	return "==", c
}

func holds(cmp int, op string) bool {
	switch op {
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	case "!=":
		return cmp != 0
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	default:
		return cmp == 0
	}
}

func leadingInt(s string) uint64 {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.ParseUint(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
