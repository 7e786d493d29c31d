// Package specificity orders ref patterns from most to least specific for a
// given ref.
//
// The order decides which access section speaks first when several sections
// match the same ref. It is a pure function of the ref and the pattern
// strings, so results are cached by a Sorter.
package specificity

import (
	"cmp"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/marmos91/refperm/pkg/refpattern"
)

// SortKey is the tuple patterns are compared by, smallest first.
type SortKey struct {
	Pattern     string `json:"pattern" yaml:"pattern"`
	Kind        string `json:"kind" yaml:"kind"`
	Distance    int    `json:"distance" yaml:"distance"`
	Finite      bool   `json:"finite" yaml:"finite"`
	Transitions int    `json:"transitions" yaml:"transitions"`
	// ExactMatch is set for an exact pattern equal to the ref. Such a
	// pattern outranks every other key.
	ExactMatch bool `json:"exact_match" yaml:"exact_match"`
}

// Key computes the sort key of pattern relative to ref.
func Key(ref, pattern string) SortKey {
	kind := refpattern.Classify(pattern)
	k := SortKey{
		Pattern:    pattern,
		Kind:       kind.String(),
		Distance:   distance(ref, pattern),
		ExactMatch: kind == refpattern.KindExact && pattern == ref,
	}

	if refpattern.IsRegex(pattern) {
		a, err := refpattern.ToAutomaton(pattern)
		if err == nil {
			k.Finite = a.IsFinite()
			k.Transitions = a.NumTransitions()
			return k
		}
	}
	k.Finite = !strings.HasSuffix(pattern, "/*") && !refpattern.IsRegex(pattern)
	k.Transitions = len(pattern)
	return k
}

func distance(ref, pattern string) int {
	if refpattern.IsRegex(pattern) || strings.HasSuffix(pattern, "/*") {
		return levenshtein.ComputeDistance(refpattern.ShortestExample(pattern), ref)
	}
	if pattern == ref {
		return 0
	}
	return max(len(ref), len(pattern))
}

// CompareKeys orders two keys computed for the same ref.
func CompareKeys(a, b SortKey) int {
	if a.ExactMatch != b.ExactMatch {
		if a.ExactMatch {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
		return c
	}
	if a.Finite != b.Finite {
		if a.Finite {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(a.Transitions, b.Transitions); c != 0 {
		return c
	}
	// Longer text first.
	return cmp.Compare(len(b.Pattern), len(a.Pattern))
}

// Compare reports whether pattern a is more (-1) or less (+1) specific than
// b for ref. Zero means the patterns are equally specific.
func Compare(ref, a, b string) int {
	return CompareKeys(Key(ref, a), Key(ref, b))
}
