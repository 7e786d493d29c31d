package specificity

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dgraph-io/ristretto/v2"
)

// DefaultCacheSize is the number of orderings a Sorter keeps by default.
const DefaultCacheSize = 10_000

// Sorter sorts access sections by specificity, memoizing the permutation
// computed for each (ref, distinct patterns) combination.
//
// A Sorter is safe for concurrent use.
type Sorter struct {
	cache   *ristretto.Cache[string, []int]
	metrics *Metrics
}

// NewSorter creates a Sorter holding up to size cached orderings. A size of
// zero or less disables caching. metrics may be nil.
func NewSorter(size int64, metrics *Metrics) (*Sorter, error) {
	s := &Sorter{metrics: metrics}
	if size <= 0 {
		return s, nil
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []int]{
		NumCounters: size * 10,
		MaxCost:     size,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create sort cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// Close releases the cache.
func (s *Sorter) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
}

// Order returns the permutation that sorts patterns most specific first,
// or nil when patterns are already in order. Duplicates keep their
// relative order.
func (s *Sorter) Order(ref string, patterns []string) []int {
	if len(patterns) < 2 {
		return nil
	}

	distinct := distinctPatterns(patterns)
	key := cacheKey(ref, distinct)

	var rank []int
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.metrics.ObserveLookup(true)
			rank = cached
		}
	}
	if rank == nil {
		s.metrics.ObserveLookup(false)
		rank = rankPatterns(ref, distinct)
		if s.cache != nil {
			s.cache.Set(key, rank, 1)
		}
	}
	if len(rank) == 0 {
		return nil
	}

	pos := make(map[string]int, len(distinct))
	for i, p := range distinct {
		pos[p] = rank[i]
	}
	order := make([]int, len(patterns))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return pos[patterns[a]] - pos[patterns[b]]
	})
	if isIdentity(order) {
		return nil
	}
	return order
}

// SortSections sorts items in place by the specificity of their pattern
// for ref. Items with equal patterns keep their input order.
func SortSections[T any](s *Sorter, ref string, items []T, patternOf func(T) string) {
	if len(items) < 2 {
		return
	}
	patterns := make([]string, len(items))
	for i, it := range items {
		patterns[i] = patternOf(it)
	}

	order := s.Order(ref, patterns)
	if order == nil {
		return
	}
	sorted := make([]T, len(items))
	for i, idx := range order {
		sorted[i] = items[idx]
	}
	copy(items, sorted)
}

// Sort returns patterns ordered most specific first. The input is not
// modified.
func (s *Sorter) Sort(ref string, patterns []string) []string {
	out := slices.Clone(patterns)
	SortSections(s, ref, out, func(p string) string { return p })
	return out
}

// rankPatterns returns, for each distinct pattern, its position in the
// sorted order. An empty slice means the input is already sorted; it is
// never nil so that it can be cached.
func rankPatterns(ref string, distinct []string) []int {
	keys := make([]SortKey, len(distinct))
	for i, p := range distinct {
		keys[i] = Key(ref, p)
	}

	idx := make([]int, len(distinct))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return CompareKeys(keys[a], keys[b])
	})
	if isIdentity(idx) {
		return []int{}
	}

	rank := make([]int, len(distinct))
	for position, i := range idx {
		rank[i] = position
	}
	return rank
}

func distinctPatterns(patterns []string) []string {
	seen := make(map[string]struct{}, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func cacheKey(ref string, distinct []string) string {
	var b strings.Builder
	b.WriteString(ref)
	for _, p := range distinct {
		b.WriteByte(0)
		b.WriteString(p)
	}
	return b.String()
}

func isIdentity(order []int) bool {
	for i, v := range order {
		if i != v {
			return false
		}
	}
	return true
}
