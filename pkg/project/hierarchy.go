package project

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/marmos91/refperm/internal/logger"
	"github.com/marmos91/refperm/internal/telemetry"
	"github.com/marmos91/refperm/pkg/access"
	"github.com/marmos91/refperm/pkg/collector"
	"github.com/marmos91/refperm/pkg/project/store"
)

// Hierarchy answers inheritance questions over the projects in a Cache.
type Hierarchy struct {
	cache *Cache
}

// NewHierarchy creates a Hierarchy over cache.
func NewHierarchy(cache *Cache) *Hierarchy {
	return &Hierarchy{cache: cache}
}

// Cache returns the underlying cache.
func (h *Hierarchy) Cache() *Cache { return h.cache }

// Ancestors returns name followed by its ancestors, nearest first, ending
// at the root. A chain that loops back on itself is cut where the loop
// starts. A missing parent cuts the chain and the root is appended.
func (h *Hierarchy) Ancestors(ctx context.Context, name string) ([]*State, error) {
	s, err := h.cache.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	chain := []*State{s}
	seen := map[string]struct{}{name: {}}
	for cur := s; !cur.IsRoot(); {
		parent := cur.Parent()
		if _, loop := seen[parent]; loop {
			logger.WarnCtx(ctx, "Project hierarchy loops, truncating",
				logger.Project(name), "parent", parent)
			break
		}
		p, err := h.cache.Get(ctx, parent)
		if errors.Is(err, ErrNoSuchProject) {
			logger.WarnCtx(ctx, "Parent project missing, falling back to root",
				logger.Project(cur.Name()), "parent", parent)
			break
		}
		if err != nil {
			return nil, err
		}
		chain = append(chain, p)
		seen[parent] = struct{}{}
		cur = p
	}

	if _, ok := seen[h.cache.Root()]; !ok {
		root, err := h.cache.Get(ctx, h.cache.Root())
		switch {
		case err == nil:
			chain = append(chain, root)
		case errors.Is(err, ErrNoSuchProject):
			logger.WarnCtx(ctx, "Root project missing", logger.Project(h.cache.Root()))
		default:
			return nil, err
		}
	}
	return chain, nil
}

// SetParent makes newParent the parent of child. It refuses to reparent
// the root and to create a cycle.
func (h *Hierarchy) SetParent(ctx context.Context, child, newParent string) error {
	ctx, span := telemetry.StartProjectSpan(ctx, telemetry.SpanSetParent, child, telemetry.Parent(newParent))
	defer span.End()

	if child == h.cache.Root() {
		return fmt.Errorf("set parent of %s to %s: %w", child, newParent, ErrRootReparenting)
	}
	if newParent == child {
		return &CycleError{Child: child, Parent: newParent}
	}
	if _, err := h.cache.Get(ctx, child); err != nil {
		return err
	}

	chain, err := h.Ancestors(ctx, newParent)
	if err != nil {
		return err
	}
	for _, s := range chain {
		if s.Name() == child {
			return &CycleError{Child: child, Parent: newParent}
		}
	}

	rev, err := h.cache.Store().SetParent(ctx, child, newParent)
	if err != nil {
		telemetry.RecordError(ctx, err)
		if errors.Is(err, store.ErrProjectNotFound) {
			return noSuchProject(child)
		}
		return &BackendError{Project: child, Err: err}
	}
	h.cache.Evict(child)

	logger.InfoCtx(ctx, "Project parent changed",
		logger.Project(child), "parent", newParent, logger.Revision(rev))
	return nil
}

// AllAccessSections returns the sections of name and all its ancestors,
// local sections first. Each project contributes once.
func (h *Hierarchy) AllAccessSections(ctx context.Context, name string) ([]collector.Section, error) {
	chain, err := h.Ancestors(ctx, name)
	if err != nil {
		return nil, err
	}
	var out []collector.Section
	for _, s := range chain {
		for _, sec := range s.LocalAccessSections() {
			out = append(out, collector.Section{Project: s.Name(), Section: sec})
		}
	}
	return out, nil
}

// EffectiveOwnerGroups returns the owner groups of the nearest project in
// the chain that declares any. The root with no owners yields none.
func (h *Hierarchy) EffectiveOwnerGroups(ctx context.Context, name string) ([]access.GroupReference, error) {
	chain, err := h.Ancestors(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, s := range chain {
		if owners := s.LocalOwners(); len(owners) > 0 {
			return slices.Clone(owners), nil
		}
	}
	return nil, nil
}

// AllOwnerGroups returns the union of owner groups over the chain.
func (h *Hierarchy) AllOwnerGroups(ctx context.Context, name string) ([]access.GroupReference, error) {
	chain, err := h.Ancestors(ctx, name)
	if err != nil {
		return nil, err
	}
	var out []access.GroupReference
	seen := make(map[access.GroupReference]struct{})
	for _, s := range chain {
		for _, g := range s.LocalOwners() {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			out = append(out, g)
		}
	}
	return out, nil
}

// LabelTypes returns the label types in effect for name. A label declared
// by a project replaces one of the same name inherited from its parents.
func (h *Hierarchy) LabelTypes(ctx context.Context, name string) ([]*access.LabelType, error) {
	chain, err := h.Ancestors(ctx, name)
	if err != nil {
		return nil, err
	}
	var out []*access.LabelType
	index := make(map[string]int)
	for i := len(chain) - 1; i >= 0; i-- {
		for _, lt := range chain[i].LocalLabelTypes() {
			if j, ok := index[lt.Name]; ok {
				out[j] = lt
				continue
			}
			index[lt.Name] = len(out)
			out = append(out, lt)
		}
	}
	return out, nil
}

// LabelType returns the effective label type called label, or nil.
func (h *Hierarchy) LabelType(ctx context.Context, name, label string) (*access.LabelType, error) {
	types, err := h.LabelTypes(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, lt := range types {
		if lt.Name == label {
			return lt, nil
		}
	}
	return nil, nil
}
