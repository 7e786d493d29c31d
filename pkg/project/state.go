package project

import (
	"sync"
	"sync/atomic"

	"github.com/marmos91/refperm/internal/logger"
	"github.com/marmos91/refperm/pkg/access"
	"github.com/marmos91/refperm/pkg/refpattern"
)

// SectionMatcher pairs an access section with its compiled pattern.
type SectionMatcher struct {
	Section *access.AccessSection
	Matcher refpattern.Matcher
}

// Match reports whether the section applies to ref for user.
func (m SectionMatcher) Match(ref string, user refpattern.Identity) bool {
	return m.Matcher.Match(ref, user)
}

// State is the cached, immutable view of one project's configuration.
//
// The config must not be modified; callers wanting to edit it clone it
// first and commit through the store.
type State struct {
	config      *access.ProjectConfig
	root        string
	localOwners []access.GroupReference

	// checked is the clock generation at which the revision was last
	// confirmed against the store.
	checked atomic.Int64

	matchersOnce sync.Once
	matchers     []SectionMatcher
}

func newState(cfg *access.ProjectConfig, root string, generation int64) *State {
	s := &State{
		config:      cfg,
		root:        root,
		localOwners: cfg.OwnerGroups(),
	}
	s.checked.Store(generation)
	return s
}

// Name returns the project name.
func (s *State) Name() string { return s.config.Name }

// Config returns the project configuration. It must not be modified.
func (s *State) Config() *access.ProjectConfig { return s.config }

// Revision returns the store revision the state was loaded from.
func (s *State) Revision() string { return s.config.Revision }

// IsRoot reports whether this is the root of the hierarchy.
func (s *State) IsRoot() bool { return s.config.Name == s.root }

// Parent returns the parent project name. Projects without an explicit
// parent inherit from the root; the root itself has no parent.
func (s *State) Parent() string {
	if s.IsRoot() {
		return ""
	}
	if s.config.Parent == "" {
		return s.root
	}
	return s.config.Parent
}

// Status returns the effective project status.
func (s *State) Status() access.ProjectStatus { return s.config.EffectiveStatus() }

// StatePermitsRead reports whether the project status allows reads at all.
func (s *State) StatePermitsRead() bool {
	switch s.Status() {
	case access.StatusActive, access.StatusReadOnly:
		return true
	default:
		return false
	}
}

// StatePermitsWrite reports whether the project status allows writes.
func (s *State) StatePermitsWrite() bool {
	return s.Status() == access.StatusActive
}

// LocalOwners returns the groups granted owner on refs/* in this project,
// ignoring inheritance.
func (s *State) LocalOwners() []access.GroupReference { return s.localOwners }

// LocalAccessSections returns the project's own sections in declaration
// order.
func (s *State) LocalAccessSections() []*access.AccessSection {
	return s.config.AccessSections
}

// LocalLabelTypes returns the label types declared by this project.
func (s *State) LocalLabelTypes() []*access.LabelType { return s.config.LabelTypes }

// SectionMatchers returns the compiled matchers for the local sections,
// compiling them on first use. Sections with invalid patterns are skipped.
func (s *State) SectionMatchers() []SectionMatcher {
	s.matchersOnce.Do(func() {
		s.matchers = make([]SectionMatcher, 0, len(s.config.AccessSections))
		for _, sec := range s.config.AccessSections {
			m, err := refpattern.NewMatcher(sec.Name)
			if err != nil {
				logger.Warn("Ignoring access section with invalid pattern",
					logger.Project(s.Name()), logger.Pattern(sec.Name), logger.Err(err))
				continue
			}
			s.matchers = append(s.matchers, SectionMatcher{Section: sec, Matcher: m})
		}
	})
	return s.matchers
}

// needsRefresh reports whether the revision must be compared with the
// store before serving the state at generation. A generation of zero or
// less always checks.
func (s *State) needsRefresh(generation int64) bool {
	if generation <= 0 {
		return true
	}
	return s.checked.Load() != generation
}

func (s *State) markChecked(generation int64) {
	s.checked.Store(generation)
}
