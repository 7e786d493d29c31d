package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/refperm/pkg/access"
)

// MemoryStore keeps configs in a map. It is used by tests and by the CLI
// when no persistent backend is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]*access.ProjectConfig

	// loads counts Load calls; tests use it to observe caching.
	loads int
}

// NewMemoryStore returns a store pre-populated with cfgs.
func NewMemoryStore(cfgs ...*access.ProjectConfig) (*MemoryStore, error) {
	s := &MemoryStore{projects: make(map[string]*access.ProjectConfig)}
	for _, cfg := range cfgs {
		if err := s.Create(context.Background(), cfg); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Loads returns how many times Load has been called.
func (s *MemoryStore) Loads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loads
}

func (s *MemoryStore) Load(_ context.Context, name string) (*access.ProjectConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	cfg, ok := s.projects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	}
	return cfg.Clone(), nil
}

func (s *MemoryStore) Revision(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.projects[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	}
	return cfg.Revision, nil
}

func (s *MemoryStore) List(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.projects))
	for n := range s.projects {
		names = append(names, n)
	}
	return names, nil
}

func (s *MemoryStore) Create(_ context.Context, cfg *access.ProjectConfig) error {
	if err := checkCommit(cfg); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[cfg.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProject, cfg.Name)
	}
	c := cfg.Clone()
	c.Revision = newRevision()
	s.projects[c.Name] = c
	return nil
}

func (s *MemoryStore) Commit(_ context.Context, cfg *access.ProjectConfig, expectedRevision, _ string) (string, error) {
	if err := checkCommit(cfg); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.projects[cfg.Name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrProjectNotFound, cfg.Name)
	}
	if expectedRevision != "" && cur.Revision != expectedRevision {
		return "", &StaleRevisionError{Project: cfg.Name, Expected: expectedRevision, Actual: cur.Revision}
	}
	c := cfg.Clone()
	c.Revision = newRevision()
	s.projects[c.Name] = c
	return c.Revision, nil
}

func (s *MemoryStore) SetParent(_ context.Context, child, parent string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.projects[child]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrProjectNotFound, child)
	}
	c := cur.Clone()
	c.Parent = parent
	c.Revision = newRevision()
	s.projects[child] = c
	return c.Revision, nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[name]; !ok {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	}
	delete(s.projects, name)
	return nil
}

func (s *MemoryStore) Rename(_ context.Context, oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.projects[oldName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, oldName)
	}
	if _, taken := s.projects[newName]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateProject, newName)
	}
	c := cur.Clone()
	c.Name = newName
	c.Revision = newRevision()
	delete(s.projects, oldName)
	s.projects[newName] = c

	for name, p := range s.projects {
		if p.Parent == oldName {
			moved := p.Clone()
			moved.Parent = newName
			moved.Revision = newRevision()
			s.projects[name] = moved
		}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
