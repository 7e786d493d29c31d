// Package store persists project access configurations.
//
// Every backend hands out deep copies of its configs and stamps each one with
// an opaque revision. Writers pass back the revision they read; a write
// against a newer revision fails with ErrStaleRevision, which is what lets
// several administrators edit the same hierarchy without losing updates.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/marmos91/refperm/pkg/access"
)

// Common store errors.
var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrDuplicateProject = errors.New("project already exists")
	ErrStaleRevision    = errors.New("stale project revision")
)

// Store is a source of project configurations.
type Store interface {
	// Load returns the named project's config, or ErrProjectNotFound.
	Load(ctx context.Context, name string) (*access.ProjectConfig, error)

	// Revision returns the current revision of the named project without
	// parsing it.
	Revision(ctx context.Context, name string) (string, error)

	// List returns every project name, in no particular order.
	List(ctx context.Context) ([]string, error)

	// Create stores a new project. It fails with ErrDuplicateProject if the
	// name is taken.
	Create(ctx context.Context, cfg *access.ProjectConfig) error

	// Commit replaces a project's config if its current revision equals
	// expectedRevision and returns the new revision. An empty
	// expectedRevision skips the check.
	Commit(ctx context.Context, cfg *access.ProjectConfig, expectedRevision, message string) (string, error)

	// SetParent changes only the parent of child and returns the new
	// revision. Cycle checks are the caller's job.
	SetParent(ctx context.Context, child, parent string) (string, error)

	// Delete removes a project.
	Delete(ctx context.Context, name string) error

	// Rename moves a project to a new name. Children pointing at the old
	// name are re-pointed.
	Rename(ctx context.Context, oldName, newName string) error

	// Close releases resources held by the store.
	Close() error
}

// StaleRevisionError reports a commit against an outdated revision.
type StaleRevisionError struct {
	Project  string
	Expected string
	Actual   string
}

func (e *StaleRevisionError) Error() string {
	return fmt.Sprintf("project %s: expected revision %s, found %s", e.Project, e.Expected, e.Actual)
}

func (e *StaleRevisionError) Unwrap() error {
	return ErrStaleRevision
}

// newRevision returns a fresh random revision.
func newRevision() string {
	return uuid.New().String()
}

// checkCommit validates cfg for a write.
func checkCommit(cfg *access.ProjectConfig) error {
	if cfg == nil {
		return errors.New("nil project config")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("project %s: %w", cfg.Name, err)
	}
	return nil
}
