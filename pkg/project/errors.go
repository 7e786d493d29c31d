package project

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSuchProject is returned when a project does not exist.
	ErrNoSuchProject = errors.New("no such project")

	// ErrCycle is returned when a parent change would make a project its
	// own ancestor.
	ErrCycle = errors.New("project hierarchy cycle")

	// ErrRootReparenting is returned when changing the parent of the root
	// project.
	ErrRootReparenting = errors.New("cannot change the parent of the root project")

	// ErrBackendUnavailable is returned when the project store fails.
	ErrBackendUnavailable = errors.New("project backend unavailable")
)

// CycleError reports a rejected parent change.
type CycleError struct {
	Child  string
	Parent string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cannot set parent of %s to %s: %s is already an ancestor of %s",
		e.Child, e.Parent, e.Child, e.Parent)
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// BackendError wraps a store failure while reading project.
type BackendError struct {
	Project string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("load project %s: %v", e.Project, e.Err)
}

// Unwrap exposes both ErrBackendUnavailable and the store error.
func (e *BackendError) Unwrap() []error {
	return []error{ErrBackendUnavailable, e.Err}
}

func noSuchProject(name string) error {
	return fmt.Errorf("%w: %s", ErrNoSuchProject, name)
}
