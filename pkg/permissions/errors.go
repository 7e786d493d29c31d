package permissions

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedPermission is returned for permission values the
	// evaluator does not know. Unknown permissions are never allowed.
	ErrUnsupportedPermission = errors.New("unsupported permission")

	// ErrPermissionDenied is wrapped by every DeniedError.
	ErrPermissionDenied = errors.New("permission denied")
)

// UnsupportedPermissionError names the rejected permission.
type UnsupportedPermissionError struct {
	Permission string
}

func (e *UnsupportedPermissionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnsupportedPermission, e.Permission)
}

func (e *UnsupportedPermissionError) Unwrap() error { return ErrUnsupportedPermission }

// DeniedError is the error form of a negative Decision.
type DeniedError struct {
	Permission string
	Target     string
	Advice     string
}

func (e *DeniedError) Error() string {
	msg := fmt.Sprintf("%s not permitted", e.Permission)
	if e.Target != "" {
		msg += " on " + e.Target
	}
	if e.Advice != "" {
		msg += ": " + e.Advice
	}
	return msg
}

func (e *DeniedError) Unwrap() error { return ErrPermissionDenied }

// Decision is the outcome of a permission check.
type Decision struct {
	Allowed    bool   `json:"allowed" yaml:"allowed"`
	Permission string `json:"permission" yaml:"permission"`
	Target     string `json:"target" yaml:"target"`
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Advice     string `json:"advice,omitempty" yaml:"advice,omitempty"`
}

// Err returns nil for an allowed decision and a *DeniedError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Permission: d.Permission, Target: d.Target, Advice: d.Advice}
}

func denied(permission, target string, err error) Decision {
	return Decision{Permission: permission, Target: target, Reason: err.Error()}
}
