package permissions

import (
	"fmt"
	"strings"
)

// ChangeStatus is the lifecycle state of a change.
type ChangeStatus string

const (
	StatusNew       ChangeStatus = "NEW"
	StatusMerged    ChangeStatus = "MERGED"
	StatusAbandoned ChangeStatus = "ABANDONED"
	StatusDraft     ChangeStatus = "DRAFT"
)

// ParseChangeStatus parses a status name case-insensitively.
func ParseChangeStatus(s string) (ChangeStatus, error) {
	st := ChangeStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusNew, StatusMerged, StatusAbandoned, StatusDraft:
		return st, nil
	}
	return "", fmt.Errorf("invalid change status %q", s)
}

// IsOpen reports whether the change can still receive updates.
func (s ChangeStatus) IsOpen() bool {
	return s == StatusNew || s == StatusDraft
}

// IsClosed reports whether the change was merged or abandoned.
func (s ChangeStatus) IsClosed() bool {
	return s == StatusMerged || s == StatusAbandoned
}

// PatchSet is the current revision of a change.
type PatchSet struct {
	ID       int  `json:"id" yaml:"id"`
	Uploader int  `json:"uploader" yaml:"uploader"`
	Draft    bool `json:"draft,omitempty" yaml:"draft,omitempty"`
}

// Change is the subset of a code review change the evaluator reads.
type Change struct {
	ID        int            `json:"id" yaml:"id"`
	Project   string         `json:"project" yaml:"project"`
	Dest      string         `json:"dest" yaml:"dest"`
	Owner     int            `json:"owner" yaml:"owner"`
	Status    ChangeStatus   `json:"status" yaml:"status"`
	Private   bool           `json:"private,omitempty" yaml:"private,omitempty"`
	Reviewers []int          `json:"reviewers,omitempty" yaml:"reviewers,omitempty"`
	PatchSet  PatchSet       `json:"patch_set" yaml:"patch_set"`
	Approvals map[string]int `json:"approvals,omitempty" yaml:"approvals,omitempty"`
}

// IsOpen reports whether the change can still receive updates.
func (c *Change) IsOpen() bool { return c.Status.IsOpen() }
