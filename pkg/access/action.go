package access

import (
	"fmt"
	"strings"
)

// Action is what a rule does for the groups it names.
//
// ALLOW grants, DENY masks a less specific ALLOW with the same pattern,
// permission and group, and BLOCK vetoes the permission for the whole
// inheritance chain unless unblocked in the same project. INTERACTIVE and
// BATCH only apply to global capabilities and never grant on refs.
type Action string

const (
	ActionAllow       Action = "ALLOW"
	ActionDeny        Action = "DENY"
	ActionBlock       Action = "BLOCK"
	ActionInteractive Action = "INTERACTIVE"
	ActionBatch       Action = "BATCH"
)

// IsValid returns true if a is a known action.
func (a Action) IsValid() bool {
	switch a {
	case ActionAllow, ActionDeny, ActionBlock, ActionInteractive, ActionBatch:
		return true
	default:
		return false
	}
}

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// ParseAction parses an action name, case-insensitively.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	if !a.IsValid() {
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidRule, s)
	}
	return a, nil
}
