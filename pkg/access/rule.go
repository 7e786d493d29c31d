package access

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRule is returned when a rule string or rule value is malformed.
var ErrInvalidRule = errors.New("invalid permission rule")

// GroupUUID identifies a group. System groups use the "global:" namespace.
type GroupUUID string

// GroupReference names a group by UUID, with a display name for humans.
type GroupReference struct {
	UUID GroupUUID `json:"uuid" yaml:"uuid"`
	Name string    `json:"name,omitempty" yaml:"name,omitempty"`
}

// String returns the display name, falling back to the UUID.
func (g GroupReference) String() string {
	if g.Name != "" {
		return g.Name
	}
	return string(g.UUID)
}

// Rule grants, denies or blocks a permission for one group.
//
// Min and Max only matter for ranged (label) permissions; boolean
// permissions leave both at zero.
type Rule struct {
	Group  GroupReference `json:"group" yaml:"group"`
	Action Action         `json:"action" yaml:"action"`
	Force  bool           `json:"force,omitempty" yaml:"force,omitempty"`
	Min    int            `json:"min,omitempty" yaml:"min,omitempty"`
	Max    int            `json:"max,omitempty" yaml:"max,omitempty"`
}

// NewRule returns an ALLOW rule for group.
func NewRule(group GroupReference) *Rule {
	return &Rule{Group: group, Action: ActionAllow}
}

// IsAllow reports whether the rule is an ALLOW.
func (r *Rule) IsAllow() bool { return r.Action == ActionAllow }

// IsDeny reports whether the rule is a DENY.
func (r *Rule) IsDeny() bool { return r.Action == ActionDeny }

// IsBlock reports whether the rule is a BLOCK.
func (r *Rule) IsBlock() bool { return r.Action == ActionBlock }

// HasRange reports whether a non-empty vote range is attached.
func (r *Rule) HasRange() bool { return r.Min != 0 || r.Max != 0 }

// SetRange sets the vote range, swapping the bounds if given reversed.
func (r *Rule) SetRange(lo, hi int) {
	if lo > hi {
		lo, hi = hi, lo
	}
	r.Min, r.Max = lo, hi
}

// Clone returns a copy of the rule.
func (r *Rule) Clone() *Rule {
	c := *r
	return &c
}

// Validate checks the rule's action and group.
func (r *Rule) Validate() error {
	if !r.Action.IsValid() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidRule, r.Action)
	}
	if r.Group.UUID == "" && r.Group.Name == "" {
		return fmt.Errorf("%w: group is required", ErrInvalidRule)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%w: range %d..%d is reversed", ErrInvalidRule, r.Min, r.Max)
	}
	return nil
}

// String formats the rule the way it appears in a project config:
//
//	[deny|block|interactive|batch] [+force] [MIN..MAX] group NAME
func (r *Rule) String() string {
	var b strings.Builder
	switch r.Action {
	case ActionDeny:
		b.WriteString("deny ")
	case ActionBlock:
		b.WriteString("block ")
	case ActionInteractive:
		b.WriteString("interactive ")
	case ActionBatch:
		b.WriteString("batch ")
	}
	if r.Force {
		b.WriteString("+force ")
	}
	if r.HasRange() {
		b.WriteString(formatVote(r.Min))
		b.WriteString("..")
		b.WriteString(formatVote(r.Max))
		b.WriteByte(' ')
	}
	b.WriteString("group ")
	b.WriteString(r.Group.String())
	return b.String()
}

func formatVote(v int) string {
	if v > 0 {
		return "+" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}

// ParseRule parses the textual form produced by Rule.String. The returned
// rule's group carries only a name; callers resolve the UUID.
func ParseRule(s string) (*Rule, error) {
	src := strings.TrimSpace(s)
	rest := src
	r := &Rule{Action: ActionAllow}

	if word, tail, ok := strings.Cut(rest, " "); ok {
		switch strings.ToLower(word) {
		case "deny":
			r.Action, rest = ActionDeny, tail
		case "block":
			r.Action, rest = ActionBlock, tail
		case "interactive":
			r.Action, rest = ActionInteractive, tail
		case "batch":
			r.Action, rest = ActionBatch, tail
		}
	}
	rest = strings.TrimSpace(rest)

	if tail, ok := strings.CutPrefix(rest, "+force "); ok {
		r.Force = true
		rest = strings.TrimSpace(tail)
	}

	if word, tail, ok := strings.Cut(rest, " "); ok && strings.Contains(word, "..") {
		lo, hi, _ := strings.Cut(word, "..")
		minVal, err := parseVote(lo)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRule, src, err)
		}
		maxVal, err := parseVote(hi)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRule, src, err)
		}
		r.SetRange(minVal, maxVal)
		rest = strings.TrimSpace(tail)
	}

	name, ok := strings.CutPrefix(rest, "group ")
	if !ok {
		return nil, fmt.Errorf("%w: %q: missing group", ErrInvalidRule, src)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: %q: empty group name", ErrInvalidRule, src)
	}
	r.Group = GroupReference{Name: name}
	return r, nil
}

func parseVote(s string) (int, error) {
	return strconv.Atoi(strings.TrimPrefix(s, "+"))
}
