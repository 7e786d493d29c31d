package access

import "fmt"

// PermissionRange is the set of votes a user may cast for a ranged
// permission.
type PermissionRange struct {
	Name string `json:"name" yaml:"name"`
	Min  int    `json:"min" yaml:"min"`
	Max  int    `json:"max" yaml:"max"`
}

// NewPermissionRange builds a range, swapping reversed bounds.
func NewPermissionRange(name string, lo, hi int) PermissionRange {
	if lo > hi {
		lo, hi = hi, lo
	}
	return PermissionRange{Name: name, Min: lo, Max: hi}
}

// Contains reports whether value is permitted.
func (r PermissionRange) Contains(value int) bool {
	return r.Min <= value && value <= r.Max
}

// IsEmpty reports whether no non-zero vote is permitted.
func (r PermissionRange) IsEmpty() bool {
	return r.Min > r.Max || (r.Min == 0 && r.Max == 0)
}

// Label returns the label the range applies to.
func (r PermissionRange) Label() string {
	return LabelName(r.Name)
}

// String formats the range as NAME[MIN..MAX].
func (r PermissionRange) String() string {
	return fmt.Sprintf("%s[%s..%s]", r.Name, formatVote(r.Min), formatVote(r.Max))
}
