package access

import (
	"fmt"
	"strings"
)

// LabelFunction decides how votes on a label combine into a submit
// requirement. Only PatchSetLock is interpreted by the permission engine.
type LabelFunction string

const (
	FunctionMaxWithBlock LabelFunction = "MaxWithBlock"
	FunctionAnyWithBlock LabelFunction = "AnyWithBlock"
	FunctionMaxNoBlock   LabelFunction = "MaxNoBlock"
	FunctionNoBlock      LabelFunction = "NoBlock"
	FunctionNoOp         LabelFunction = "NoOp"
	FunctionPatchSetLock LabelFunction = "PatchSetLock"
)

// IsValid returns true if f is a known function.
func (f LabelFunction) IsValid() bool {
	switch f {
	case FunctionMaxWithBlock, FunctionAnyWithBlock, FunctionMaxNoBlock,
		FunctionNoBlock, FunctionNoOp, FunctionPatchSetLock:
		return true
	default:
		return false
	}
}

// LabelType describes a review label defined in a project config.
type LabelType struct {
	Name         string         `json:"name" yaml:"name"`
	Function     LabelFunction  `json:"function" yaml:"function"`
	Values       map[int]string `json:"values,omitempty" yaml:"values,omitempty"`
	DefaultValue int            `json:"default_value,omitempty" yaml:"default_value,omitempty"`
}

// IsPatchSetLock reports whether a +1 on this label locks the patch set.
// Matching is case-insensitive on the function name.
func (l *LabelType) IsPatchSetLock() bool {
	return strings.EqualFold(string(l.Function), string(FunctionPatchSetLock))
}

// MinValue returns the lowest defined vote, or 0.
func (l *LabelType) MinValue() int {
	lo, first := 0, true
	for v := range l.Values {
		if first || v < lo {
			lo, first = v, false
		}
	}
	return lo
}

// MaxValue returns the highest defined vote, or 0.
func (l *LabelType) MaxValue() int {
	hi, first := 0, true
	for v := range l.Values {
		if first || v > hi {
			hi, first = v, false
		}
	}
	return hi
}

// Validate checks the label's name and function.
func (l *LabelType) Validate() error {
	if l.Name == "" {
		return fmt.Errorf("label name is required")
	}
	if l.Function != "" && !l.Function.IsValid() {
		return fmt.Errorf("label %s: unknown function %q", l.Name, l.Function)
	}
	return nil
}

// Clone returns a deep copy.
func (l *LabelType) Clone() *LabelType {
	c := *l
	if l.Values != nil {
		c.Values = make(map[int]string, len(l.Values))
		for k, v := range l.Values {
			c.Values[k] = v
		}
	}
	return &c
}
