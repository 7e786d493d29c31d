package access

import (
	"errors"
	"testing"

	"github.com/marmos91/refperm/pkg/refpattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var devs = GroupReference{UUID: "devs-uuid", Name: "Developers"}

func TestParseRule(t *testing.T) {
	tests := []struct {
		in   string
		want Rule
	}{
		{"group Developers", Rule{Action: ActionAllow, Group: GroupReference{Name: "Developers"}}},
		{"deny group Registered Users", Rule{Action: ActionDeny, Group: GroupReference{Name: "Registered Users"}}},
		{"block +force group Anonymous Users", Rule{Action: ActionBlock, Force: true, Group: GroupReference{Name: "Anonymous Users"}}},
		{"-2..+2 group Developers", Rule{Action: ActionAllow, Min: -2, Max: 2, Group: GroupReference{Name: "Developers"}}},
		{"block -1..+1 group Developers", Rule{Action: ActionBlock, Min: -1, Max: 1, Group: GroupReference{Name: "Developers"}}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRule(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
			assert.Equal(t, tt.in, got.String())
		})
	}

	for _, bad := range []string{"", "deny", "block +force", "x..y group A", "group "} {
		_, err := ParseRule(bad)
		assert.True(t, errors.Is(err, ErrInvalidRule), "%q should be rejected", bad)
	}
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("block")
	require.NoError(t, err)
	assert.Equal(t, ActionBlock, a)

	_, err = ParseAction("maybe")
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestPermission_AddReplacesSameGroup(t *testing.T) {
	p := NewPermission(Push)
	p.Add(NewRule(devs))
	p.Add(&Rule{Group: devs, Action: ActionBlock})

	require.Len(t, p.Rules, 1)
	assert.Equal(t, ActionBlock, p.Rules[0].Action)

	assert.True(t, p.Remove(devs))
	assert.False(t, p.Remove(devs))
	assert.Empty(t, p.Rules)
}

func TestPermissionNames(t *testing.T) {
	assert.True(t, IsLabel("label-Code-Review"))
	assert.True(t, IsLabelAs("labelAs-Code-Review"))
	assert.True(t, HasRange("label-Verified"))
	assert.False(t, HasRange(Push))
	assert.Equal(t, "Code-Review", LabelName("label-Code-Review"))
	assert.Equal(t, "Code-Review", LabelName("labelAs-Code-Review"))
	assert.Equal(t, "", LabelName(Read))

	assert.True(t, IsKnownName(Push))
	assert.True(t, IsKnownName("label-Verified"))
	assert.False(t, IsKnownName("label-"))
	assert.False(t, IsKnownName("fly"))
}

func TestPermissionRange(t *testing.T) {
	r := NewPermissionRange("label-Code-Review", 2, -2)
	assert.Equal(t, -2, r.Min)
	assert.Equal(t, 2, r.Max)
	assert.True(t, r.Contains(0))
	assert.True(t, r.Contains(-2))
	assert.False(t, r.Contains(3))
	assert.False(t, r.IsEmpty())
	assert.Equal(t, "label-Code-Review[-2..+2]", r.String())
	assert.Equal(t, "Code-Review", r.Label())

	assert.True(t, PermissionRange{}.IsEmpty())
	assert.True(t, PermissionRange{Min: 1, Max: -1}.IsEmpty())
}

func TestAccessSection_AddPermissionMerges(t *testing.T) {
	s := NewAccessSection("refs/heads/*")
	s.AddPermission(&Permission{Name: Push, Rules: []*Rule{NewRule(devs)}})
	s.AddPermission(&Permission{Name: Push, ExclusiveGroup: true, Rules: []*Rule{
		NewRule(GroupReference{UUID: "qa", Name: "QA"}),
	}})

	require.Len(t, s.Permissions, 1)
	p := s.Permission(Push)
	assert.True(t, p.ExclusiveGroup)
	assert.Len(t, p.Rules, 2)
}

func TestProjectConfig_Validate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		c := NewProjectConfig("p")
		c.Grant("refs/heads/*", Read, NewRule(devs))
		c.Grant("^refs/tags/v[0-9]+", Push, NewRule(devs))
		assert.NoError(t, c.Validate())
	})

	t.Run("CollectsAllErrors", func(t *testing.T) {
		c := NewProjectConfig("p")
		c.Grant("refs/heads/a..b", Read, NewRule(devs))
		c.Grant("^refs/[", Read, NewRule(devs))
		c.LabelTypes = append(c.LabelTypes, &LabelType{Name: "X", Function: "Bogus"})

		err := c.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, refpattern.ErrInvalidPattern)

		var joined interface{ Unwrap() []error }
		require.True(t, errors.As(err, &joined))
		assert.Len(t, joined.Unwrap(), 3)
	})

	t.Run("SelfParent", func(t *testing.T) {
		c := NewProjectConfig("p")
		c.Parent = "p"
		assert.Error(t, c.Validate())
	})
}

func TestProjectConfig_OwnerGroups(t *testing.T) {
	c := NewProjectConfig("p")
	c.Grant(refpattern.AllRefs, Owner, NewRule(devs))
	c.Grant(refpattern.AllRefs, Owner, &Rule{Group: GroupReference{UUID: "qa"}, Action: ActionDeny})
	c.Grant("refs/heads/*", Owner, NewRule(GroupReference{UUID: "other"}))

	assert.Equal(t, []GroupReference{devs}, c.OwnerGroups())
}

func TestProjectConfig_CloneIsDeep(t *testing.T) {
	c := NewProjectConfig("p")
	c.Grant("refs/heads/*", Read, NewRule(devs))
	c.LabelTypes = []*LabelType{{Name: "Code-Review", Values: map[int]string{1: "ok"}}}

	clone := c.Clone()
	clone.AccessSections[0].Permissions[0].Rules[0].Action = ActionDeny
	clone.LabelTypes[0].Values[2] = "great"

	assert.Equal(t, ActionAllow, c.AccessSections[0].Permissions[0].Rules[0].Action)
	assert.Len(t, c.LabelTypes[0].Values, 1)
}

func TestParseProjectStatus(t *testing.T) {
	st, err := ParseProjectStatus("read-only")
	require.NoError(t, err)
	assert.Equal(t, StatusReadOnly, st)

	st, err = ParseProjectStatus("")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, st)

	_, err = ParseProjectStatus("frozen")
	assert.Error(t, err)
}

func TestLabelType(t *testing.T) {
	l := &LabelType{Name: "Lock", Function: "patchsetlock", Values: map[int]string{0: "", 1: "Locked"}}
	assert.True(t, l.IsPatchSetLock())
	assert.Equal(t, 0, l.MinValue())
	assert.Equal(t, 1, l.MaxValue())
}
