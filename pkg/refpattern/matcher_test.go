package refpattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUser struct {
	name   string
	emails []string
	id     int
}

func (u fakeUser) Username() string         { return u.name }
func (u fakeUser) EmailAddresses() []string { return u.emails }
func (u fakeUser) AccountID() int           { return u.id }

func TestExactMatcher(t *testing.T) {
	m := MustMatcher("refs/heads/master")
	assert.True(t, m.Match("refs/heads/master", nil))
	assert.False(t, m.Match("refs/heads/master2", nil))
	assert.False(t, m.Match("refs/heads/maste", nil))
	assert.False(t, m.IsUserSpecific())
}

func TestPrefixMatcher(t *testing.T) {
	m := MustMatcher("refs/heads/*")
	assert.True(t, m.Match("refs/heads/x", nil))
	assert.True(t, m.Match("refs/heads/x/y", nil))
	assert.False(t, m.Match("refs/headsx", nil))
	assert.False(t, m.Match("refs/tags/v1", nil))
}

func TestRegexMatcher(t *testing.T) {
	m := MustMatcher("^refs/heads/rel-[0-9]+")
	assert.True(t, m.Match("refs/heads/rel-12", nil))
	assert.False(t, m.Match("refs/heads/rel-12x", nil), "regex must match the whole ref")
	assert.False(t, m.Match("xrefs/heads/rel-1", nil))

	_, err := NewMatcher("^refs/heads/[")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestParameterizedMatcher(t *testing.T) {
	alice := fakeUser{name: "alice"}

	t.Run("Username", func(t *testing.T) {
		m := MustMatcher("refs/heads/${username}/*")
		assert.True(t, m.IsUserSpecific())
		assert.True(t, m.Match("refs/heads/alice/feature", alice))
		assert.False(t, m.Match("refs/heads/bob/feature", alice))
	})

	t.Run("NoIdentityNeverMatches", func(t *testing.T) {
		m := MustMatcher("refs/heads/${username}/*")
		assert.False(t, m.Match("refs/heads/alice/feature", nil))
		assert.False(t, m.Match("refs/heads/alice/feature", fakeUser{}))
	})

	t.Run("RegexQuotesIdentity", func(t *testing.T) {
		m := MustMatcher("^refs/sb/${username}/heads/.*")
		assert.False(t, m.Match("refs/sb/dev/heads/foobar", fakeUser{name: "d.v"}))
		assert.True(t, m.Match("refs/sb/dev/heads/foobar", fakeUser{name: "dev"}))
	})

	t.Run("RegexWithEmail", func(t *testing.T) {
		m := MustMatcher("^refs/sb/${username}/heads/.*")
		u := fakeUser{name: "u", emails: []string{"d.v@ger-rit.org"}}
		d := fakeUser{name: "d", emails: []string{"dev@ger-rit.org"}}
		assert.False(t, m.Match("refs/sb/dev@ger-rit.org/heads/foobar", u))
		assert.True(t, m.Match("refs/sb/dev@ger-rit.org/heads/foobar", d))
	})

	t.Run("RegexPrefix", func(t *testing.T) {
		m := MustMatcher("^refs/sb/${username}/heads/.*")
		pm, ok := m.(*parameterizedMatcher)
		require.True(t, ok)
		assert.Equal(t, "refs/sb/", pm.Prefix())
		assert.False(t, m.Match("refs/heads/dev", fakeUser{name: "dev"}))
	})

	t.Run("ShardedUserID", func(t *testing.T) {
		m := MustMatcher("refs/users/${shardeduserid}")
		u := fakeUser{name: "alice", id: 1000042}
		assert.True(t, m.Match("refs/users/42/1000042", u))
		assert.False(t, m.Match("refs/users/42/1000043", u))
		assert.False(t, m.Match("refs/users/42/1000042", fakeUser{name: "alice"}))
	})
}

func TestShardedUserID(t *testing.T) {
	assert.Equal(t, "05/5", ShardedUserID(5))
	assert.Equal(t, "00/1000000", ShardedUserID(1000000))
}

func TestExpandForUser(t *testing.T) {
	got, ok := ExpandForUser("^refs/sb/${username}/.*", fakeUser{name: "d.v"})
	require.True(t, ok)
	assert.Equal(t, `^refs/sb/d\.v/.*`, got)

	_, ok = ExpandForUser("refs/heads/${username}/*", fakeUser{})
	assert.False(t, ok)
}
