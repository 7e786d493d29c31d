package store

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/refperm/pkg/access"
	"github.com/marmos91/refperm/pkg/refpattern"
)

var devs = access.GroupReference{UUID: "0b8b5b4e-devs", Name: "Developers"}

func sampleConfig(name, parent string) *access.ProjectConfig {
	cfg := access.NewProjectConfig(name)
	cfg.Parent = parent
	cfg.Description = "sample " + name

	push := access.NewRule(devs)
	push.Force = true
	cfg.Grant("refs/heads/*", access.Push, push).ExclusiveGroup = true

	block := access.NewRule(access.GroupReference{UUID: "global:Anonymous-Users", Name: "Anonymous Users"})
	block.Action = access.ActionBlock
	cfg.Grant("refs/heads/*", access.Read, block)

	vote := access.NewRule(devs)
	vote.SetRange(-2, 2)
	cfg.Grant("refs/*", access.LabelPermission("Code-Review"), vote)

	cfg.LabelTypes = []*access.LabelType{{
		Name:     "Code-Review",
		Function: access.FunctionMaxWithBlock,
		Values:   map[int]string{-2: "No", 0: "Meh", 2: "Yes"},
	}}
	return cfg
}

// runStoreConformance exercises the Store contract against any backend.
func runStoreConformance(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("CreateAndLoad", func(t *testing.T) {
		s := newStore(t)
		want := sampleConfig("platform/api", "platform")
		require.NoError(t, s.Create(ctx, want))

		got, err := s.Load(ctx, "platform/api")
		require.NoError(t, err)
		assert.NotEmpty(t, got.Revision)
		assert.Equal(t, "platform", got.Parent)
		assert.Equal(t, want.Description, got.Description)
		require.Len(t, got.AccessSections, 2)
		assert.Equal(t, "refs/heads/*", got.AccessSections[0].Name)

		push := got.Section("refs/heads/*").Permission(access.Push)
		require.NotNil(t, push)
		assert.True(t, push.ExclusiveGroup)
		require.Len(t, push.Rules, 1)
		assert.Equal(t, devs, push.Rules[0].Group)
		assert.True(t, push.Rules[0].Force)

		read := got.Section("refs/heads/*").Permission(access.Read)
		require.NotNil(t, read)
		assert.True(t, read.Rules[0].IsBlock())

		vote := got.Section("refs/*").Permission("label-Code-Review").Rules[0]
		assert.Equal(t, -2, vote.Min)
		assert.Equal(t, 2, vote.Max)

		require.NotNil(t, got.Label("Code-Review"))
		assert.Equal(t, "Yes", got.Label("Code-Review").Values[2])

		rev, err := s.Revision(ctx, "platform/api")
		require.NoError(t, err)
		assert.Equal(t, got.Revision, rev)
	})

	t.Run("Missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Load(ctx, "nope")
		assert.True(t, errors.Is(err, ErrProjectNotFound))
		_, err = s.Revision(ctx, "nope")
		assert.True(t, errors.Is(err, ErrProjectNotFound))
		assert.True(t, errors.Is(s.Delete(ctx, "nope"), ErrProjectNotFound))
	})

	t.Run("Duplicate", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, sampleConfig("a", "")))
		assert.True(t, errors.Is(s.Create(ctx, sampleConfig("a", "")), ErrDuplicateProject))
	})

	t.Run("CommitChecksRevision", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, sampleConfig("a", "")))
		cfg, err := s.Load(ctx, "a")
		require.NoError(t, err)

		cfg.Description = "edited"
		rev, err := s.Commit(ctx, cfg, cfg.Revision, "edit")
		require.NoError(t, err)
		assert.NotEqual(t, cfg.Revision, rev)

		cfg.Description = "lost update"
		_, err = s.Commit(ctx, cfg, cfg.Revision, "stale")
		assert.True(t, errors.Is(err, ErrStaleRevision))

		got, err := s.Load(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "edited", got.Description)
		assert.Equal(t, rev, got.Revision)
	})

	t.Run("CommitRejectsInvalidPattern", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, sampleConfig("a", "")))
		cfg, err := s.Load(ctx, "a")
		require.NoError(t, err)

		cfg.UpsertSection("refs/heads/bad..name")
		_, err = s.Commit(ctx, cfg, cfg.Revision, "bad")
		assert.True(t, errors.Is(err, refpattern.ErrInvalidPattern))
	})

	t.Run("CommitReplacesSections", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, sampleConfig("a", "")))
		cfg, err := s.Load(ctx, "a")
		require.NoError(t, err)

		cfg.AccessSections = cfg.AccessSections[:1]
		cfg.AccessSections[0].RemovePermission(access.Read)
		_, err = s.Commit(ctx, cfg, "", "trim")
		require.NoError(t, err)

		got, err := s.Load(ctx, "a")
		require.NoError(t, err)
		require.Len(t, got.AccessSections, 1)
		assert.Len(t, got.AccessSections[0].Permissions, 1)
	})

	t.Run("SetParent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, sampleConfig("a", "")))
		before, err := s.Revision(ctx, "a")
		require.NoError(t, err)

		rev, err := s.SetParent(ctx, "a", "b")
		require.NoError(t, err)
		assert.NotEqual(t, before, rev)

		got, err := s.Load(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "b", got.Parent)
		assert.Len(t, got.AccessSections, 2)
	})

	t.Run("ListDeleteRename", func(t *testing.T) {
		s := newStore(t)
		for _, cfg := range []*access.ProjectConfig{
			sampleConfig("parent", ""),
			sampleConfig("child", "parent"),
			sampleConfig("other", ""),
		} {
			require.NoError(t, s.Create(ctx, cfg))
		}

		names, err := s.List(ctx)
		require.NoError(t, err)
		slices.Sort(names)
		assert.Equal(t, []string{"child", "other", "parent"}, names)

		require.NoError(t, s.Rename(ctx, "parent", "root"))
		child, err := s.Load(ctx, "child")
		require.NoError(t, err)
		assert.Equal(t, "root", child.Parent)

		moved, err := s.Load(ctx, "root")
		require.NoError(t, err)
		assert.Len(t, moved.AccessSections, 2)

		assert.True(t, errors.Is(s.Rename(ctx, "other", "root"), ErrDuplicateProject))

		require.NoError(t, s.Delete(ctx, "other"))
		names, err = s.List(ctx)
		require.NoError(t, err)
		slices.Sort(names)
		assert.Equal(t, []string{"child", "root"}, names)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreConformance(t, func(t *testing.T) Store {
		s, err := NewMemoryStore()
		require.NoError(t, err)
		return s
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemoryStore(sampleConfig("a", ""))
	require.NoError(t, err)

	cfg, err := s.Load(ctx, "a")
	require.NoError(t, err)
	cfg.AccessSections = nil

	again, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, again.AccessSections, 2)
	assert.Equal(t, 2, s.Loads())
}

func TestGORMStore_SQLite(t *testing.T) {
	runStoreConformance(t, func(t *testing.T) Store {
		s, err := NewGORMStore(&DatabaseConfig{
			Type:   DatabaseTypeSQLite,
			SQLite: SQLiteConfig{Path: ":memory:"},
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestYAMLStore(t *testing.T) {
	runStoreConformance(t, func(t *testing.T) Store {
		s, err := NewYAMLStore(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestPersistedStore(t *testing.T) {
	runStoreConformance(t, func(t *testing.T) Store {
		inner, err := NewMemoryStore()
		require.NoError(t, err)
		s, err := NewPersistedStore(inner, PersistedConfig{InMemory: true})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestPersistedStore_ServesFromCache(t *testing.T) {
	ctx := context.Background()
	inner, err := NewMemoryStore(sampleConfig("a", ""))
	require.NoError(t, err)
	s, err := NewPersistedStore(inner, PersistedConfig{Path: t.TempDir()})
	require.NoError(t, err)
	defer s.Close()

	first, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.True(t, s.Cached("a", first.Revision))

	second, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.Loads())
	assert.Equal(t, first.Revision, second.Revision)
	assert.Equal(t, first.AccessSections[0].Name, second.AccessSections[0].Name)
	assert.Equal(t, devs, second.AccessSections[0].Permissions[0].Rules[0].Group)

	first.Description = "changed"
	rev, err := s.Commit(ctx, first, first.Revision, "")
	require.NoError(t, err)

	third, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "changed", third.Description)
	assert.Equal(t, 2, inner.Loads())
	assert.False(t, s.Cached("a", first.Revision))
	assert.True(t, s.Cached("a", rev))
}

func TestPersistedStore_NamesSharingAPrefix(t *testing.T) {
	ctx := context.Background()
	inner, err := NewMemoryStore(sampleConfig("a", ""), sampleConfig("a@b", ""))
	require.NoError(t, err)
	s, err := NewPersistedStore(inner, PersistedConfig{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	a, err := s.Load(ctx, "a")
	require.NoError(t, err)
	ab, err := s.Load(ctx, "a@b")
	require.NoError(t, err)

	a.Description = "changed"
	_, err = s.Commit(ctx, a, a.Revision, "")
	require.NoError(t, err)
	assert.True(t, s.Cached("a@b", ab.Revision))

	require.NoError(t, s.Delete(ctx, "a"))
	assert.True(t, s.Cached("a@b", ab.Revision))
}
