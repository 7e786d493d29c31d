package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRefPermission(t *testing.T) {
	for _, p := range AllRefPermissions {
		got, err := ParseRefPermission(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	got, err := ParseRefPermission("force-update")
	require.NoError(t, err)
	assert.Equal(t, RefForceUpdate, got)

	_, err = ParseRefPermission("FLY")
	assert.ErrorIs(t, err, ErrUnsupportedPermission)
}

func TestParseChangePermission(t *testing.T) {
	got, err := ParseChangePermission("add_patch_set")
	require.NoError(t, err)
	assert.Equal(t, ChangeAddPatchSet, got)

	_, err = ParseChangePermission("")
	assert.ErrorIs(t, err, ErrUnsupportedPermission)
}

func TestRefPermission_Advice(t *testing.T) {
	assert.Contains(t, RefUpdate.Advice("refs/heads/master"), "'Push' rights")
	assert.Contains(t, RefUpdate.Advice(RefsConfig), "project owners")
	assert.NotEmpty(t, RefSkipValidation.Advice("refs/heads/master"))
}

func TestRefPermission_PermissionName(t *testing.T) {
	name, ok := RefUpdate.PermissionName()
	assert.True(t, ok)
	assert.Equal(t, "push", name)

	_, ok = RefSetHead.PermissionName()
	assert.False(t, ok)
}

func TestParseChangeStatus(t *testing.T) {
	st, err := ParseChangeStatus(" merged ")
	require.NoError(t, err)
	assert.Equal(t, StatusMerged, st)
	assert.True(t, st.IsClosed())
	assert.False(t, st.IsOpen())
	assert.True(t, StatusDraft.IsOpen())

	_, err = ParseChangeStatus("pending")
	assert.Error(t, err)
}

func TestDecision_Err(t *testing.T) {
	assert.NoError(t, Decision{Allowed: true}.Err())

	err := Decision{Permission: "UPDATE", Target: "refs/heads/master", Advice: "ask"}.Err()
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.EqualError(t, err, "UPDATE not permitted on refs/heads/master: ask")
}
