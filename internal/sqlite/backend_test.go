package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// attached returns a backend attached to dir and detached at test end.
func attached(t *testing.T, dir string) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	t.Cleanup(func() { b.Detach() })
	return b
}

func TestBackend_Attach(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: tmpDir,
	}

	require.NoError(t, b.Attach(config))
	defer b.Detach()

	if _, err := os.Stat(filepath.Join(tmpDir, "storage.db")); os.IsNotExist(err) {
		t.Error("storage.db not created")
	}

	assert.ErrorIs(t, b.Attach(config), types.ErrAlreadyAttached)
}

func TestBackend_AttachInvalidConfig(t *testing.T) {
	b := NewBackend()
	assert.ErrorIs(t, b.Attach(types.Config{DataDir: t.TempDir()}), types.ErrBackendEmpty)
	assert.ErrorIs(t, b.Attach(types.Config{Backend: "redis"}), types.ErrBackendUnknown)
}

func TestBackend_Detach(t *testing.T) {
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))

	require.NoError(t, b.Detach())
	assert.NoError(t, b.Detach(), "second Detach should not error")

	_, _, err := b.GetItem(types.KeyGuestCartToken)
	assert.ErrorIs(t, err, types.ErrDetached)
	assert.ErrorIs(t, b.SetItem("k", "v"), types.ErrDetached)
	assert.ErrorIs(t, b.RemoveItem("k"), types.ErrDetached)
	_, err = b.RemoveItemIf("k", "v")
	assert.ErrorIs(t, err, types.ErrDetached)
	_, err = b.Keys()
	assert.ErrorIs(t, err, types.ErrDetached)
}

func TestBackend_ItemRoundTrip(t *testing.T) {
	b := attached(t, t.TempDir())

	_, ok, err := b.GetItem(types.KeyGuestCartToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.SetItem(types.KeyGuestCartToken, "tok-1"))
	require.NoError(t, b.SetItem(types.KeyGuestCartToken, "tok-2"))

	v, ok, err := b.GetItem(types.KeyGuestCartToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok-2", v)

	require.NoError(t, b.RemoveItem(types.KeyGuestCartToken))
	require.NoError(t, b.RemoveItem(types.KeyGuestCartToken), "removing a missing key succeeds")

	_, ok, err = b.GetItem(types.KeyGuestCartToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBackend_EmptyKey(t *testing.T) {
	b := attached(t, t.TempDir())

	_, _, err := b.GetItem("")
	assert.ErrorIs(t, err, types.ErrInvalidKey)
	assert.ErrorIs(t, b.SetItem("", "v"), types.ErrInvalidKey)
	assert.ErrorIs(t, b.RemoveItem(""), types.ErrInvalidKey)
}

func TestBackend_RemoveItemIf(t *testing.T) {
	b := attached(t, t.TempDir())
	require.NoError(t, b.SetItem(types.KeyGuestCartToken, "new"))

	removed, err := b.RemoveItemIf(types.KeyGuestCartToken, "old")
	require.NoError(t, err)
	assert.False(t, removed, "a stale expected value must not delete the newer token")

	removed, err = b.RemoveItemIf(types.KeyGuestCartToken, "new")
	require.NoError(t, err)
	assert.True(t, removed)

	_, ok, err := b.GetItem(types.KeyGuestCartToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBackend_PersistsAcrossAttach(t *testing.T) {
	dir := t.TempDir()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend()
	require.NoError(t, b.Attach(cfg))
	require.NoError(t, b.SetItem(types.KeyAccessToken, "bearer"))
	require.NoError(t, b.Detach())

	b2 := NewBackend()
	require.NoError(t, b2.Attach(cfg))
	defer b2.Detach()

	v, ok, err := b2.GetItem(types.KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bearer", v)
}

func TestBackend_Keys(t *testing.T) {
	b := attached(t, t.TempDir())
	require.NoError(t, b.SetItem(types.KeyUser, "{}"))
	require.NoError(t, b.SetItem(types.KeyAccessToken, "a"))

	keys, err := b.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{types.KeyAccessToken, types.KeyUser}, keys)
}
