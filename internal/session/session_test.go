package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pawcart/internal/api"
	"github.com/mesh-intelligence/pawcart/internal/testutil"
	"github.com/mesh-intelligence/pawcart/pkg/types"
)

func newManager(t *testing.T) (*Manager, *testutil.MemoryStorage, *testutil.FakeAPI) {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("alice", "secret", types.User{ID: 1, Role: types.RoleAdopter})
	storage := testutil.NewMemoryStorage()
	store := NewStore(storage)
	return NewManager(store, api.New(fake.URL(), store), nil), storage, fake
}

func TestStore_Tokens(t *testing.T) {
	storage := testutil.NewMemoryStorage()
	s := NewStore(storage)

	c, err := s.Tokens()
	require.NoError(t, err)
	assert.Equal(t, types.Credentials{}, c)

	require.NoError(t, s.SetTokens(types.Credentials{AccessToken: "a1", RefreshToken: "r1"}))
	require.NoError(t, s.SetTokens(types.Credentials{AccessToken: "a2"}))

	c, err = s.Tokens()
	require.NoError(t, err)
	assert.Equal(t, types.Credentials{AccessToken: "a2", RefreshToken: "r1"}, c)
	assert.Equal(t, "a2", storage.Get(types.KeyAccessToken))
}

func TestStore_ClearRemovesProfile(t *testing.T) {
	storage := testutil.NewMemoryStorage()
	s := NewStore(storage)
	require.NoError(t, s.SetTokens(types.Credentials{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, s.SetUser(types.User{ID: 3, Username: "bob"}))
	require.NoError(t, storage.SetItem(types.KeyGuestCartToken, "guest"))

	require.NoError(t, s.Clear())

	assert.Equal(t, []string{types.KeyGuestCartToken}, storage.Keys(), "guest token is not a credential")
	_, ok, err := s.User()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManager_LoginRunsListeners(t *testing.T) {
	m, storage, _ := newManager(t)
	assert.False(t, m.IsAuthenticated())

	var seen []string
	m.OnLogin(func(ctx context.Context, u types.User) { seen = append(seen, "first:"+u.Username) })
	m.OnLogin(func(ctx context.Context, u types.User) { seen = append(seen, "second:"+u.Username) })

	u, err := m.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, []string{"first:alice", "second:alice"}, seen)

	assert.True(t, m.IsAuthenticated())
	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, int64(1), cur.ID)
	assert.NotEmpty(t, storage.Get(types.KeyRefreshToken))
}

func TestManager_LoginFailureLeavesGuest(t *testing.T) {
	m, _, _ := newManager(t)
	called := false
	m.OnLogin(func(context.Context, types.User) { called = true })

	_, err := m.Login(context.Background(), "alice", "nope")
	require.Error(t, err)
	assert.False(t, called)
	assert.False(t, m.IsAuthenticated())
}

func TestManager_Logout(t *testing.T) {
	m, _, _ := newManager(t)
	_, err := m.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	loggedOut := 0
	m.OnLogout(func() { loggedOut++ })

	require.NoError(t, m.Logout())
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, 1, loggedOut)
	_, ok := m.Current()
	assert.False(t, ok)
}

func TestManager_StorageFailureIsUnauthenticated(t *testing.T) {
	m, storage, _ := newManager(t)
	_, err := m.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	storage.SetFailure(errors.New("disk gone"))
	assert.False(t, m.IsAuthenticated())
}
