package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pawcart/internal/testutil"
	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// loggedIn returns a client whose credentials hold a fresh session for
// alice on fake.
func loggedIn(t *testing.T, fake *testutil.FakeAPI, opts ...Option) (*Client, *testutil.Credentials) {
	t.Helper()
	fake.AddUser("alice", "secret", types.User{ID: 1, Role: types.RoleAdopter})
	creds := testutil.NewCredentials("", "")
	c := New(fake.URL(), creds, opts...)

	res, err := c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	require.NoError(t, creds.SetTokens(res.Credentials))
	return c, creds
}

func TestClient_Login(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("alice", "secret", types.User{ID: 1, Email: "a@example.com", Role: types.RoleAdopter})
	c := New(fake.URL(), testutil.NewCredentials("", ""))

	res, err := c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "alice", res.User.Username)
	assert.Equal(t, int64(1), res.User.ID)

	_, err = c.Login(context.Background(), "alice", "wrong")
	var apiErr *types.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid username or password", apiErr.Message)
	assert.Equal(t, 0, fake.Calls(testutil.RouteRefresh), "login failures never refresh")
}

func TestClient_GuestAddMintsToken(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddPets(7, 9)
	c := New(fake.URL(), testutil.NewCredentials("", ""))
	ctx := context.Background()

	first, err := c.AddToCart(ctx, 7, "")
	require.NoError(t, err)
	require.True(t, first.IsGuest())
	assert.Len(t, first.Pets, 1)

	second, err := c.AddToCart(ctx, 9, first.Token)
	require.NoError(t, err)
	assert.Equal(t, first.Token, second.Token)
	assert.Len(t, second.Pets, 2)

	ids, ok := fake.GuestCart(first.Token)
	require.True(t, ok)
	assert.Equal(t, []int64{7, 9}, ids)
	assert.Equal(t, []string{"", ""}, fake.AuthHeaders(testutil.RouteAdd), "guests send no bearer")
}

func TestClient_AuthenticatedAddGoesToUserCart(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddPets(3)
	c, creds := loggedIn(t, fake)

	res, err := c.AddToCart(context.Background(), 3, "")
	require.NoError(t, err)
	assert.False(t, res.IsGuest())
	assert.Equal(t, int64(1), res.UserID)
	assert.Equal(t, []int64{3}, fake.UserCart("alice"))

	tokens, _ := creds.Tokens()
	assert.Equal(t, []string{"Bearer " + tokens.AccessToken}, fake.AuthHeaders(testutil.RouteAdd))
}

func TestClient_AddRejectsInvalidPet(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	c := New(fake.URL(), testutil.NewCredentials("", ""))

	_, err := c.AddToCart(context.Background(), 0, "")
	assert.ErrorIs(t, err, types.ErrInvalidPetID)
	assert.Equal(t, 0, fake.Calls(testutil.RouteAdd))

	_, err = c.AddToCart(context.Background(), 404, "")
	var apiErr *types.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Pet not found", apiErr.Message)
}

func TestClient_GuestCartFetchAndRemove(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddPets(1, 2)
	fake.SeedGuestCart("tok", 1, 2)
	c := New(fake.URL(), testutil.NewCredentials("", ""))
	ctx := context.Background()

	gc, err := c.GetGuestCart(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "tok", gc.Token)
	assert.Len(t, gc.Pets, 2)

	gc, err = c.RemoveFromGuestCart(ctx, 1, "tok")
	require.NoError(t, err)
	require.Len(t, gc.Pets, 1)
	assert.Equal(t, int64(2), gc.Pets[0].ID)

	unknown, err := c.GetGuestCart(ctx, "nope")
	require.NoError(t, err, "the server answers [] for unknown tokens")
	assert.Empty(t, unknown.Pets)

	_, err = c.GetGuestCart(ctx, "")
	assert.ErrorIs(t, err, types.ErrNoGuestToken)
}

func TestClient_UserCartRemoveAndClear(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddPets(1, 2, 3)
	c, _ := loggedIn(t, fake)
	fake.SeedUserCart("alice", 1, 2, 3)
	ctx := context.Background()

	pets, err := c.RemoveFromUserCart(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, pets, 2)

	require.NoError(t, c.ClearUserCart(ctx))
	pets, err = c.GetUserCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, pets)
	assert.NotNil(t, pets)
}

func TestClient_Merge(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddPets(7, 9, 11)
	c, _ := loggedIn(t, fake)
	fake.SeedUserCart("alice", 11, 7)
	fake.SeedGuestCart("tok", 7, 9)
	ctx := context.Background()

	res, err := c.MergeCart(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, testutil.MsgMerged, res.Message)
	assert.False(t, res.HasCart)
	assert.Equal(t, []int64{11, 7, 9}, fake.UserCart("alice"))

	_, ok := fake.GuestCart("tok")
	assert.False(t, ok)

	res, err = c.MergeCart(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, testutil.MsgNothingMerged, res.Message)

	_, err = c.MergeCart(ctx, "")
	assert.ErrorIs(t, err, types.ErrNoGuestToken)
}

func TestClient_RefreshOn401(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddPets(5)
	c, creds := loggedIn(t, fake)
	fake.SeedUserCart("alice", 5)
	before, _ := creds.Tokens()

	fake.ExpireAccessTokens()

	pets, err := c.GetUserCart(context.Background())
	require.NoError(t, err)
	assert.Len(t, pets, 1)

	assert.Equal(t, 1, fake.Calls(testutil.RouteRefresh))
	assert.Equal(t, 2, fake.Calls(testutil.RouteUserCart), "original request retried once")

	after, _ := creds.Tokens()
	assert.NotEqual(t, before.AccessToken, after.AccessToken)
	assert.Equal(t, before.RefreshToken, after.RefreshToken)
}

func TestClient_RefreshFailureExpiresSession(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	var expired atomic.Int32
	c, creds := loggedIn(t, fake, WithSessionExpiredHook(func() { expired.Add(1) }))

	fake.ExpireAccessTokens()
	fake.FailRefresh()

	_, err := c.GetUserCart(context.Background())
	assert.ErrorIs(t, err, types.ErrSessionExpired)
	assert.Equal(t, int32(1), expired.Load())
	assert.Equal(t, 1, creds.Cleared())

	tokens, _ := creds.Tokens()
	assert.Empty(t, tokens.AccessToken)
	assert.Empty(t, tokens.RefreshToken)
	assert.Equal(t, 1, fake.Calls(testutil.RouteUserCart), "no retry without a new token")
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestClient_CancelledCallerKeepsSession(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddPets(5)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The caller goes away while the refresh is on the wire.
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if strings.HasSuffix(r.URL.Path, "/auth/refresh") {
			cancel()
		}
		return http.DefaultTransport.RoundTrip(r)
	})
	var expired atomic.Int32
	c, creds := loggedIn(t, fake,
		WithHTTPClient(&http.Client{Transport: rt}),
		WithSessionExpiredHook(func() { expired.Add(1) }))
	before, _ := creds.Tokens()
	fake.ExpireAccessTokens()

	_, err := c.GetUserCart(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, types.ErrSessionExpired))

	require.Eventually(t, func() bool {
		after, _ := creds.Tokens()
		return after.AccessToken != "" && after.AccessToken != before.AccessToken
	}, 2*time.Second, 10*time.Millisecond, "refresh completes for other callers")
	assert.Equal(t, int32(0), expired.Load())
	assert.Equal(t, 0, creds.Cleared())
	assert.Equal(t, 1, fake.Calls(testutil.RouteRefresh))

	_, err = c.GetUserCart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Calls(testutil.RouteRefresh))
}

func TestClient_401WithoutRefreshToken(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	c := New(fake.URL(), testutil.NewCredentials("stale", ""))

	_, err := c.GetUserCart(context.Background())
	assert.ErrorIs(t, err, types.ErrUnauthorized)
	assert.False(t, errors.Is(err, types.ErrSessionExpired))
	assert.Equal(t, 0, fake.Calls(testutil.RouteRefresh))
}

func TestClient_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	c, _ := loggedIn(t, fake)
	fake.ExpireAccessTokens()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.GetUserCart(context.Background())
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, fake.Calls(testutil.RouteRefresh))
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty body", "", types.GenericErrorMessage},
		{"plain text", "Pet not found", "Pet not found"},
		{"json string", `"Missing token"`, "Missing token"},
		{"json message", `{"message":"Cart locked"}`, "Cart locked"},
		{"json error", `{"error":"Bad Request","status":400}`, "Bad Request"},
		{"json object without text", `{"status":500}`, types.GenericErrorMessage},
		{"json array", `[1,2]`, types.GenericErrorMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorMessage([]byte(tt.body)))
		})
	}
}

func TestDecodeMerge(t *testing.T) {
	assert.Equal(t, MergeResult{Message: "Merged"}, decodeMerge([]byte("Merged")))
	assert.Equal(t, MergeResult{Message: "Merged"}, decodeMerge([]byte(`"Merged"`)))

	res := decodeMerge([]byte(`{"pets":[{"id":4,"name":"Rex","age":2}]}`))
	assert.True(t, res.HasCart)
	require.Len(t, res.Pets, 1)
	assert.Equal(t, int64(4), res.Pets[0].ID)
}
