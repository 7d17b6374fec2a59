package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// Route names counted by FakeAPI.Calls.
const (
	RouteLogin      = "login"
	RouteRefresh    = "refresh"
	RouteAdd        = "add"
	RouteGuestCart  = "guest-cart"
	RouteUserCart   = "user-cart"
	RouteRemoveGst  = "remove-guest"
	RouteRemoveUser = "remove-user"
	RouteClear      = "clear"
	RouteMerge      = "merge"
)

// Server messages, copied from the production API so client parsing is
// exercised against the real shapes.
const (
	MsgMerged        = "Merged guest cart into user cart!"
	MsgNothingMerged = "No guest cart to merge"
	MsgUnauthorized  = "User not authenticated"
)

type fakeUser struct {
	password string
	profile  types.User
}

// FakeAPI is an httptest server implementing the cart and auth endpoints
// with the same response shapes as the production API. It is safe for
// concurrent use.
type FakeAPI struct {
	server *httptest.Server

	mu         sync.Mutex
	pets       map[int64]types.Pet
	users      map[string]fakeUser
	access     map[string]string // access token -> username
	refresh    map[string]string // refresh token -> username
	guestCarts map[string][]int64
	userCarts  map[string][]int64
	calls      map[string]int
	auth       map[string][]string // route -> Authorization headers seen
	seq        int

	mergeFailures int
	refreshFails  bool
	mergeHook     func()
}

// NewFakeAPI starts a FakeAPI that is closed when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		pets:       make(map[int64]types.Pet),
		users:      make(map[string]fakeUser),
		access:     make(map[string]string),
		refresh:    make(map[string]string),
		guestCarts: make(map[string][]int64),
		userCarts:  make(map[string][]int64),
		calls:      make(map[string]int),
		auth:       make(map[string][]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", f.count(RouteLogin, f.handleLogin))
	mux.HandleFunc("POST /api/auth/refresh", f.count(RouteRefresh, f.handleRefresh))
	mux.HandleFunc("POST /api/guest-cart/add", f.count(RouteAdd, f.handleAdd))
	mux.HandleFunc("GET /api/guest-cart", f.count(RouteGuestCart, f.handleGuestCart))
	mux.HandleFunc("DELETE /api/guest-cart/remove", f.count(RouteRemoveGst, f.handleRemoveGuest))
	mux.HandleFunc("GET /api/guest-cart/user-cart", f.count(RouteUserCart, f.handleUserCart))
	mux.HandleFunc("DELETE /api/guest-cart/user-cart/remove", f.count(RouteRemoveUser, f.handleRemoveUser))
	mux.HandleFunc("DELETE /api/guest-cart/user-cart/clear", f.count(RouteClear, f.handleClear))
	mux.HandleFunc("POST /api/guest-cart/merge", f.count(RouteMerge, f.handleMerge))

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the API base URL, including the /api prefix.
func (f *FakeAPI) URL() string {
	return f.server.URL + "/api"
}

// Close shuts the server down and drops idle client connections. Safe to
// call before the test cleanup runs; leak checks need it.
func (f *FakeAPI) Close() {
	f.server.Close()
}

// AddPet registers a pet in the catalog.
func (f *FakeAPI) AddPet(p types.Pet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pets[p.ID] = p
}

// AddPets registers pets with ids and generated names.
func (f *FakeAPI) AddPets(ids ...int64) {
	for _, id := range ids {
		f.AddPet(types.Pet{ID: id, Name: fmt.Sprintf("pet-%d", id), Status: "AVAILABLE"})
	}
}

// AddUser registers an account that can log in.
func (f *FakeAPI) AddUser(username, password string, profile types.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile.Username = username
	f.users[username] = fakeUser{password: password, profile: profile}
}

// SeedUserCart sets the server-side cart of username.
func (f *FakeAPI) SeedUserCart(username string, petIDs ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCarts[username] = append([]int64(nil), petIDs...)
}

// SeedGuestCart sets the server-side guest cart for token.
func (f *FakeAPI) SeedGuestCart(token string, petIDs ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guestCarts[token] = append([]int64(nil), petIDs...)
}

// UserCart returns the server-side cart of username.
func (f *FakeAPI) UserCart(username string) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.userCarts[username]...)
}

// GuestCart returns the guest cart for token and whether it exists.
func (f *FakeAPI) GuestCart(token string) ([]int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids, ok := f.guestCarts[token]
	return append([]int64(nil), ids...), ok
}

// FailNextMerges makes the next n merge calls return 500.
func (f *FakeAPI) FailNextMerges(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mergeFailures = n
}

// SetMergeHook installs fn to run at the start of every merge request,
// outside the fake's lock. Tests use it to hold merges in flight.
func (f *FakeAPI) SetMergeHook(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mergeHook = fn
}

// ExpireAccessTokens revokes every issued access token so the next
// authenticated request gets a 401.
func (f *FakeAPI) ExpireAccessTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = make(map[string]string)
}

// FailRefresh makes every refresh exchange return 401.
func (f *FakeAPI) FailRefresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshFails = true
}

// Calls returns how many requests hit route.
func (f *FakeAPI) Calls(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

// AuthHeaders returns the Authorization headers seen on route, in order.
func (f *FakeAPI) AuthHeaders(route string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auth[route]...)
}

func (f *FakeAPI) count(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[route]++
		f.auth[route] = append(f.auth[route], r.Header.Get("Authorization"))
		f.mu.Unlock()
		h(w, r)
	}
}

// caller resolves the bearer token. ok is false when a header was sent but
// is not a live token; anonymous requests return "", true.
// The caller must hold f.mu.
func (f *FakeAPI) caller(r *http.Request) (username string, ok bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", true
	}
	tok, found := strings.CutPrefix(h, "Bearer ")
	if !found {
		return "", false
	}
	u, live := f.access[tok]
	return u, live
}

// nextToken issues a token with the given prefix. The caller must hold f.mu.
func (f *FakeAPI) nextToken(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

// petsFor resolves ids to catalog pets. The caller must hold f.mu.
func (f *FakeAPI) petsFor(ids []int64) []types.Pet {
	pets := make([]types.Pet, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.pets[id]; ok {
			pets = append(pets, p)
		}
	}
	return pets
}

func (f *FakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "bad form")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[r.PostFormValue("username")]
	if !ok || u.password != r.PostFormValue("password") {
		writeText(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	access := f.nextToken("access")
	refresh := f.nextToken("refresh")
	f.access[access] = u.profile.Username
	f.refresh[refresh] = u.profile.Username
	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken":  access,
		"refreshToken": refresh,
		"user":         u.profile,
	})
}

func (f *FakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		writeText(w, http.StatusBadRequest, "Missing refresh token")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	username, ok := f.refresh[body.RefreshToken]
	if !ok || f.refreshFails {
		writeText(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	access := f.nextToken("access")
	f.access[access] = username
	writeJSON(w, http.StatusOK, map[string]string{
		"accessToken":  access,
		"refreshToken": body.RefreshToken,
	})
}

func (f *FakeAPI) handleAdd(w http.ResponseWriter, r *http.Request) {
	petID, err := strconv.ParseInt(r.URL.Query().Get("petId"), 10, 64)
	if err != nil {
		writeText(w, http.StatusBadRequest, "Missing petId")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.pets[petID]; !ok {
		writeText(w, http.StatusBadRequest, "Pet not found")
		return
	}
	username, ok := f.caller(r)
	if !ok {
		writeText(w, http.StatusUnauthorized, MsgUnauthorized)
		return
	}
	if username != "" {
		ids := f.userCarts[username]
		if !slices.Contains(ids, petID) {
			f.userCarts[username] = append(ids, petID)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"userId": f.users[username].profile.ID,
			"pets":   f.petsFor(f.userCarts[username]),
		})
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		token = uuid.NewString()
	}
	ids := f.guestCarts[token]
	if !slices.Contains(ids, petID) {
		ids = append(ids, petID)
	}
	f.guestCarts[token] = ids
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"pets":  f.petsFor(ids),
	})
}

func (f *FakeAPI) handleGuestCart(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	f.mu.Lock()
	defer f.mu.Unlock()

	ids, ok := f.guestCarts[token]
	if !ok {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"pets":  f.petsFor(ids),
	})
}

func (f *FakeAPI) handleRemoveGuest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	petID, err := strconv.ParseInt(q.Get("petId"), 10, 64)
	if err != nil {
		writeText(w, http.StatusBadRequest, "Missing petId")
		return
	}
	token := q.Get("token")
	f.mu.Lock()
	defer f.mu.Unlock()

	ids, ok := f.guestCarts[token]
	if !ok {
		writeText(w, http.StatusNotFound, "Guest cart not found")
		return
	}
	ids = slices.DeleteFunc(ids, func(id int64) bool { return id == petID })
	f.guestCarts[token] = ids
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"pets":  f.petsFor(ids),
	})
}

func (f *FakeAPI) handleUserCart(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	username, ok := f.caller(r)
	if !ok || username == "" {
		writeText(w, http.StatusUnauthorized, MsgUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, f.petsFor(f.userCarts[username]))
}

func (f *FakeAPI) handleRemoveUser(w http.ResponseWriter, r *http.Request) {
	petID, err := strconv.ParseInt(r.URL.Query().Get("petId"), 10, 64)
	if err != nil {
		writeText(w, http.StatusBadRequest, "Missing petId")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	username, ok := f.caller(r)
	if !ok || username == "" {
		writeText(w, http.StatusUnauthorized, MsgUnauthorized)
		return
	}
	ids := slices.DeleteFunc(f.userCarts[username], func(id int64) bool { return id == petID })
	f.userCarts[username] = ids
	writeJSON(w, http.StatusOK, f.petsFor(ids))
}

func (f *FakeAPI) handleClear(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	username, ok := f.caller(r)
	if !ok || username == "" {
		writeText(w, http.StatusUnauthorized, MsgUnauthorized)
		return
	}
	delete(f.userCarts, username)
	writeText(w, http.StatusOK, "Cleared user cart")
}

func (f *FakeAPI) handleMerge(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	hook := f.mergeHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	token := r.URL.Query().Get("token")
	f.mu.Lock()
	defer f.mu.Unlock()

	username, ok := f.caller(r)
	if !ok || username == "" {
		writeText(w, http.StatusUnauthorized, MsgUnauthorized)
		return
	}
	if token == "" {
		writeText(w, http.StatusBadRequest, "Missing token")
		return
	}
	if f.mergeFailures > 0 {
		f.mergeFailures--
		writeText(w, http.StatusInternalServerError, "Merge failed")
		return
	}
	guest, ok := f.guestCarts[token]
	if !ok {
		writeText(w, http.StatusOK, MsgNothingMerged)
		return
	}
	ids := f.userCarts[username]
	for _, id := range guest {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	f.userCarts[username] = ids
	delete(f.guestCarts, token)
	writeText(w, http.StatusOK, MsgMerged)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain;charset=UTF-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
