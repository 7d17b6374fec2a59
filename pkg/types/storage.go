package types

import "errors"

// Well-known storage keys. The names match what the web client kept in
// browser local storage so a shared data dir stays readable by both.
const (
	KeyGuestCartToken = "guestCartToken"
	KeyAccessToken    = "accessToken"
	KeyRefreshToken   = "refreshToken"
	KeyUser           = "user"
	KeyPersistedCart  = "persist:cart"

	// KeyGuestTokenRecovered holds the guest token when it was minted on
	// the client and the server has never seen it.
	KeyGuestTokenRecovered = "guestCartTokenRecovered"
)

// Storage is a string key/value store with browser localStorage semantics.
// GetItem reports ok=false for a missing key; RemoveItem on a missing key
// succeeds.
type Storage interface {
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
	RemoveItem(key string) error

	// RemoveItemIf deletes key only while it still holds expected and
	// reports whether it did.
	RemoveItemIf(key, expected string) (bool, error)
}

// Backend is a Storage that must be attached before use and detached when
// done.
type Backend interface {
	Storage

	// Attach opens the backend described by config. Creates DataDir if it
	// does not exist. Returns ErrAlreadyAttached if called while attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent.
	// After Detach, operations return ErrDetached.
	Detach() error

	// Keys lists every stored key in sorted order.
	Keys() ([]string, error)
}

// Storage lifecycle errors.
var (
	ErrDetached           = errors.New("storage is detached")
	ErrAlreadyAttached    = errors.New("storage is already attached")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidKey         = errors.New("storage key must not be empty")
)
