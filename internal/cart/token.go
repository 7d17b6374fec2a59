package cart

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// Tokens manages the guest cart token in local storage.
type Tokens struct {
	storage types.Storage
}

// NewTokens returns a Tokens over storage.
func NewTokens(storage types.Storage) *Tokens {
	return &Tokens{storage: storage}
}

// Current returns the stored guest token, or "" when none is stored.
func (t *Tokens) Current() (string, error) {
	v, _, err := t.storage.GetItem(types.KeyGuestCartToken)
	if err != nil {
		return "", fmt.Errorf("read guest token: %w", err)
	}
	return v, nil
}

// Persist stores token as the guest token. An empty token is ignored.
func (t *Tokens) Persist(token string) error {
	if token == "" {
		return nil
	}
	if err := t.storage.SetItem(types.KeyGuestCartToken, token); err != nil {
		return fmt.Errorf("store guest token: %w", err)
	}
	return nil
}

// Recover returns the stored token, minting and storing one when none is
// stored but guest still holds items. recovered is true while the token is
// one this client minted and no merge of it has succeeded yet, so it stays
// true across restarts and failed merges. An empty guest cart with no token
// returns "".
func (t *Tokens) Recover(guest types.Cart) (token string, recovered bool, err error) {
	token, err = t.Current()
	if err != nil {
		return "", false, err
	}
	if token != "" {
		recovered, err = t.minted(token)
		if err != nil {
			return "", false, err
		}
		return token, recovered, nil
	}
	if guest.IsEmpty() {
		return "", false, nil
	}

	token = newToken()
	// The marker goes first so a crash in between never leaves a minted
	// token that looks server-issued.
	if err := t.storage.SetItem(types.KeyGuestTokenRecovered, token); err != nil {
		return "", false, fmt.Errorf("store recovered marker: %w", err)
	}
	if err := t.Persist(token); err != nil {
		return "", false, err
	}
	return token, true, nil
}

// minted reports whether token carries the recovered marker.
func (t *Tokens) minted(token string) (bool, error) {
	v, ok, err := t.storage.GetItem(types.KeyGuestTokenRecovered)
	if err != nil {
		return false, fmt.Errorf("read recovered marker: %w", err)
	}
	return ok && v == token, nil
}

// Retire removes the stored token and its recovered marker if they still
// equal token. A token replaced in the meantime is left in place.
func (t *Tokens) Retire(token string) (bool, error) {
	removed, err := t.storage.RemoveItemIf(types.KeyGuestCartToken, token)
	if err != nil {
		return false, fmt.Errorf("retire guest token: %w", err)
	}
	if _, err := t.storage.RemoveItemIf(types.KeyGuestTokenRecovered, token); err != nil {
		return removed, fmt.Errorf("retire recovered marker: %w", err)
	}
	return removed, nil
}

// newToken returns a UUIDv7, falling back to v4 if v7 generation fails.
func newToken() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
