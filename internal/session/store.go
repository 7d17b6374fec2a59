// Package session owns the authenticated session: stored credentials, the
// user profile, and login/logout with change notifications.
package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// Store keeps credentials and the user profile in local storage under the
// accessToken, refreshToken and user keys. It satisfies api.Credentials.
type Store struct {
	storage types.Storage
}

// NewStore returns a Store over storage.
func NewStore(storage types.Storage) *Store {
	return &Store{storage: storage}
}

// Tokens returns the stored credentials. Missing keys yield empty strings.
func (s *Store) Tokens() (types.Credentials, error) {
	access, _, err := s.storage.GetItem(types.KeyAccessToken)
	if err != nil {
		return types.Credentials{}, err
	}
	refresh, _, err := s.storage.GetItem(types.KeyRefreshToken)
	if err != nil {
		return types.Credentials{}, err
	}
	return types.Credentials{AccessToken: access, RefreshToken: refresh}, nil
}

// SetTokens stores c. An empty refresh token leaves the stored one alone.
func (s *Store) SetTokens(c types.Credentials) error {
	if err := s.storage.SetItem(types.KeyAccessToken, c.AccessToken); err != nil {
		return err
	}
	if c.RefreshToken == "" {
		return nil
	}
	return s.storage.SetItem(types.KeyRefreshToken, c.RefreshToken)
}

// Clear removes the credentials and the user profile.
func (s *Store) Clear() error {
	var errs []error
	for _, k := range []string{types.KeyAccessToken, types.KeyRefreshToken, types.KeyUser} {
		if err := s.storage.RemoveItem(k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetUser stores the user profile.
func (s *Store) SetUser(u types.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.storage.SetItem(types.KeyUser, string(data))
}

// User returns the stored profile. ok is false when none is stored.
func (s *Store) User() (types.User, bool, error) {
	raw, ok, err := s.storage.GetItem(types.KeyUser)
	if err != nil || !ok {
		return types.User{}, false, err
	}
	var u types.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return types.User{}, false, fmt.Errorf("decode user: %w", err)
	}
	return u, true, nil
}
