package testutil

import (
	"sync"

	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// Credentials is an in-memory credential store for API client tests.
type Credentials struct {
	mu      sync.Mutex
	c       types.Credentials
	cleared int
}

// NewCredentials returns a store holding access and refresh.
func NewCredentials(access, refresh string) *Credentials {
	return &Credentials{c: types.Credentials{AccessToken: access, RefreshToken: refresh}}
}

func (s *Credentials) Tokens() (types.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c, nil
}

func (s *Credentials) SetTokens(c types.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = c
	return nil
}

func (s *Credentials) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = types.Credentials{}
	s.cleared++
	return nil
}

// Cleared returns how many times Clear ran.
func (s *Credentials) Cleared() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleared
}
