// Package cart keeps the guest and user carts, the guest cart token, and
// reconciles the guest cart into the user cart after login.
package cart

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// snapshot is the persisted form of State.
type snapshot struct {
	GuestCart types.Cart `json:"guestCart"`
	UserCart  types.Cart `json:"userCart"`
}

// State holds the last known guest and user carts and persists them under
// types.KeyPersistedCart so local guest state survives restarts.
type State struct {
	storage types.Storage
	logger  *zap.Logger

	mu    sync.RWMutex
	guest types.Cart
	user  types.Cart
}

// LoadState reads the persisted carts from storage. Missing or unreadable
// state starts empty; only storage failures are returned.
func LoadState(storage types.Storage, logger *zap.Logger) (*State, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &State{storage: storage, logger: logger, guest: types.EmptyCart(), user: types.EmptyCart()}

	raw, ok, err := storage.GetItem(types.KeyPersistedCart)
	if err != nil {
		return s, fmt.Errorf("load cart state: %w", err)
	}
	if !ok {
		return s, nil
	}
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		logger.Warn("discarding unreadable cart state", zap.Error(err))
		return s, nil
	}
	s.guest = normalize(snap.GuestCart)
	s.user = normalize(snap.UserCart)
	return s, nil
}

// normalize rebuilds c through NewCart so duplicates and a stale Total from
// an older snapshot cannot survive a load.
func normalize(c types.Cart) types.Cart {
	pets := make([]types.Pet, 0, len(c.Items))
	for _, it := range c.Items {
		pets = append(pets, it.Pet)
	}
	return types.NewCart(pets)
}

// Guest returns a copy of the guest cart.
func (s *State) Guest() types.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guest.Clone()
}

// User returns a copy of the user cart.
func (s *State) User() types.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// SetGuest replaces the guest cart.
func (s *State) SetGuest(c types.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guest = c.Clone()
	s.saveLocked()
}

// SetUser replaces the user cart.
func (s *State) SetUser(c types.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = c.Clone()
	s.saveLocked()
}

// saveLocked writes the snapshot; s.mu must be held for writing so the
// stored snapshot is always the latest one. A failed write only costs
// persistence, so it is logged and otherwise ignored.
func (s *State) saveLocked() {
	snap := snapshot{GuestCart: s.guest, UserCart: s.user}
	data, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error("encode cart state", zap.Error(err))
		return
	}
	if err := s.storage.SetItem(types.KeyPersistedCart, string(data)); err != nil {
		s.logger.Warn("persist cart state", zap.Error(err))
	}
}
