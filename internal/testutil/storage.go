package testutil

import (
	"sort"
	"sync"

	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// MemoryStorage is an in-memory types.Storage. A non-nil failure makes every
// call return it, which simulates unavailable or wiped storage.
type MemoryStorage struct {
	mu      sync.Mutex
	items   map[string]string
	failure error
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

// SetFailure makes subsequent calls fail with err. Pass nil to recover.
func (s *MemoryStorage) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
}

func (s *MemoryStorage) GetItem(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return "", false, s.failure
	}
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *MemoryStorage) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return s.failure
	}
	if key == "" {
		return types.ErrInvalidKey
	}
	s.items[key] = value
	return nil
}

func (s *MemoryStorage) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return s.failure
	}
	delete(s.items, key)
	return nil
}

func (s *MemoryStorage) RemoveItemIf(key, expected string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return false, s.failure
	}
	if v, ok := s.items[key]; !ok || v != expected {
		return false, nil
	}
	delete(s.items, key)
	return true, nil
}

// Keys returns the stored keys in sorted order.
func (s *MemoryStorage) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value under key, or "" when absent.
func (s *MemoryStorage) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[key]
}
