package locale

import (
	"context"
	"sync"
)

// CountryKey is the persistent key holding the visitor's country code.
const CountryKey = "user_country"

// CountryStore persists the country code of one visitor across sessions.
type CountryStore interface {
	Load(ctx context.Context) (string, bool)
	Save(ctx context.Context, countryCode string) error
}

// MemoryStore is an in-process CountryStore.
type MemoryStore struct {
	mu     sync.RWMutex
	value  string
	exists bool
	saves  int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith returns a store already holding code.
func NewMemoryStoreWith(code string) *MemoryStore {
	return &MemoryStore{value: code, exists: true}
}

func (s *MemoryStore) Load(_ context.Context) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.exists
}

func (s *MemoryStore) Save(_ context.Context, countryCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = countryCode
	s.exists = true
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
