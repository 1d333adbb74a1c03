package memory

import (
	"context"
	"sync"
	"time"
)

type codeEntry struct {
	value     string
	expiresAt time.Time
}

// CodeStore is a process-local verify.Store. Pending codes are lost on
// restart and are not shared between instances.
type CodeStore struct {
	mu      sync.Mutex
	entries map[string]codeEntry
	now     func() time.Time
}

func NewCodeStore() *CodeStore {
	return &CodeStore{
		entries: make(map[string]codeEntry),
		now:     time.Now,
	}
}

func (s *CodeStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = codeEntry{value: value, expiresAt: now.Add(ttl)}
	return nil
}

func (s *CodeStore) TakeIfValid(_ context.Context, key string, valid func(string) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return false, nil
	}
	if !valid(e.value) {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

// Len reports the number of stored entries, expired or not.
func (s *CodeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
