package credstore

import "sync"

// MemoryStore keeps tokens for the lifetime of the process only.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens Tokens
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = Tokens{Access: access, Refresh: refresh}
	return nil
}

func (s *MemoryStore) SaveAccess(access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens.Access = access
	return nil
}

func (s *MemoryStore) Read() (Tokens, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens, nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = Tokens{}
	return nil
}
