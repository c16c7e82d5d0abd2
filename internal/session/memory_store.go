package session

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	data      Data
	expiresAt time.Time
}

// MemoryStore is used when no Redis URL is configured. Sessions do not
// survive a restart.
type MemoryStore struct {
	mu      sync.Mutex
	refresh map[string]entry
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		refresh: make(map[string]entry),
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryStore) SaveRefresh(_ context.Context, tokenHash string, data Data, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if data.CreatedAt.IsZero() {
		data.CreatedAt = now.UTC()
	}
	if !expiresAt.After(now) {
		expiresAt = now.Add(defaultRefreshTTL)
	}
	s.sweep(now)
	s.refresh[tokenHash] = entry{data: data, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) ConsumeRefresh(_ context.Context, tokenHash string) (Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.refresh[tokenHash]
	delete(s.refresh, tokenHash)
	if !ok || !s.now().Before(e.expiresAt) {
		return Data{}, ErrNotFound
	}
	return e.data, nil
}

func (s *MemoryStore) RevokeRefresh(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, tokenHash)
	return nil
}

func (s *MemoryStore) RevokeAccess(_ context.Context, jti string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if expiresAt.After(s.now()) {
		s.revoked[jti] = expiresAt
	}
	return nil
}

func (s *MemoryStore) IsAccessRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.revoked[jti]
	return ok && s.now().Before(until), nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// sweep drops expired entries; callers hold mu.
func (s *MemoryStore) sweep(now time.Time) {
	for key, e := range s.refresh {
		if !now.Before(e.expiresAt) {
			delete(s.refresh, key)
		}
	}
	for jti, until := range s.revoked {
		if !now.Before(until) {
			delete(s.revoked, jti)
		}
	}
}
