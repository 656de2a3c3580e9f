package httpapi

import (
	"sync"
	"time"
)

// refreshStore tracks issued refresh-token hashes in memory, keyed by the
// hash itself (never the raw token). Grounded on security.CSRFStore's
// mutex-guarded map shape; refresh tokens are rotated on every use
// (spec §4.6: a stolen refresh token is only good for one exchange).
type refreshStore struct {
	mu      sync.Mutex
	entries map[string]refreshEntry
}

type refreshEntry struct {
	userID    string
	expiresAt time.Time
}

func newRefreshStore() *refreshStore {
	return &refreshStore{entries: make(map[string]refreshEntry)}
}

func (s *refreshStore) issue(hash, userID string, expiresAt time.Time) {
	s.mu.Lock()
	s.entries[hash] = refreshEntry{userID: userID, expiresAt: expiresAt}
	s.mu.Unlock()
}

// consume validates and rotates out hash in one step; a refresh token is
// usable exactly once.
func (s *refreshStore) consume(hash string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[hash]
	if !ok {
		return "", false
	}
	delete(s.entries, hash)
	if time.Now().After(e.expiresAt) {
		return "", false
	}
	return e.userID, true
}

func (s *refreshStore) revokeAllFor(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, e := range s.entries {
		if e.userID == userID {
			delete(s.entries, hash)
		}
	}
}
