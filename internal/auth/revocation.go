package auth

import (
	"sync"
	"time"
)

// RevocationList remembers revoked session ids until they expire.
type RevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time // jti -> expiry
}

// NewRevocationList creates an empty list.
func NewRevocationList() *RevocationList {
	return &RevocationList{entries: make(map[string]time.Time)}
}

// Add revokes id until expires. Expired entries are pruned on every add.
func (l *RevocationList) Add(id string, expires time.Time, now time.Time) {
	if id == "" || !expires.After(now) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[id] = expires
	for key, until := range l.entries {
		if !until.After(now) {
			delete(l.entries, key)
		}
	}
}

// Revoked reports whether id is revoked at now.
func (l *RevocationList) Revoked(id string, now time.Time) bool {
	if id == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	until, ok := l.entries[id]
	return ok && until.After(now)
}

// Len returns the number of tracked entries.
func (l *RevocationList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
