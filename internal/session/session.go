// Package session persists the authenticated user's bearer token and display name.
package session

import (
	"errors"
	"fmt"
	"sync"

	"taskmgr/internal/config"
)

// Fixed key names the session is stored under.
const (
	KeyToken    = "token"
	KeyUserName = "userName"
)

// ErrNoSession is returned by Read when no session is stored.
var ErrNoSession = errors.New("no session")

// Session is the current user's credential and display name.
type Session struct {
	Token       string
	DisplayName string
}

// Store holds at most one Session. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save persists s, replacing any prior session.
	Save(s Session) error

	// Read returns the stored session or ErrNoSession.
	Read() (Session, error)

	// Clear removes all session data. Clearing an empty store is not an error.
	Clear() error
}

// Open returns the store named by cfg.SessionStore rooted at cfg.Dir.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.SessionStore {
	case "", config.StoreFile:
		return NewFileStore(cfg.SessionPath()), nil
	case config.StoreSQLite:
		if err := cfg.EnsureDir(); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		return OpenSQLite(cfg.SessionDBPath())
	default:
		return nil, fmt.Errorf("unknown session store: %s", cfg.SessionStore)
	}
}

// Present reports whether store holds a session with a non-empty token.
func Present(store Store) bool {
	s, err := store.Read()
	return err == nil && s.Token != ""
}

// Close releases resources held by store, if any.
func Close(store Store) error {
	if c, ok := store.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu  sync.RWMutex
	s   Session
	set bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements Store.
func (m *MemoryStore) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	m.set = true
	return nil
}

// Read implements Store.
func (m *MemoryStore) Read() (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set || m.s.Token == "" {
		return Session{}, ErrNoSession
	}
	return m.s, nil
}

// Clear implements Store.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = Session{}
	m.set = false
	return nil
}
