package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// Well-known keys in the local state namespace. Concurrent writers to the
// same key are not expected; the stores serialize access at the task boundary.
const (
	KeyToken              = "token"
	KeyStudent            = "student"
	KeyGuestFavorites     = "guestFavorites"
	KeyNotifications      = "notifications"
	KeyRememberedEmail    = "rememberedEmail"
	KeyRememberedPassword = "rememberedPassword"
	KeyRememberMe         = "rememberMe"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("storage: key not found")

// Store is the device-local persistent key/value storage. Values are opaque
// strings; callers JSON-encode structured state themselves.
type Store interface {
	GetItem(key string) (string, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// SQLStore persists the key/value namespace in the local state database.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an already-open local state database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) GetItem(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM local_state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLStore) SetItem(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO local_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP) "+
			"ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (s *SQLStore) RemoveItem(key string) error {
	_, err := s.db.Exec("DELETE FROM local_state WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to remove %q: %w", key, err)
	}
	return nil
}

// MemoryStore is an in-memory Store used by tests and as a fallback when no
// local database is available.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

func (s *MemoryStore) GetItem(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.items[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *MemoryStore) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

func (s *MemoryStore) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}
