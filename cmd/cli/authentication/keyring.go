package authentication

// keyring.go keeps the sensitive entries of the local state (the bearer
// credential and the remembered password) in the OS keyring instead of the
// local database. Everything else passes through unchanged.

import (
	"errors"

	"librahub/internal/storage"

	"github.com/zalando/go-keyring"
)

const serviceName = "librahub-cli"

// secretKeys lists the storage keys routed to the OS keyring.
var secretKeys = map[string]bool{
	storage.KeyToken:              true,
	storage.KeyRememberedPassword: true,
}

// KeyringStore implements storage.Store. Secret keys live in the OS keyring
// under the librahub-cli service name, all other keys are delegated to the
// wrapped store.
type KeyringStore struct {
	fallback storage.Store
}

func NewKeyringStore(fallback storage.Store) *KeyringStore {
	return &KeyringStore{fallback: fallback}
}

func (s *KeyringStore) GetItem(key string) (string, error) {
	if !secretKeys[key] {
		return s.fallback.GetItem(key)
	}

	value, err := keyring.Get(serviceName, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		// Keyring unavailable (headless session, locked agent): fall back
		// to the local database entry.
		return s.fallback.GetItem(key)
	}
	return value, nil
}

func (s *KeyringStore) SetItem(key, value string) error {
	if !secretKeys[key] {
		return s.fallback.SetItem(key, value)
	}
	if err := keyring.Set(serviceName, key, value); err != nil {
		return s.fallback.SetItem(key, value)
	}
	return nil
}

func (s *KeyringStore) RemoveItem(key string) error {
	if !secretKeys[key] {
		return s.fallback.RemoveItem(key)
	}

	err := keyring.Delete(serviceName, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return s.fallback.RemoveItem(key)
	}
	// Also clear any fallback copy written while the keyring was unavailable.
	s.fallback.RemoveItem(key)
	return nil
}
