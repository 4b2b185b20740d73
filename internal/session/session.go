// Package session persists the backend access token between runs.
//
// The token lives under the fixed key TokenKey. FileStore keeps it in a JSON
// file, optionally encrypted with AES-GCM under a passphrase-derived key;
// MemoryStore keeps it for the life of the process.
package session

import (
	"errors"
	"sync"
)

// TokenKey is the key the access token is stored under.
const TokenKey = "token"

// ErrNoToken is returned by Load when no token is stored.
var ErrNoToken = errors.New("no session token stored")

// Store is durable session storage for the access token.
type Store interface {
	// Save replaces the stored token.
	Save(token string) error
	// Load returns the stored token or ErrNoToken.
	Load() (string, error)
	// Clear removes the token. Clearing an empty store is not an error.
	Clear() error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[TokenKey] = token
	return nil
}

func (m *MemoryStore) Load() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.values[TokenKey]
	if !ok {
		return "", ErrNoToken
	}
	return token, nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, TokenKey)
	return nil
}
