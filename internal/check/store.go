package check

import (
	"context"
	"sync"
)

// Keys under which a session is persisted in its SessionStore.
const (
	KeyInProgress = "checkInProgress"
	KeyResults    = "checkResults"
	KeyState      = "currentCheckState"
	KeySignedName = "signedName"
	KeySignature  = "signature"
)

var sessionKeys = []string{KeyInProgress, KeyResults, KeyState, KeySignedName, KeySignature}

// SessionStore is the key/value storage a session writes through to after
// every mutation. Get reports ok=false for absent keys. SetMany writes every
// value or none of them.
type SessionStore interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	SetMany(ctx context.Context, values map[string][]byte) error
	Clear(ctx context.Context, keys ...string) error
}

// MemorySessionStore is an in-process SessionStore.
type MemorySessionStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{data: make(map[string][]byte)}
}

func (m *MemorySessionStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte{}, v...), true, nil
}

func (m *MemorySessionStore) SetMany(_ context.Context, values map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.data[k] = append([]byte{}, v...)
	}
	return nil
}

func (m *MemorySessionStore) Clear(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}
