package settings

import "sync"

// MemoryStore is an in-memory Store, used in tests and as a fallback when
// no settings database is available.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

// Get returns the stored value for key.
func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, ok := m.values[key]
	if !ok {
		return nil, false
	}

	out := make([]byte, len(raw))
	copy(out, raw)

	return out, true
}

// Set stores value under key.
func (m *MemoryStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw := make([]byte, len(value))
	copy(raw, value)
	m.values[key] = raw

	return nil
}
