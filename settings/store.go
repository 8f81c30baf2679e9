// Package settings persists named player settings as JSON values in a
// string-keyed durable store.
//
// Reads never fail: missing keys and corrupt stored data silently fall
// back to the caller-supplied default, so a damaged settings database can
// never keep the player from starting.
package settings

import "encoding/json"

// Store is a durable string-keyed store of JSON-serialized values.
type Store interface {
	// Get returns the raw stored value for key, or false if absent.
	Get(key string) ([]byte, bool)
	// Set stores the raw value under key, replacing any previous value.
	Set(key string, value []byte) error
}

// Load reads and decodes the value stored under key. Missing keys and
// undecodable data yield def.
func Load[T any](s Store, key string, def T) T {
	raw, ok := s.Get(key)
	if !ok {
		return def
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return def
	}

	return v
}

// Save encodes v and stores it under key. Failures are swallowed: settings
// persistence is best-effort and must never interrupt playback.
func Save[T any](s Store, key string, v T) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}

	_ = s.Set(key, raw)
}
