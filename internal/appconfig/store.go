// Package appconfig keeps the dynamic, server-style configuration values
// that tune runtime behavior, such as the unique reactions limit. Values
// are plain JSON-ish scalars keyed by name; readers ask for a typed value
// with a fallback default, and subscribers are notified whenever the set
// is refreshed.
//
// A Store is owned by the registry loop: after construction it must only
// be touched from that goroutine.
package appconfig

import (
	"maps"

	"github.com/spf13/cast"

	"github.com/edgard/peerwatch/internal/reactive"
)

// Store holds the current value set.
type Store struct {
	values    map[string]any
	refreshed reactive.Event[struct{}]
}

// NewStore returns a store seeded with the given values. The seed map is
// copied; nil is fine.
func NewStore(seed map[string]any) *Store {
	s := &Store{values: make(map[string]any, len(seed))}
	maps.Copy(s.values, seed)
	return s
}

// Refresh replaces the whole value set and notifies subscribers once.
func (s *Store) Refresh(values map[string]any) {
	s.values = make(map[string]any, len(values))
	maps.Copy(s.values, values)
	s.refreshed.Fire(struct{}{})
}

// Set stores a single value and notifies subscribers.
func (s *Store) Set(key string, value any) {
	s.values[key] = value
	s.refreshed.Fire(struct{}{})
}

// Value emits once at subscription time and then after every refresh, so
// derived streams can recompute from the current values.
func (s *Store) Value() reactive.Stream[struct{}] {
	return s.refreshed.EventsStartingWith(func() struct{} {
		return struct{}{}
	})
}

// GetInt returns the integer value stored under key, or def when the key
// is missing or not coercible to an int.
func (s *Store) GetInt(key string, def int) int {
	raw, ok := s.values[key]
	if !ok {
		return def
	}
	value, err := cast.ToIntE(raw)
	if err != nil {
		return def
	}
	return value
}

// GetFloat returns the float value stored under key, or def.
func (s *Store) GetFloat(key string, def float64) float64 {
	raw, ok := s.values[key]
	if !ok {
		return def
	}
	value, err := cast.ToFloat64E(raw)
	if err != nil {
		return def
	}
	return value
}

// GetString returns the string value stored under key, or def.
func (s *Store) GetString(key, def string) string {
	raw, ok := s.values[key]
	if !ok {
		return def
	}
	value, err := cast.ToStringE(raw)
	if err != nil {
		return def
	}
	return value
}

// GetBool returns the boolean value stored under key, or def.
func (s *Store) GetBool(key string, def bool) bool {
	raw, ok := s.values[key]
	if !ok {
		return def
	}
	value, err := cast.ToBoolE(raw)
	if err != nil {
		return def
	}
	return value
}

// Snapshot returns a copy of the current value set, for diagnostics.
func (s *Store) Snapshot() map[string]any {
	out := make(map[string]any, len(s.values))
	maps.Copy(out, s.values)
	return out
}
