// Package memory provides an in-memory audit store for unit tests and
// single-process development runs.
package memory

import (
	"context"
	"sync"

	"passtrack/pkg/platform/audit"
)

// Store is an append-only in-memory audit log.
type Store struct {
	mu      sync.RWMutex
	entries []*audit.Entry
}

// New constructs an empty in-memory audit store.
func New() *Store {
	return &Store{}
}

// Append records the entry. Entries are stored by value-copy of the pointer;
// callers must not mutate an entry after appending.
func (s *Store) Append(_ context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// List returns matching entries newest-first with pagination applied.
func (s *Store) List(_ context.Context, filter audit.Filter) ([]*audit.Entry, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*audit.Entry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		if filter.Matches(s.entries[i]) {
			matched = append(matched, s.entries[i])
		}
	}

	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// All returns every entry in insertion order. Test helper.
func (s *Store) All() []*audit.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*audit.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
