package approval

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
	"passtrack/pkg/platform/sentinel"
)

// MemoryStore is an in-memory approval log.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[id.ApprovalID]*lifecycle.Approval
}

func NewMemory() *MemoryStore {
	return &MemoryStore{entries: make(map[id.ApprovalID]*lifecycle.Approval)}
}

func (s *MemoryStore) Create(_ context.Context, entry *lifecycle.Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.PassportNumber != "" {
		for _, existing := range s.entries {
			if existing.PassportNumber == entry.PassportNumber {
				return fmt.Errorf("passport number %q: %w", entry.PassportNumber, sentinel.ErrAlreadyUsed)
			}
		}
	}
	cp := *entry
	s.entries[entry.ID] = &cp
	return nil
}

func (s *MemoryStore) GetByApplication(_ context.Context, appID id.ApplicationID) (*lifecycle.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *lifecycle.Approval
	for _, entry := range s.entries {
		if entry.ApplicationID != appID {
			continue
		}
		if latest == nil || entry.DecisionDate.After(latest.DecisionDate) {
			latest = entry
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("approval entry for application %s: %w", appID, sentinel.ErrNotFound)
	}
	cp := *latest
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*lifecycle.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*lifecycle.Approval, 0, len(s.entries))
	for _, entry := range s.entries {
		cp := *entry
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DecisionDate.After(out[j].DecisionDate)
	})
	return out, nil
}

func (s *MemoryStore) DeleteByApplication(_ context.Context, appID id.ApplicationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for entryID, entry := range s.entries {
		if entry.ApplicationID == appID {
			delete(s.entries, entryID)
		}
	}
	return nil
}
