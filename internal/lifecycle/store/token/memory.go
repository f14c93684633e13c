package token

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
	"passtrack/pkg/platform/sentinel"
)

// MemoryStore is an in-memory token store.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[id.TokenID]*lifecycle.Token
}

func NewMemory() *MemoryStore {
	return &MemoryStore{tokens: make(map[id.TokenID]*lifecycle.Token)}
}

func (s *MemoryStore) Create(_ context.Context, t *lifecycle.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.tokens {
		if existing.Number == t.Number {
			return fmt.Errorf("token number %q: %w", t.Number, sentinel.ErrAlreadyUsed)
		}
	}
	cp := *t
	s.tokens[t.ID] = &cp
	return nil
}

func (s *MemoryStore) GetActiveByApplication(_ context.Context, appID id.ApplicationID) (*lifecycle.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tokens {
		if t.ApplicationID == appID && t.Status == lifecycle.TokenActive {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("active token for application %s: %w", appID, sentinel.ErrNotFound)
}

func (s *MemoryStore) GetByApplication(_ context.Context, appID id.ApplicationID) (*lifecycle.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *lifecycle.Token
	for _, t := range s.tokens {
		if t.ApplicationID != appID {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("token for application %s: %w", appID, sentinel.ErrNotFound)
	}
	cp := *latest
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*lifecycle.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*lifecycle.Token, 0, len(s.tokens))
	for _, t := range s.tokens {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, tokenID id.TokenID, status lifecycle.TokenStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[tokenID]
	if !ok {
		return fmt.Errorf("token %s: %w", tokenID, sentinel.ErrNotFound)
	}
	t.Status = status
	return nil
}

func (s *MemoryStore) DeleteByApplication(_ context.Context, appID id.ApplicationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for tokenID, t := range s.tokens {
		if t.ApplicationID == appID {
			delete(s.tokens, tokenID)
		}
	}
	return nil
}
