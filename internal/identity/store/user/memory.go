package user

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"passtrack/internal/identity"
	id "passtrack/pkg/domain"
	"passtrack/pkg/platform/sentinel"
)

// MemoryStore is an in-memory account store for tests and development.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*identity.User
}

func NewMemory() *MemoryStore {
	return &MemoryStore{users: make(map[id.UserID]*identity.User)}
}

func (s *MemoryStore) Create(_ context.Context, u *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("user %s: %w", u.ID, sentinel.ErrConflict)
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return fmt.Errorf("username %q: %w", u.Username, sentinel.ErrAlreadyUsed)
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("email %q: %w", u.Email, sentinel.ErrAlreadyUsed)
		}
	}

	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, userID id.UserID) (*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetByUsername(_ context.Context, username string) (*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("username %q: %w", username, sentinel.ErrNotFound)
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*identity.User
	for _, u := range s.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, u *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return fmt.Errorf("user %s: %w", u.ID, sentinel.ErrNotFound)
	}
	for otherID, existing := range s.users {
		if otherID == u.ID {
			continue
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("email %q: %w", u.Email, sentinel.ErrAlreadyUsed)
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	delete(s.users, userID)
	return nil
}

func (s *MemoryStore) CountByRole(_ context.Context) (map[identity.Role]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[identity.Role]int)
	for _, u := range s.users {
		counts[u.Role]++
	}
	return counts, nil
}
