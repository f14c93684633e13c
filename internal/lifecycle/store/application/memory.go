package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
	"passtrack/pkg/platform/sentinel"
)

// MemoryStore is an in-memory aggregate store. The transaction runner's
// coarse lock serializes transitions, so GetForUpdate behaves like Get.
type MemoryStore struct {
	mu   sync.RWMutex
	apps map[id.ApplicationID]*lifecycle.Application
}

func NewMemory() *MemoryStore {
	return &MemoryStore{apps: make(map[id.ApplicationID]*lifecycle.Application)}
}

func (s *MemoryStore) Create(_ context.Context, app *lifecycle.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.apps[app.ID]; ok {
		return fmt.Errorf("application %s: %w", app.ID, sentinel.ErrConflict)
	}
	cp := *app
	s.apps[app.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, appID id.ApplicationID) (*lifecycle.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.apps[appID]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", appID, sentinel.ErrNotFound)
	}
	cp := *app
	return &cp, nil
}

func (s *MemoryStore) GetForUpdate(ctx context.Context, appID id.ApplicationID) (*lifecycle.Application, error) {
	return s.Get(ctx, appID)
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]*lifecycle.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*lifecycle.Application
	for _, app := range s.apps {
		if !filter.UserID.IsNil() && app.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		if filter.Stage != "" && app.CurrentStage != filter.Stage {
			continue
		}
		cp := *app
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, app *lifecycle.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.apps[app.ID]; !ok {
		return fmt.Errorf("application %s: %w", app.ID, sentinel.ErrNotFound)
	}
	cp := *app
	s.apps[app.ID] = &cp
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, appID id.ApplicationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.apps[appID]; !ok {
		return fmt.Errorf("application %s: %w", appID, sentinel.ErrNotFound)
	}
	delete(s.apps, appID)
	return nil
}

func (s *MemoryStore) Stats(_ context.Context, now time.Time) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	today := now.Truncate(24 * time.Hour)
	for _, app := range s.apps {
		stats.Total++
		switch app.Status {
		case lifecycle.StatusApproved:
			stats.Approved++
		case lifecycle.StatusRejected:
			stats.Rejected++
		case lifecycle.StatusInProgress:
			stats.InProgress++
		case lifecycle.StatusOnHold:
			stats.OnHold++
		}
		if !app.CreatedAt.Before(today) {
			stats.Today++
		}
	}
	return stats, nil
}
