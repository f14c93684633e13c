package photosign

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
	"passtrack/pkg/platform/sentinel"
)

// MemoryStore is an in-memory photo/signature record store keyed by
// application.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[id.ApplicationID]*lifecycle.PhotoSign
}

func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[id.ApplicationID]*lifecycle.PhotoSign)}
}

func (s *MemoryStore) Upsert(_ context.Context, rec *lifecycle.PhotoSign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[rec.ApplicationID]
	if !ok {
		cp := *rec
		s.records[rec.ApplicationID] = &cp
		return nil
	}
	if rec.PhotoPath != "" {
		existing.PhotoPath = rec.PhotoPath
	}
	if rec.SignaturePath != "" {
		existing.SignaturePath = rec.SignaturePath
	}
	return nil
}

func (s *MemoryStore) GetByApplication(_ context.Context, appID id.ApplicationID) (*lifecycle.PhotoSign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[appID]
	if !ok {
		return nil, fmt.Errorf("photo/sign record for application %s: %w", appID, sentinel.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) ListPending(_ context.Context) ([]*lifecycle.PhotoSign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*lifecycle.PhotoSign
	for _, rec := range s.records {
		if rec.BothApproved() {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, rec *lifecycle.PhotoSign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ApplicationID]; !ok {
		return fmt.Errorf("photo/sign record for application %s: %w", rec.ApplicationID, sentinel.ErrNotFound)
	}
	cp := *rec
	s.records[rec.ApplicationID] = &cp
	return nil
}

func (s *MemoryStore) DeleteByApplication(_ context.Context, appID id.ApplicationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, appID)
	return nil
}
