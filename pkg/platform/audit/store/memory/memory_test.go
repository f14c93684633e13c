package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "passtrack/pkg/domain"
	"passtrack/pkg/platform/audit"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) newEntry(actor id.UserID, action audit.Action, at time.Time) *audit.Entry {
	return &audit.Entry{
		ID:        id.NewAuditEventID(),
		ActorID:   actor,
		Action:    action,
		Entity:    "applications",
		RecordID:  id.NewApplicationID().String(),
		After:     map[string]any{"status": "submitted"},
		Timestamp: at,
	}
}

// TestFiltering verifies actor/action/time-range filters narrow the result set.
func (s *MemoryStoreSuite) TestFiltering() {
	actor := id.NewUserID()
	other := id.NewUserID()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.Append(s.ctx, s.newEntry(actor, audit.ActionApplicationSubmitted, base)))
	s.Require().NoError(s.store.Append(s.ctx, s.newEntry(actor, audit.ActionTokenIssued, base.Add(time.Hour))))
	s.Require().NoError(s.store.Append(s.ctx, s.newEntry(other, audit.ActionTokenIssued, base.Add(2*time.Hour))))

	s.Run("filters by actor", func() {
		entries, err := s.store.List(s.ctx, audit.Filter{ActorID: actor})
		s.Require().NoError(err)
		s.Len(entries, 2)
	})

	s.Run("filters by action", func() {
		entries, err := s.store.List(s.ctx, audit.Filter{Action: audit.ActionTokenIssued})
		s.Require().NoError(err)
		s.Len(entries, 2)
	})

	s.Run("filters by time range", func() {
		entries, err := s.store.List(s.ctx, audit.Filter{From: base.Add(30 * time.Minute)})
		s.Require().NoError(err)
		s.Len(entries, 2)
	})

	s.Run("newest first", func() {
		entries, err := s.store.List(s.ctx, audit.Filter{})
		s.Require().NoError(err)
		s.Require().Len(entries, 3)
		s.Equal(other, entries[0].ActorID)
	})
}

// TestPagination verifies the 100/0 defaults and offset slicing.
func (s *MemoryStoreSuite) TestPagination() {
	actor := id.NewUserID()
	for i := 0; i < 120; i++ {
		s.Require().NoError(s.store.Append(s.ctx, s.newEntry(actor, audit.ActionRequestTrace, time.Now())))
	}

	s.Run("defaults to limit 100", func() {
		entries, err := s.store.List(s.ctx, audit.Filter{})
		s.Require().NoError(err)
		s.Len(entries, 100)
	})

	s.Run("offset past the end returns empty", func() {
		entries, err := s.store.List(s.ctx, audit.Filter{Offset: 500})
		s.Require().NoError(err)
		s.Empty(entries)
	})

	s.Run("offset plus limit pages through", func() {
		entries, err := s.store.List(s.ctx, audit.Filter{Limit: 50, Offset: 100})
		s.Require().NoError(err)
		s.Len(entries, 20)
	})
}
