package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
	"passtrack/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemory()
}

func (s *MemoryStoreSuite) newApplication(userID id.UserID, status lifecycle.Status) *lifecycle.Application {
	now := time.Now()
	return &lifecycle.Application{
		ID:     id.NewApplicationID(),
		UserID: userID,
		Applicant: lifecycle.Applicant{
			Type:        "fresh",
			FullName:    "Asha Rao",
			DateOfBirth: time.Date(1994, 3, 12, 0, 0, 0, 0, time.UTC),
			Gender:      "female",
			Email:       "asha@example.com",
			Phone:       "9876543210",
			Address:     "12 MG Road",
			City:        "Bengaluru",
			State:       "Karnataka",
			Pincode:     "560001",
		},
		Priority:     lifecycle.PriorityNormal,
		Status:       status,
		CurrentStage: lifecycle.StageApplication,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *MemoryStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	app := s.newApplication(id.NewUserID(), lifecycle.StatusSubmitted)
	s.Require().NoError(s.store.Create(ctx, app))

	got, err := s.store.Get(ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(app.Applicant.FullName, got.Applicant.FullName)
	s.Equal(lifecycle.StageApplication, got.CurrentStage)
}

func (s *MemoryStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), id.NewApplicationID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestListFilters() {
	ctx := context.Background()
	owner := id.NewUserID()
	mine := s.newApplication(owner, lifecycle.StatusSubmitted)
	s.Require().NoError(s.store.Create(ctx, mine))
	other := s.newApplication(id.NewUserID(), lifecycle.StatusApproved)
	s.Require().NoError(s.store.Create(ctx, other))

	all, err := s.store.List(ctx, Filter{})
	s.Require().NoError(err)
	s.Len(all, 2)

	owned, err := s.store.List(ctx, Filter{UserID: owner})
	s.Require().NoError(err)
	s.Require().Len(owned, 1)
	s.Equal(mine.ID, owned[0].ID)

	approved, err := s.store.List(ctx, Filter{Status: lifecycle.StatusApproved})
	s.Require().NoError(err)
	s.Require().Len(approved, 1)
	s.Equal(other.ID, approved[0].ID)
}

func (s *MemoryStoreSuite) TestListLimitOffset() {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		app := s.newApplication(id.NewUserID(), lifecycle.StatusSubmitted)
		app.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		s.Require().NoError(s.store.Create(ctx, app))
	}

	page, err := s.store.List(ctx, Filter{Limit: 2, Offset: 1})
	s.Require().NoError(err)
	s.Len(page, 2)
}

func (s *MemoryStoreSuite) TestUpdatePersistsTransition() {
	ctx := context.Background()
	app := s.newApplication(id.NewUserID(), lifecycle.StatusSubmitted)
	s.Require().NoError(s.store.Create(ctx, app))

	now := time.Now()
	app.SetStatus(lifecycle.StatusInProgress, now)
	s.Require().True(app.AdvanceTo(lifecycle.StageToken, now))
	s.Require().NoError(s.store.Update(ctx, app))

	got, err := s.store.Get(ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StatusInProgress, got.Status)
	s.Equal(lifecycle.StageToken, got.CurrentStage)
}

func (s *MemoryStoreSuite) TestUpdateMissing() {
	app := s.newApplication(id.NewUserID(), lifecycle.StatusSubmitted)
	err := s.store.Update(context.Background(), app)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestDelete() {
	ctx := context.Background()
	app := s.newApplication(id.NewUserID(), lifecycle.StatusSubmitted)
	s.Require().NoError(s.store.Create(ctx, app))
	s.Require().NoError(s.store.Delete(ctx, app.ID))

	_, err := s.store.Get(ctx, app.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestStats() {
	ctx := context.Background()
	now := time.Now()

	approved := s.newApplication(id.NewUserID(), lifecycle.StatusApproved)
	s.Require().NoError(s.store.Create(ctx, approved))
	rejected := s.newApplication(id.NewUserID(), lifecycle.StatusRejected)
	rejected.CreatedAt = now.Add(-48 * time.Hour)
	s.Require().NoError(s.store.Create(ctx, rejected))
	inProgress := s.newApplication(id.NewUserID(), lifecycle.StatusInProgress)
	s.Require().NoError(s.store.Create(ctx, inProgress))

	stats, err := s.store.Stats(ctx, now)
	s.Require().NoError(err)
	s.Equal(3, stats.Total)
	s.Equal(1, stats.Approved)
	s.Equal(1, stats.Rejected)
	s.Equal(1, stats.InProgress)
	s.Equal(2, stats.Today)
}
