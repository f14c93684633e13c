//go:build integration

package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"passtrack/internal/identity"
	user "passtrack/internal/identity/store/user"
	"passtrack/internal/lifecycle"
	application "passtrack/internal/lifecycle/store/application"
	id "passtrack/pkg/domain"
	"passtrack/pkg/platform/sentinel"
	"passtrack/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *application.PostgresStore
	users    *user.PostgresStore
	owner    id.UserID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = application.NewPostgres(s.postgres.DB)
	s.users = user.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "applications", "users")
	s.Require().NoError(err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	owner := &identity.User{
		ID:           id.NewUserID(),
		Username:     "applicant",
		Email:        "applicant@example.com",
		PasswordHash: "hash",
		FullName:     "Asha Rao",
		Role:         identity.RoleUser,
		Status:       identity.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Require().NoError(s.users.Create(ctx, owner))
	s.owner = owner.ID
}

func (s *PostgresStoreSuite) newApplication(status lifecycle.Status) *lifecycle.Application {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &lifecycle.Application{
		ID:     id.NewApplicationID(),
		UserID: s.owner,
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

func (s *PostgresStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	app := s.newApplication(lifecycle.StatusSubmitted)
	s.Require().NoError(s.store.Create(ctx, app))

	got, err := s.store.Get(ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(app.Applicant.FullName, got.Applicant.FullName)
	s.Equal(app.Applicant.Pincode, got.Applicant.Pincode)
	s.Equal(lifecycle.StatusSubmitted, got.Status)
	s.Equal(lifecycle.StageApplication, got.CurrentStage)
	s.Nil(got.ApprovedAt)
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), id.NewApplicationID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdatePersistsTransition() {
	ctx := context.Background()
	app := s.newApplication(lifecycle.StatusSubmitted)
	s.Require().NoError(s.store.Create(ctx, app))

	now := time.Now().UTC().Truncate(time.Microsecond)
	app.SetStatus(lifecycle.StatusInProgress, now)
	s.Require().True(app.AdvanceTo(lifecycle.StageToken, now))
	s.Require().NoError(s.store.Update(ctx, app))

	got, err := s.store.Get(ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StatusInProgress, got.Status)
	s.Equal(lifecycle.StageToken, got.CurrentStage)
}

func (s *PostgresStoreSuite) TestApprovedAtRoundTrip() {
	ctx := context.Background()
	app := s.newApplication(lifecycle.StatusInProgress)
	app.CurrentStage = lifecycle.StageFinalApproval
	s.Require().NoError(s.store.Create(ctx, app))

	now := time.Now().UTC().Truncate(time.Microsecond)
	app.ApplyDecision(lifecycle.DecisionApproved, "all checks clear", now)
	s.Require().NoError(s.store.Update(ctx, app))

	got, err := s.store.Get(ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StatusApproved, got.Status)
	s.Require().NotNil(got.ApprovedAt)
	s.WithinDuration(now, *got.ApprovedAt, time.Second)
}

func (s *PostgresStoreSuite) TestListFilters() {
	ctx := context.Background()
	submitted := s.newApplication(lifecycle.StatusSubmitted)
	s.Require().NoError(s.store.Create(ctx, submitted))
	approved := s.newApplication(lifecycle.StatusApproved)
	s.Require().NoError(s.store.Create(ctx, approved))

	owned, err := s.store.List(ctx, application.Filter{UserID: s.owner})
	s.Require().NoError(err)
	s.Len(owned, 2)

	got, err := s.store.List(ctx, application.Filter{Status: lifecycle.StatusApproved})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(approved.ID, got[0].ID)

	page, err := s.store.List(ctx, application.Filter{Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Len(page, 1)
}

func (s *PostgresStoreSuite) TestDelete() {
	ctx := context.Background()
	app := s.newApplication(lifecycle.StatusSubmitted)
	s.Require().NoError(s.store.Create(ctx, app))
	s.Require().NoError(s.store.Delete(ctx, app.ID))

	_, err := s.store.Get(ctx, app.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestStats() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newApplication(lifecycle.StatusApproved)))
	s.Require().NoError(s.store.Create(ctx, s.newApplication(lifecycle.StatusInProgress)))
	old := s.newApplication(lifecycle.StatusRejected)
	old.CreatedAt = time.Now().UTC().Add(-72 * time.Hour)
	s.Require().NoError(s.store.Create(ctx, old))

	stats, err := s.store.Stats(ctx, time.Now().UTC())
	s.Require().NoError(err)
	s.Equal(3, stats.Total)
	s.Equal(1, stats.Approved)
	s.Equal(1, stats.Rejected)
	s.Equal(1, stats.InProgress)
	s.Equal(2, stats.Today)
}
