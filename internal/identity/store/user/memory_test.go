package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"passtrack/internal/identity"
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

func (s *MemoryStoreSuite) newUser(username string, role identity.Role) *identity.User {
	now := time.Now()
	return &identity.User{
		ID:           id.NewUserID(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		FullName:     "Test User",
		Role:         role,
		Status:       identity.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *MemoryStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	u := s.newUser("alice", identity.RoleUser)
	s.Require().NoError(s.store.Create(ctx, u))

	got, err := s.store.GetByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("alice", got.Username)

	got, err = s.store.GetByUsername(ctx, "ALICE")
	s.Require().NoError(err)
	s.Equal(u.ID, got.ID)
}

func (s *MemoryStoreSuite) TestDuplicateUsername() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newUser("bob", identity.RoleUser)))

	dup := s.newUser("bob", identity.RoleUser)
	dup.Email = "different@example.com"
	err := s.store.Create(ctx, dup)
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *MemoryStoreSuite) TestGetMissing() {
	_, err := s.store.GetByID(context.Background(), id.NewUserID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestListFilters() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newUser("officer1", identity.RoleVerification)))
	s.Require().NoError(s.store.Create(ctx, s.newUser("officer2", identity.RoleVerification)))
	s.Require().NoError(s.store.Create(ctx, s.newUser("applicant", identity.RoleUser)))

	all, err := s.store.List(ctx, Filter{})
	s.Require().NoError(err)
	s.Len(all, 3)

	officers, err := s.store.List(ctx, Filter{Role: identity.RoleVerification})
	s.Require().NoError(err)
	s.Len(officers, 2)
}

func (s *MemoryStoreSuite) TestUpdateAndDelete() {
	ctx := context.Background()
	u := s.newUser("carol", identity.RoleUser)
	s.Require().NoError(s.store.Create(ctx, u))

	u.Status = identity.StatusSuspended
	s.Require().NoError(s.store.Update(ctx, u))

	got, err := s.store.GetByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(identity.StatusSuspended, got.Status)

	s.Require().NoError(s.store.Delete(ctx, u.ID))
	_, err = s.store.GetByID(ctx, u.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	s.Require().ErrorIs(s.store.Delete(ctx, u.ID), sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestCountByRole() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newUser("a1", identity.RoleAdmin)))
	s.Require().NoError(s.store.Create(ctx, s.newUser("u1", identity.RoleUser)))
	s.Require().NoError(s.store.Create(ctx, s.newUser("u2", identity.RoleUser)))

	counts, err := s.store.CountByRole(ctx)
	s.Require().NoError(err)
	s.Equal(1, counts[identity.RoleAdmin])
	s.Equal(2, counts[identity.RoleUser])
}
