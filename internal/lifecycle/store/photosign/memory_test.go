package photosign

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

func (s *MemoryStoreSuite) newRecord(appID id.ApplicationID) *lifecycle.PhotoSign {
	return &lifecycle.PhotoSign{
		ID:            id.NewPhotoSignID(),
		ApplicationID: appID,
		PhotoPath:     "uploads/photo.jpg",
		SignaturePath: "uploads/sign.png",
		CreatedAt:     time.Now(),
	}
}

func (s *MemoryStoreSuite) TestUpsertCreates() {
	ctx := context.Background()
	appID := id.NewApplicationID()
	s.Require().NoError(s.store.Upsert(ctx, s.newRecord(appID)))

	got, err := s.store.GetByApplication(ctx, appID)
	s.Require().NoError(err)
	s.Equal("uploads/photo.jpg", got.PhotoPath)
	s.Equal("uploads/sign.png", got.SignaturePath)
}

func (s *MemoryStoreSuite) TestUpsertKeepsExistingPaths() {
	ctx := context.Background()
	appID := id.NewApplicationID()
	s.Require().NoError(s.store.Upsert(ctx, s.newRecord(appID)))

	reupload := s.newRecord(appID)
	reupload.PhotoPath = "uploads/photo-v2.jpg"
	reupload.SignaturePath = ""
	s.Require().NoError(s.store.Upsert(ctx, reupload))

	got, err := s.store.GetByApplication(ctx, appID)
	s.Require().NoError(err)
	s.Equal("uploads/photo-v2.jpg", got.PhotoPath)
	s.Equal("uploads/sign.png", got.SignaturePath)
}

func (s *MemoryStoreSuite) TestGetMissing() {
	_, err := s.store.GetByApplication(context.Background(), id.NewApplicationID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestUpdateApproval() {
	ctx := context.Background()
	appID := id.NewApplicationID()
	s.Require().NoError(s.store.Upsert(ctx, s.newRecord(appID)))

	rec, err := s.store.GetByApplication(ctx, appID)
	s.Require().NoError(err)
	now := time.Now()
	rec.PhotoApproved = true
	rec.SignatureApproved = true
	rec.ValidatedBy = id.NewUserID()
	rec.ValidatedAt = &now
	s.Require().NoError(s.store.Update(ctx, rec))

	got, err := s.store.GetByApplication(ctx, appID)
	s.Require().NoError(err)
	s.True(got.BothApproved())
	s.NotNil(got.ValidatedAt)
}

func (s *MemoryStoreSuite) TestListPendingExcludesApproved() {
	ctx := context.Background()

	pending := s.newRecord(id.NewApplicationID())
	s.Require().NoError(s.store.Upsert(ctx, pending))

	done := s.newRecord(id.NewApplicationID())
	s.Require().NoError(s.store.Upsert(ctx, done))
	rec, err := s.store.GetByApplication(ctx, done.ApplicationID)
	s.Require().NoError(err)
	rec.PhotoApproved = true
	rec.SignatureApproved = true
	s.Require().NoError(s.store.Update(ctx, rec))

	got, err := s.store.ListPending(ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(pending.ApplicationID, got[0].ApplicationID)
}

func (s *MemoryStoreSuite) TestDeleteByApplication() {
	ctx := context.Background()
	appID := id.NewApplicationID()
	s.Require().NoError(s.store.Upsert(ctx, s.newRecord(appID)))
	s.Require().NoError(s.store.DeleteByApplication(ctx, appID))

	_, err := s.store.GetByApplication(ctx, appID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
