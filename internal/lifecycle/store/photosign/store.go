package photosign

import (
	"context"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
)

// Store persists photo/signature validation records, at most one per
// application.
type Store interface {
	// Upsert creates the record for the application or merges new uploads
	// into the existing one. An empty path in the incoming record never
	// overwrites a path already on file.
	Upsert(ctx context.Context, rec *lifecycle.PhotoSign) error

	// GetByApplication returns the record for the application, or
	// sentinel.ErrNotFound when nothing has been uploaded yet.
	GetByApplication(ctx context.Context, appID id.ApplicationID) (*lifecycle.PhotoSign, error)

	// ListPending returns records where photo or signature approval is
	// still outstanding, newest first.
	ListPending(ctx context.Context) ([]*lifecycle.PhotoSign, error)

	// Update overwrites the approval flags, remarks and validator fields.
	Update(ctx context.Context, rec *lifecycle.PhotoSign) error

	// DeleteByApplication removes the record for the application, if any.
	DeleteByApplication(ctx context.Context, appID id.ApplicationID) error
}
