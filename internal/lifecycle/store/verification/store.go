package verification

import (
	"context"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
)

// Store persists document verification records, at most one per
// application.
type Store interface {
	// Create inserts a fresh record. Returns sentinel.ErrAlreadyUsed when
	// the application already has one.
	Create(ctx context.Context, rec *lifecycle.Verification) error

	// GetByApplication returns the record for the application, or
	// sentinel.ErrNotFound.
	GetByApplication(ctx context.Context, appID id.ApplicationID) (*lifecycle.Verification, error)

	// ListPending returns records whose overall status is not yet
	// completed, newest first.
	ListPending(ctx context.Context) ([]*lifecycle.Verification, error)

	// Update overwrites the document flags, status, remarks and verifier
	// fields.
	Update(ctx context.Context, rec *lifecycle.Verification) error

	// DeleteByApplication removes the record for the application, if any.
	DeleteByApplication(ctx context.Context, appID id.ApplicationID) error
}
