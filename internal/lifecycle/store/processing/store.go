package processing

import (
	"context"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
)

// Store persists police/reference processing records, at most one per
// application.
type Store interface {
	// Create inserts a fresh record. Returns sentinel.ErrAlreadyUsed when
	// the application already has one.
	Create(ctx context.Context, rec *lifecycle.Processing) error

	// GetByApplication returns the record for the application, or
	// sentinel.ErrNotFound.
	GetByApplication(ctx context.Context, appID id.ApplicationID) (*lifecycle.Processing, error)

	// ListPending returns records that have not yet cleared police and
	// reference checks, newest first.
	ListPending(ctx context.Context) ([]*lifecycle.Processing, error)

	// Update overwrites the police verdict, station, remarks, references
	// and processor fields.
	Update(ctx context.Context, rec *lifecycle.Processing) error

	// DeleteByApplication removes the record for the application, if any.
	DeleteByApplication(ctx context.Context, appID id.ApplicationID) error
}
