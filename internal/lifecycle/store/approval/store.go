package approval

import (
	"context"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
)

// Store persists final-approval log entries. Entries are append-only;
// an application accumulates one entry per decision taken on it.
type Store interface {
	// Create appends a decision entry. Returns sentinel.ErrAlreadyUsed
	// when the passport number collides with an already issued one.
	Create(ctx context.Context, entry *lifecycle.Approval) error

	// GetByApplication returns the latest entry for the application, or
	// sentinel.ErrNotFound.
	GetByApplication(ctx context.Context, appID id.ApplicationID) (*lifecycle.Approval, error)

	// List returns all entries, newest first.
	List(ctx context.Context) ([]*lifecycle.Approval, error)

	// DeleteByApplication removes all entries for the application.
	DeleteByApplication(ctx context.Context, appID id.ApplicationID) error
}
