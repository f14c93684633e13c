// Package user persists identity accounts.
package user

import (
	"context"

	"passtrack/internal/identity"
	id "passtrack/pkg/domain"
)

// Filter narrows a List query. Zero fields match everything.
type Filter struct {
	Role   identity.Role
	Status identity.Status
}

// Store is the account persistence contract. Implementations return
// sentinel.ErrNotFound for missing accounts and sentinel.ErrAlreadyUsed for
// username/email collisions.
type Store interface {
	Create(ctx context.Context, u *identity.User) error
	GetByID(ctx context.Context, userID id.UserID) (*identity.User, error)
	GetByUsername(ctx context.Context, username string) (*identity.User, error)
	List(ctx context.Context, filter Filter) ([]*identity.User, error)
	Update(ctx context.Context, u *identity.User) error
	Delete(ctx context.Context, userID id.UserID) error
	CountByRole(ctx context.Context) (map[identity.Role]int, error)
}
