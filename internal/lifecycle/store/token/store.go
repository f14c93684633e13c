// Package token persists issued appointment tokens.
package token

import (
	"context"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
)

// Store is the token persistence contract. Create returns
// sentinel.ErrAlreadyUsed when the token number collides.
type Store interface {
	Create(ctx context.Context, t *lifecycle.Token) error
	GetActiveByApplication(ctx context.Context, appID id.ApplicationID) (*lifecycle.Token, error)
	GetByApplication(ctx context.Context, appID id.ApplicationID) (*lifecycle.Token, error)
	List(ctx context.Context) ([]*lifecycle.Token, error)
	UpdateStatus(ctx context.Context, tokenID id.TokenID, status lifecycle.TokenStatus) error
	DeleteByApplication(ctx context.Context, appID id.ApplicationID) error
}
