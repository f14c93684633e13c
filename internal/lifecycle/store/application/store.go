// Package application persists the Application aggregate.
package application

import (
	"context"
	"time"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
)

// Filter narrows a List query. Zero fields match everything; Limit of 0
// means no cap.
type Filter struct {
	UserID id.UserID
	Status lifecycle.Status
	Stage  lifecycle.Stage
	Limit  int
	Offset int
}

// Stats aggregates application counts for the admin dashboard.
type Stats struct {
	Total      int `json:"total"`
	Approved   int `json:"approved"`
	Rejected   int `json:"rejected"`
	InProgress int `json:"in_progress"`
	OnHold     int `json:"on_hold"`
	Today      int `json:"today"`
}

// Store is the aggregate persistence contract. GetForUpdate must hold the
// row against concurrent transitions for the remainder of the ambient
// transaction; every transition loads through it.
type Store interface {
	Create(ctx context.Context, app *lifecycle.Application) error
	Get(ctx context.Context, appID id.ApplicationID) (*lifecycle.Application, error)
	GetForUpdate(ctx context.Context, appID id.ApplicationID) (*lifecycle.Application, error)
	List(ctx context.Context, filter Filter) ([]*lifecycle.Application, error)
	Update(ctx context.Context, app *lifecycle.Application) error
	Delete(ctx context.Context, appID id.ApplicationID) error
	Stats(ctx context.Context, now time.Time) (Stats, error)
}
