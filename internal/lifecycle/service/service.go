// Package service implements the application lifecycle engine: every
// guarded transition from submission through final approval runs here,
// inside one transaction together with its audit entry.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"passtrack/internal/identity"
	"passtrack/internal/lifecycle"
	"passtrack/internal/lifecycle/metrics"
	"passtrack/internal/lifecycle/store/application"
	"passtrack/internal/lifecycle/store/approval"
	"passtrack/internal/lifecycle/store/photosign"
	"passtrack/internal/lifecycle/store/processing"
	"passtrack/internal/lifecycle/store/token"
	"passtrack/internal/lifecycle/store/verification"
	id "passtrack/pkg/domain"
	dErrors "passtrack/pkg/domain-errors"
	"passtrack/pkg/platform/audit"
	"passtrack/pkg/platform/sentinel"
	txrunner "passtrack/pkg/platform/tx"
	"passtrack/pkg/requestcontext"
)

// Service owns all lifecycle transitions and reads. Writes to an
// application's status and stage never happen outside it.
type Service struct {
	apps          application.Store
	tokens        token.Store
	photoSigns    photosign.Store
	verifications verification.Store
	processings   processing.Store
	approvals     approval.Store
	auditor       audit.Store
	tx            txrunner.Runner
	tracer        trace.Tracer
	logger        *slog.Logger
}

func New(
	apps application.Store,
	tokens token.Store,
	photoSigns photosign.Store,
	verifications verification.Store,
	processings processing.Store,
	approvals approval.Store,
	auditor audit.Store,
	tx txrunner.Runner,
	logger *slog.Logger,
) *Service {
	return &Service{
		apps:          apps,
		tokens:        tokens,
		photoSigns:    photoSigns,
		verifications: verifications,
		processings:   processings,
		approvals:     approvals,
		auditor:       auditor,
		tx:            tx,
		tracer:        otel.Tracer("passtrack/lifecycle"),
		logger:        logger,
	}
}

// runTransition authorizes the actor, then runs fn inside one transaction
// with a span and metrics around it. fn must append exactly one audit
// entry; the transaction guarantees the mutation and its entry land
// together or not at all.
func (s *Service) runTransition(ctx context.Context, t lifecycle.Transition, actor lifecycle.Actor, fn func(ctx context.Context) error) error {
	if err := lifecycle.Authorize(t, actor.Role); err != nil {
		metrics.ObserveTransition(string(t), err, 0)
		return err
	}

	ctx, span := s.tracer.Start(ctx, "lifecycle."+string(t))
	defer span.End()

	start := time.Now()
	err := s.tx.RunInTx(ctx, fn)
	metrics.ObserveTransition(string(t), err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.logger.InfoContext(ctx, "transition applied",
		"transition", string(t),
		"actor_id", actor.UserID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// loadForTransition fetches the application under a row lock and rejects
// terminal applications.
func (s *Service) loadForTransition(ctx context.Context, appID id.ApplicationID) (*lifecycle.Application, error) {
	app, err := s.apps.GetForUpdate(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load application")
	}
	if err := app.CanMutate(); err != nil {
		return nil, err
	}
	return app, nil
}

// appendAudit stamps one compliance entry with the request origin.
func (s *Service) appendAudit(ctx context.Context, actor lifecycle.Actor, action audit.Action, entity, recordID string, before, after map[string]any, now time.Time) error {
	return s.auditor.Append(ctx, &audit.Entry{
		ID:        id.NewAuditEventID(),
		ActorID:   actor.UserID,
		Action:    action,
		Entity:    entity,
		RecordID:  recordID,
		Before:    before,
		After:     after,
		Origin:    audit.OriginFromContext(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: now,
	})
}

// coded passes through errors that already carry a domain code and wraps
// everything else as internal with a safe message.
func coded(err error, message string) error {
	var e *dErrors.Error
	if errors.As(err, &e) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, message)
}

// requireOwnerOrStaff rejects applicants touching applications that are
// not theirs. Back-office roles see everything.
func requireOwnerOrStaff(actor lifecycle.Actor, app *lifecycle.Application) error {
	if actor.Role != identity.RoleUser {
		return nil
	}
	if app.UserID != actor.UserID {
		return dErrors.New(dErrors.CodeForbidden, "not the owner of this application")
	}
	return nil
}
