package service

import (
	"context"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
	"passtrack/pkg/platform/audit"
	"passtrack/pkg/requestcontext"
)

// UpdateStatusInput carries a back-office status correction. Stage is
// optional; when present it can only move the application forward.
type UpdateStatusInput struct {
	Status  string
	Stage   string
	Remarks string
}

// UpdateApplicationStatus lets a back-office desk set an application's
// overall status directly, outside the per-stage operations. The forward
// progression invariant still holds: a stage in the input that ranks at
// or below the current one is ignored, and terminal applications reject
// the update.
func (s *Service) UpdateApplicationStatus(ctx context.Context, actor lifecycle.Actor, appID id.ApplicationID, in UpdateStatusInput) (*lifecycle.Application, error) {
	status, err := lifecycle.ParseStatus(in.Status)
	if err != nil {
		return nil, err
	}
	var stage lifecycle.Stage
	if in.Stage != "" {
		if stage, err = lifecycle.ParseStage(in.Stage); err != nil {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	var updated *lifecycle.Application

	err = s.runTransition(ctx, lifecycle.TransitionUpdateStatus, actor, func(ctx context.Context) error {
		app, err := s.loadForTransition(ctx, appID)
		if err != nil {
			return err
		}
		before := app.Snapshot()

		app.SetStatus(status, now)
		if stage != "" {
			app.AdvanceTo(stage, now)
		}
		if in.Remarks != "" {
			app.Remarks = in.Remarks
		}
		if err := s.apps.Update(ctx, app); err != nil {
			return err
		}

		updated = app
		return s.appendAudit(ctx, actor, audit.ActionApplicationUpdated,
			"application", app.ID.String(), before, app.Snapshot(), now)
	})
	if err != nil {
		return nil, coded(err, "update application status")
	}
	return updated, nil
}
