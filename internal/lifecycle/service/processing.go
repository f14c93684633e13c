package service

import (
	"context"
	"errors"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
	dErrors "passtrack/pkg/domain-errors"
	"passtrack/pkg/platform/audit"
	"passtrack/pkg/platform/sentinel"
	"passtrack/pkg/requestcontext"
)

// UpdateProcessingInput carries the police verification verdict and the
// two character references.
type UpdateProcessingInput struct {
	PoliceStatus  string
	PoliceStation string
	PoliceRemarks string
	Reference1    lifecycle.Reference
	Reference2    lifecycle.Reference
}

// UpdateProcessing records police and reference checks for the
// application, creating the record on first touch. A clear police verdict
// with both references verified advances the application to final
// approval; the advance fires exactly once no matter how the flags arrive.
func (s *Service) UpdateProcessing(ctx context.Context, actor lifecycle.Actor, appID id.ApplicationID, in UpdateProcessingInput) (*lifecycle.Processing, error) {
	policeStatus, err := lifecycle.ParsePoliceStatus(in.PoliceStatus)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var updated *lifecycle.Processing

	err = s.runTransition(ctx, lifecycle.TransitionProcess, actor, func(ctx context.Context) error {
		app, err := s.loadForTransition(ctx, appID)
		if err != nil {
			return err
		}
		if app.CurrentStage.Rank() < lifecycle.StagePoliceVerification.Rank() {
			return dErrors.New(dErrors.CodeConflict, "application has not reached police verification")
		}

		action := audit.ActionProcessingUpdated
		var before map[string]any

		rec, err := s.processings.GetByApplication(ctx, appID)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			action = audit.ActionProcessingStarted
			rec = &lifecycle.Processing{
				ID:            id.NewProcessingID(),
				ApplicationID: appID,
				PoliceStatus:  lifecycle.PolicePending,
				CreatedAt:     now,
			}
			if err := s.processings.Create(ctx, rec); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			before = rec.Snapshot()
		}

		rec.PoliceStatus = policeStatus
		rec.PoliceStation = in.PoliceStation
		rec.PoliceRemarks = in.PoliceRemarks
		rec.Reference1 = in.Reference1
		rec.Reference2 = in.Reference2
		rec.ProcessedBy = actor.UserID
		processedAt := now
		rec.ProcessedAt = &processedAt
		if err := s.processings.Update(ctx, rec); err != nil {
			return err
		}

		if rec.Cleared() {
			app.AdvanceTo(lifecycle.StageFinalApproval, now)
			if err := s.apps.Update(ctx, app); err != nil {
				return err
			}
		}

		updated = rec
		return s.appendAudit(ctx, actor, action,
			"processing_record", rec.ID.String(), before, rec.Snapshot(), now)
	})
	if err != nil {
		return nil, coded(err, "update processing")
	}
	return updated, nil
}

// VerifyProcessingReference flips the verified flag on one of the two
// character references without touching the rest of the record, so two
// officers closing out different references concurrently never clobber
// each other. When the second flag lands on an already clear police
// verdict the application advances to final approval.
func (s *Service) VerifyProcessingReference(ctx context.Context, actor lifecycle.Actor, appID id.ApplicationID, refNumber int, verified bool) (*lifecycle.Processing, error) {
	if refNumber != 1 && refNumber != 2 {
		return nil, dErrors.New(dErrors.CodeValidation, "reference number must be 1 or 2")
	}

	now := requestcontext.Now(ctx)
	var updated *lifecycle.Processing

	err := s.runTransition(ctx, lifecycle.TransitionProcess, actor, func(ctx context.Context) error {
		app, err := s.loadForTransition(ctx, appID)
		if err != nil {
			return err
		}
		if app.CurrentStage.Rank() < lifecycle.StagePoliceVerification.Rank() {
			return dErrors.New(dErrors.CodeConflict, "application has not reached police verification")
		}

		rec, err := s.processings.GetByApplication(ctx, appID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Wrap(err, dErrors.CodeConflict, "processing has not started for this application")
			}
			return err
		}
		before := rec.Snapshot()

		if refNumber == 1 {
			rec.Reference1.Verified = verified
		} else {
			rec.Reference2.Verified = verified
		}
		rec.ProcessedBy = actor.UserID
		processedAt := now
		rec.ProcessedAt = &processedAt
		if err := s.processings.Update(ctx, rec); err != nil {
			return err
		}

		if rec.Cleared() {
			app.AdvanceTo(lifecycle.StageFinalApproval, now)
			if err := s.apps.Update(ctx, app); err != nil {
				return err
			}
		}

		updated = rec
		return s.appendAudit(ctx, actor, audit.ActionProcessingUpdated,
			"processing_record", rec.ID.String(), before, rec.Snapshot(), now)
	})
	if err != nil {
		return nil, coded(err, "verify reference")
	}
	return updated, nil
}
