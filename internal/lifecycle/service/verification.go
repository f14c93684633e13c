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

// UpdateVerificationInput carries the verification officer's per-document
// checks and overall verdict.
type UpdateVerificationInput struct {
	AadhaarVerified bool
	PANVerified     bool
	DLVerified      bool
	VoterIDVerified bool
	CCTNSVerified   bool
	Status          string
	Remarks         string
}

// UpdateVerification records document checks for the application, creating
// the record on first touch. Marking the overall status completed advances
// the application to police verification.
func (s *Service) UpdateVerification(ctx context.Context, actor lifecycle.Actor, appID id.ApplicationID, in UpdateVerificationInput) (*lifecycle.Verification, error) {
	status, err := lifecycle.ParseVerificationStatus(in.Status)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var updated *lifecycle.Verification

	err = s.runTransition(ctx, lifecycle.TransitionVerify, actor, func(ctx context.Context) error {
		app, err := s.loadForTransition(ctx, appID)
		if err != nil {
			return err
		}
		if app.CurrentStage.Rank() < lifecycle.StageDocumentVerification.Rank() {
			return dErrors.New(dErrors.CodeConflict, "application has not reached document verification")
		}

		action := audit.ActionVerificationUpdated
		var before map[string]any

		rec, err := s.verifications.GetByApplication(ctx, appID)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			action = audit.ActionVerificationStarted
			rec = &lifecycle.Verification{
				ID:            id.NewVerificationID(),
				ApplicationID: appID,
				Status:        lifecycle.VerificationPending,
				CreatedAt:     now,
			}
			if err := s.verifications.Create(ctx, rec); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			before = rec.Snapshot()
		}

		rec.AadhaarVerified = in.AadhaarVerified
		rec.PANVerified = in.PANVerified
		rec.DLVerified = in.DLVerified
		rec.VoterIDVerified = in.VoterIDVerified
		rec.CCTNSVerified = in.CCTNSVerified
		rec.Status = status
		rec.Remarks = in.Remarks
		rec.VerifiedBy = actor.UserID
		verifiedAt := now
		rec.VerifiedAt = &verifiedAt
		if err := s.verifications.Update(ctx, rec); err != nil {
			return err
		}

		if rec.Completed() {
			app.AdvanceTo(lifecycle.StagePoliceVerification, now)
			if err := s.apps.Update(ctx, app); err != nil {
				return err
			}
		}

		updated = rec
		return s.appendAudit(ctx, actor, action,
			"verification_record", rec.ID.String(), before, rec.Snapshot(), now)
	})
	if err != nil {
		return nil, coded(err, "update verification")
	}
	return updated, nil
}

// documentSetters maps a document type to the flag it controls on the
// verification record.
var documentSetters = map[string]func(rec *lifecycle.Verification, verified bool){
	"aadhaar":  func(rec *lifecycle.Verification, v bool) { rec.AadhaarVerified = v },
	"pan":      func(rec *lifecycle.Verification, v bool) { rec.PANVerified = v },
	"dl":       func(rec *lifecycle.Verification, v bool) { rec.DLVerified = v },
	"voter_id": func(rec *lifecycle.Verification, v bool) { rec.VoterIDVerified = v },
	"cctns":    func(rec *lifecycle.Verification, v bool) { rec.CCTNSVerified = v },
}

// VerifyDocument records the check for a single identity document without
// touching the other flags, so officers working through documents in
// parallel never clobber each other. The overall verdict, and with it the
// stage advance, still comes through UpdateVerification.
func (s *Service) VerifyDocument(ctx context.Context, actor lifecycle.Actor, appID id.ApplicationID, documentType string, verified bool, remarks string) (*lifecycle.Verification, error) {
	setFlag, ok := documentSetters[documentType]
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown document type")
	}

	now := requestcontext.Now(ctx)
	var updated *lifecycle.Verification

	err := s.runTransition(ctx, lifecycle.TransitionVerify, actor, func(ctx context.Context) error {
		app, err := s.loadForTransition(ctx, appID)
		if err != nil {
			return err
		}
		if app.CurrentStage.Rank() < lifecycle.StageDocumentVerification.Rank() {
			return dErrors.New(dErrors.CodeConflict, "application has not reached document verification")
		}

		action := audit.ActionVerificationUpdated
		var before map[string]any

		rec, err := s.verifications.GetByApplication(ctx, appID)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			action = audit.ActionVerificationStarted
			rec = &lifecycle.Verification{
				ID:            id.NewVerificationID(),
				ApplicationID: appID,
				Status:        lifecycle.VerificationInProgress,
				CreatedAt:     now,
			}
			if err := s.verifications.Create(ctx, rec); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			before = rec.Snapshot()
		}

		setFlag(rec, verified)
		if remarks != "" {
			rec.Remarks = remarks
		}
		rec.VerifiedBy = actor.UserID
		verifiedAt := now
		rec.VerifiedAt = &verifiedAt
		if err := s.verifications.Update(ctx, rec); err != nil {
			return err
		}

		updated = rec
		return s.appendAudit(ctx, actor, action,
			"verification_record", rec.ID.String(), before, rec.Snapshot(), now)
	})
	if err != nil {
		return nil, coded(err, "verify document")
	}
	return updated, nil
}
