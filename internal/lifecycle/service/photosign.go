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

// UploadPhotoSign stores photo and signature file references for the
// application. Uploads are accepted at any open stage and move the
// application to photo validation unless it is already further along.
// Re-uploading one of the two never blanks the other; applicants can
// only upload to their own application.
func (s *Service) UploadPhotoSign(ctx context.Context, actor lifecycle.Actor, appID id.ApplicationID, photoPath, signaturePath string) (*lifecycle.PhotoSign, error) {
	if photoPath == "" && signaturePath == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a photo or signature file is required")
	}

	now := requestcontext.Now(ctx)
	var uploaded *lifecycle.PhotoSign

	err := s.runTransition(ctx, lifecycle.TransitionUploadPhotoSign, actor, func(ctx context.Context) error {
		app, err := s.loadForTransition(ctx, appID)
		if err != nil {
			return err
		}
		if err := requireOwnerOrStaff(actor, app); err != nil {
			return err
		}

		rec := &lifecycle.PhotoSign{
			ID:            id.NewPhotoSignID(),
			ApplicationID: appID,
			PhotoPath:     photoPath,
			SignaturePath: signaturePath,
			CreatedAt:     now,
		}
		if err := s.photoSigns.Upsert(ctx, rec); err != nil {
			return err
		}
		// Re-read so the audit entry reflects the merged record, not the
		// incoming upload.
		rec, err = s.photoSigns.GetByApplication(ctx, appID)
		if err != nil {
			return err
		}

		app.SetStatus(lifecycle.StatusInProgress, now)
		app.AdvanceTo(lifecycle.StagePhotoValidation, now)
		if err := s.apps.Update(ctx, app); err != nil {
			return err
		}

		uploaded = rec
		return s.appendAudit(ctx, actor, audit.ActionPhotoSignUploaded,
			"photo_sign_validation", rec.ID.String(), nil, rec.Snapshot(), now)
	})
	if err != nil {
		return nil, coded(err, "upload photo/signature")
	}
	return uploaded, nil
}

// ValidatePhotoSignInput carries the validation officer's verdict.
type ValidatePhotoSignInput struct {
	PhotoApproved     bool
	SignatureApproved bool
	PhotoRemarks      string
	SignatureRemarks  string
}

// ValidatePhotoSign records the officer's verdict on the uploaded photo
// and signature. The application advances to document verification only
// when both are approved; re-validating an already advanced application
// leaves the stage untouched.
func (s *Service) ValidatePhotoSign(ctx context.Context, actor lifecycle.Actor, appID id.ApplicationID, in ValidatePhotoSignInput) (*lifecycle.PhotoSign, error) {
	now := requestcontext.Now(ctx)
	var validated *lifecycle.PhotoSign

	err := s.runTransition(ctx, lifecycle.TransitionValidatePhotoSign, actor, func(ctx context.Context) error {
		app, err := s.loadForTransition(ctx, appID)
		if err != nil {
			return err
		}

		rec, err := s.photoSigns.GetByApplication(ctx, appID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Wrap(err, dErrors.CodeConflict, "nothing has been uploaded for this application")
			}
			return err
		}
		before := rec.Snapshot()

		rec.PhotoApproved = in.PhotoApproved
		rec.SignatureApproved = in.SignatureApproved
		rec.PhotoRemarks = in.PhotoRemarks
		rec.SignatureRemarks = in.SignatureRemarks
		rec.ValidatedBy = actor.UserID
		validatedAt := now
		rec.ValidatedAt = &validatedAt
		if err := s.photoSigns.Update(ctx, rec); err != nil {
			return err
		}

		if rec.BothApproved() {
			app.AdvanceTo(lifecycle.StageDocumentVerification, now)
			if err := s.apps.Update(ctx, app); err != nil {
				return err
			}
		}

		validated = rec
		return s.appendAudit(ctx, actor, audit.ActionPhotoSignValidated,
			"photo_sign_validation", rec.ID.String(), before, rec.Snapshot(), now)
	})
	if err != nil {
		return nil, coded(err, "validate photo/signature")
	}
	return validated, nil
}
