package service

import (
	"context"
	"errors"

	"passtrack/internal/identity"
	"passtrack/internal/lifecycle"
	"passtrack/internal/lifecycle/store/application"
	id "passtrack/pkg/domain"
	dErrors "passtrack/pkg/domain-errors"
	"passtrack/pkg/platform/sentinel"
)

// GetApplication returns one application. Applicants only see their own.
func (s *Service) GetApplication(ctx context.Context, actor lifecycle.Actor, appID id.ApplicationID) (*lifecycle.Application, error) {
	app, err := s.apps.Get(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load application")
	}
	if err := requireOwnerOrStaff(actor, app); err != nil {
		return nil, err
	}
	return app, nil
}

// ListApplications lists applications matching the filter. Applicant
// queries are always scoped to their own applications regardless of the
// filter they send.
func (s *Service) ListApplications(ctx context.Context, actor lifecycle.Actor, filter application.Filter) ([]*lifecycle.Application, error) {
	if actor.Role == identity.RoleUser {
		filter.UserID = actor.UserID
	}
	apps, err := s.apps.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list applications")
	}
	return apps, nil
}

// GetToken returns the latest token issued for the application.
func (s *Service) GetToken(ctx context.Context, actor lifecycle.Actor, appID id.ApplicationID) (*lifecycle.Token, error) {
	if _, err := s.GetApplication(ctx, actor, appID); err != nil {
		return nil, err
	}
	tok, err := s.tokens.GetByApplication(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no token issued for this application")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load token")
	}
	return tok, nil
}

// ListTokens returns all issued tokens, newest first. Token desk and
// admin only.
func (s *Service) ListTokens(ctx context.Context, actor lifecycle.Actor) ([]*lifecycle.Token, error) {
	if err := lifecycle.AuthorizeQueue(lifecycle.QueueTokens, actor.Role); err != nil {
		return nil, err
	}
	tokens, err := s.tokens.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list tokens")
	}
	return tokens, nil
}

// GetPhotoSign returns the photo/signature record for the application.
func (s *Service) GetPhotoSign(ctx context.Context, actor lifecycle.Actor, appID id.ApplicationID) (*lifecycle.PhotoSign, error) {
	if _, err := s.GetApplication(ctx, actor, appID); err != nil {
		return nil, err
	}
	rec, err := s.photoSigns.GetByApplication(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "nothing uploaded for this application")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load photo/sign record")
	}
	return rec, nil
}

// ListPendingPhotoSigns returns the validation officer's work queue.
func (s *Service) ListPendingPhotoSigns(ctx context.Context, actor lifecycle.Actor) ([]*lifecycle.PhotoSign, error) {
	if err := lifecycle.AuthorizeQueue(lifecycle.QueuePhotoSigns, actor.Role); err != nil {
		return nil, err
	}
	recs, err := s.photoSigns.ListPending(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list pending photo/sign records")
	}
	return recs, nil
}

// GetVerification returns the verification record for the application.
func (s *Service) GetVerification(ctx context.Context, actor lifecycle.Actor, appID id.ApplicationID) (*lifecycle.Verification, error) {
	if _, err := s.GetApplication(ctx, actor, appID); err != nil {
		return nil, err
	}
	rec, err := s.verifications.GetByApplication(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no verification record for this application")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load verification record")
	}
	return rec, nil
}

// ListPendingVerifications returns the verification officer's work queue.
func (s *Service) ListPendingVerifications(ctx context.Context, actor lifecycle.Actor) ([]*lifecycle.Verification, error) {
	if err := lifecycle.AuthorizeQueue(lifecycle.QueueVerifications, actor.Role); err != nil {
		return nil, err
	}
	recs, err := s.verifications.ListPending(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list pending verification records")
	}
	return recs, nil
}

// GetProcessing returns the processing record for the application.
func (s *Service) GetProcessing(ctx context.Context, actor lifecycle.Actor, appID id.ApplicationID) (*lifecycle.Processing, error) {
	if _, err := s.GetApplication(ctx, actor, appID); err != nil {
		return nil, err
	}
	rec, err := s.processings.GetByApplication(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no processing record for this application")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load processing record")
	}
	return rec, nil
}

// ListPendingProcessings returns the processing officer's work queue.
func (s *Service) ListPendingProcessings(ctx context.Context, actor lifecycle.Actor) ([]*lifecycle.Processing, error) {
	if err := lifecycle.AuthorizeQueue(lifecycle.QueueProcessings, actor.Role); err != nil {
		return nil, err
	}
	recs, err := s.processings.ListPending(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list pending processing records")
	}
	return recs, nil
}

// GetApproval returns the latest decision entry for the application.
func (s *Service) GetApproval(ctx context.Context, actor lifecycle.Actor, appID id.ApplicationID) (*lifecycle.Approval, error) {
	if _, err := s.GetApplication(ctx, actor, appID); err != nil {
		return nil, err
	}
	entry, err := s.approvals.GetByApplication(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no decision recorded for this application")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load approval entry")
	}
	return entry, nil
}

// ListApprovals returns all decision entries, newest first. Approval desk
// and admin only.
func (s *Service) ListApprovals(ctx context.Context, actor lifecycle.Actor) ([]*lifecycle.Approval, error) {
	if err := lifecycle.AuthorizeQueue(lifecycle.QueueApprovals, actor.Role); err != nil {
		return nil, err
	}
	entries, err := s.approvals.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list approval entries")
	}
	return entries, nil
}
