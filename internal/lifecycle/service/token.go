package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
	dErrors "passtrack/pkg/domain-errors"
	"passtrack/pkg/platform/audit"
	"passtrack/pkg/platform/sentinel"
	"passtrack/pkg/requestcontext"
)

const (
	tokenValidity       = 24 * time.Hour
	numberRetryAttempts = 3
)

func newTokenNumber(now time.Time) string {
	return fmt.Sprintf("TKN%d%03d", now.UnixMilli(), rand.IntN(1000))
}

// IssueToken issues an appointment token and moves the application into
// the pipeline. Re-issuing cancels the previous active token in the same
// transaction, so at most one token is active per application.
func (s *Service) IssueToken(ctx context.Context, actor lifecycle.Actor, appID id.ApplicationID) (*lifecycle.Token, error) {
	now := requestcontext.Now(ctx)
	var issued *lifecycle.Token

	err := s.runTransition(ctx, lifecycle.TransitionIssueToken, actor, func(ctx context.Context) error {
		app, err := s.loadForTransition(ctx, appID)
		if err != nil {
			return err
		}
		if app.CurrentStage.Rank() > lifecycle.StageToken.Rank() {
			return dErrors.New(dErrors.CodeConflict, "application has moved past the token stage")
		}

		prior, err := s.tokens.GetActiveByApplication(ctx, appID)
		switch {
		case err == nil:
			if err := s.tokens.UpdateStatus(ctx, prior.ID, lifecycle.TokenCancelled); err != nil {
				return err
			}
		case !errors.Is(err, sentinel.ErrNotFound):
			return err
		}

		tok := &lifecycle.Token{
			ID:            id.NewTokenID(),
			ApplicationID: appID,
			Status:        lifecycle.TokenActive,
			AssignedBy:    actor.UserID,
			ValidUntil:    now.Add(tokenValidity),
			CreatedAt:     now,
		}
		for attempt := 0; ; attempt++ {
			tok.Number = newTokenNumber(now)
			err = s.tokens.Create(ctx, tok)
			if err == nil {
				break
			}
			if !errors.Is(err, sentinel.ErrAlreadyUsed) || attempt+1 >= numberRetryAttempts {
				return err
			}
		}

		app.SetStatus(lifecycle.StatusInProgress, now)
		app.AdvanceTo(lifecycle.StageToken, now)
		if err := s.apps.Update(ctx, app); err != nil {
			return err
		}

		issued = tok
		return s.appendAudit(ctx, actor, audit.ActionTokenIssued,
			"token_record", tok.ID.String(), nil, tok.Snapshot(), now)
	})
	if err != nil {
		return nil, coded(err, "issue token")
	}
	return issued, nil
}
