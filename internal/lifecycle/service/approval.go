package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
	dErrors "passtrack/pkg/domain-errors"
	"passtrack/pkg/platform/audit"
	"passtrack/pkg/platform/sentinel"
	"passtrack/pkg/requestcontext"
)

// Passports are valid for ten years from issue.
const passportValidityYears = 10

func newPassportNumber() string {
	return fmt.Sprintf("Z%08d", rand.IntN(100_000_000))
}

// ProcessApproval takes the final decision on an application. Only
// applications sitting at final approval with an in-progress status are
// eligible; anything else is rejected without touching the application.
// An approval issues the passport number atomically with the decision.
func (s *Service) ProcessApproval(ctx context.Context, actor lifecycle.Actor, appID id.ApplicationID, decision lifecycle.Decision, comments string) (*lifecycle.Approval, error) {
	if _, err := lifecycle.ParseDecision(string(decision)); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var entry *lifecycle.Approval

	err := s.runTransition(ctx, lifecycle.TransitionApprove, actor, func(ctx context.Context) error {
		app, err := s.loadForTransition(ctx, appID)
		if err != nil {
			return err
		}
		if app.CurrentStage != lifecycle.StageFinalApproval || app.Status != lifecycle.StatusInProgress {
			return dErrors.New(dErrors.CodeConflict, "application is not ready for a final decision")
		}
		before := app.Snapshot()

		log := &lifecycle.Approval{
			ID:            id.NewApprovalID(),
			ApplicationID: appID,
			Decision:      decision,
			ApprovedBy:    actor.UserID,
			Comments:      comments,
			DecisionDate:  now,
		}
		if decision == lifecycle.DecisionApproved {
			log.IssueDate = now
			log.ExpiryDate = now.AddDate(passportValidityYears, 0, 0)
			for attempt := 0; ; attempt++ {
				log.PassportNumber = newPassportNumber()
				err = s.approvals.Create(ctx, log)
				if err == nil {
					break
				}
				if !errors.Is(err, sentinel.ErrAlreadyUsed) || attempt+1 >= numberRetryAttempts {
					return err
				}
			}
		} else if err := s.approvals.Create(ctx, log); err != nil {
			return err
		}

		app.ApplyDecision(decision, comments, now)
		if decision == lifecycle.DecisionApproved {
			app.AdvanceTo(lifecycle.StageCompleted, now)
		}
		if err := s.apps.Update(ctx, app); err != nil {
			return err
		}

		entry = log
		return s.appendAudit(ctx, actor, audit.ActionApprovalDecided,
			"application", app.ID.String(), before, app.Snapshot(), now)
	})
	if err != nil {
		return nil, coded(err, "process approval")
	}
	return entry, nil
}

// BulkResult is the per-application outcome of a bulk decision.
type BulkResult struct {
	ApplicationID id.ApplicationID `json:"application_id"`
	OK            bool             `json:"ok"`
	Error         string           `json:"error,omitempty"`
}

// BulkApprove applies the same decision to a batch of applications, one
// transaction each. A failure on one application never rolls back the
// others; ineligible applications are reported and left unchanged.
func (s *Service) BulkApprove(ctx context.Context, actor lifecycle.Actor, appIDs []id.ApplicationID, decision lifecycle.Decision, comments string) []BulkResult {
	results := make([]BulkResult, 0, len(appIDs))
	for _, appID := range appIDs {
		_, err := s.ProcessApproval(ctx, actor, appID, decision, comments)
		res := BulkResult{ApplicationID: appID, OK: err == nil}
		if err != nil {
			res.Error = dErrors.MessageOf(err)
		}
		results = append(results, res)
	}
	return results
}
