package service

import (
	"context"
	"strings"
	"time"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
	dErrors "passtrack/pkg/domain-errors"
	"passtrack/pkg/platform/audit"
	"passtrack/pkg/requestcontext"
)

// SubmitInput carries a new application. The applicant snapshot is fixed
// at submission and never edited by later stages.
type SubmitInput struct {
	Type        string
	FullName    string
	DateOfBirth time.Time
	Gender      string
	Email       string
	Phone       string
	Address     string
	City        string
	State       string
	Pincode     string
	Priority    string
}

func (in *SubmitInput) validate() (lifecycle.Priority, error) {
	switch {
	case strings.TrimSpace(in.FullName) == "":
		return "", dErrors.New(dErrors.CodeValidation, "full name is required")
	case in.DateOfBirth.IsZero():
		return "", dErrors.New(dErrors.CodeValidation, "date of birth is required")
	case strings.TrimSpace(in.Email) == "":
		return "", dErrors.New(dErrors.CodeValidation, "email is required")
	case strings.TrimSpace(in.Phone) == "":
		return "", dErrors.New(dErrors.CodeValidation, "phone is required")
	case strings.TrimSpace(in.Address) == "":
		return "", dErrors.New(dErrors.CodeValidation, "address is required")
	}
	return lifecycle.ParsePriority(in.Priority)
}

// Submit files a new application for the actor. Applicants always submit
// for themselves; an admin submission is also attributed to the admin's
// own account.
func (s *Service) Submit(ctx context.Context, actor lifecycle.Actor, in SubmitInput) (*lifecycle.Application, error) {
	priority, err := in.validate()
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	applicantType := strings.TrimSpace(in.Type)
	if applicantType == "" {
		applicantType = "fresh"
	}
	app := &lifecycle.Application{
		ID:     id.NewApplicationID(),
		UserID: actor.UserID,
		Applicant: lifecycle.Applicant{
			Type:        applicantType,
			FullName:    strings.TrimSpace(in.FullName),
			DateOfBirth: in.DateOfBirth,
			Gender:      in.Gender,
			Email:       strings.TrimSpace(in.Email),
			Phone:       strings.TrimSpace(in.Phone),
			Address:     strings.TrimSpace(in.Address),
			City:        in.City,
			State:       in.State,
			Pincode:     in.Pincode,
		},
		Priority:     priority,
		Status:       lifecycle.StatusSubmitted,
		CurrentStage: lifecycle.StageApplication,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.runTransition(ctx, lifecycle.TransitionSubmit, actor, func(ctx context.Context) error {
		if err := s.apps.Create(ctx, app); err != nil {
			return err
		}
		return s.appendAudit(ctx, actor, audit.ActionApplicationSubmitted,
			"application", app.ID.String(), nil, app.Snapshot(), now)
	})
	if err != nil {
		return nil, coded(err, "submit application")
	}
	return app, nil
}
