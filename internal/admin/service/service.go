// Package service implements the admin back office: account management,
// dashboard statistics and audit trail browsing.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"passtrack/internal/identity"
	userstore "passtrack/internal/identity/store/user"
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

// Service owns admin-only operations. Deleting a user cascades through
// every record the account owns, inside one transaction.
type Service struct {
	users         userstore.Store
	apps          application.Store
	tokens        token.Store
	photoSigns    photosign.Store
	verifications verification.Store
	processings   processing.Store
	approvals     approval.Store
	auditor       audit.Store
	tx            txrunner.Runner
	logger        *slog.Logger
}

func New(
	users userstore.Store,
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
		users:         users,
		apps:          apps,
		tokens:        tokens,
		photoSigns:    photoSigns,
		verifications: verifications,
		processings:   processings,
		approvals:     approvals,
		auditor:       auditor,
		tx:            tx,
		logger:        logger,
	}
}

// ListUsers returns accounts matching the filter.
func (s *Service) ListUsers(ctx context.Context, filter userstore.Filter) ([]*identity.User, error) {
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list users")
	}
	return users, nil
}

// GetUser returns one account.
func (s *Service) GetUser(ctx context.Context, userID id.UserID) (*identity.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load user")
	}
	return u, nil
}

// CreateUserInput carries an admin-created account. Unlike self-service
// registration, any role can be assigned here.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Phone    string
	Role     string
}

// CreateUser provisions an account with an arbitrary role.
func (s *Service) CreateUser(ctx context.Context, actorID id.UserID, in CreateUserInput) (*identity.User, error) {
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.FullName) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "username, email and full name are required")
	}
	if len(in.Password) < 8 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	role, err := identity.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}

	now := requestcontext.Now(ctx)
	u := &identity.User{
		ID:           id.NewUserID(),
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        in.Phone,
		Role:         role,
		Status:       identity.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		return s.appendAudit(ctx, actorID, audit.ActionUserCreated, u.ID.String(), nil, u.Snapshot(), now)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "username or email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create user")
	}
	return u, nil
}

// UpdateUserInput carries the mutable account fields. Empty fields are
// left unchanged.
type UpdateUserInput struct {
	FullName string
	Phone    string
	Role     string
	Status   string
}

// UpdateUser patches an account's profile, role or status.
func (s *Service) UpdateUser(ctx context.Context, actorID, userID id.UserID, in UpdateUserInput) (*identity.User, error) {
	now := requestcontext.Now(ctx)
	var updated *identity.User

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
			}
			return err
		}
		before := u.Snapshot()

		if in.FullName != "" {
			u.FullName = in.FullName
		}
		if in.Phone != "" {
			u.Phone = in.Phone
		}
		if in.Role != "" {
			role, err := identity.ParseRole(in.Role)
			if err != nil {
				return err
			}
			u.Role = role
		}
		if in.Status != "" {
			status, err := identity.ParseStatus(in.Status)
			if err != nil {
				return err
			}
			u.Status = status
		}
		u.UpdatedAt = now

		if err := s.users.Update(ctx, u); err != nil {
			return err
		}
		updated = u
		return s.appendAudit(ctx, actorID, audit.ActionUserUpdated, u.ID.String(), before, u.Snapshot(), now)
	})
	if err != nil {
		var coded *dErrors.Error
		if errors.As(err, &coded) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update user")
	}
	return updated, nil
}

// DeleteUser removes an account and everything it owns: applications and
// all their stage records go with it, atomically. Admins cannot delete
// themselves.
func (s *Service) DeleteUser(ctx context.Context, actorID, userID id.UserID) error {
	if actorID == userID {
		return dErrors.New(dErrors.CodeConflict, "cannot delete your own account")
	}

	now := requestcontext.Now(ctx)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
			}
			return err
		}
		before := u.Snapshot()

		apps, err := s.apps.List(ctx, application.Filter{UserID: userID})
		if err != nil {
			return err
		}
		for _, app := range apps {
			if err := s.tokens.DeleteByApplication(ctx, app.ID); err != nil {
				return err
			}
			if err := s.photoSigns.DeleteByApplication(ctx, app.ID); err != nil {
				return err
			}
			if err := s.verifications.DeleteByApplication(ctx, app.ID); err != nil {
				return err
			}
			if err := s.processings.DeleteByApplication(ctx, app.ID); err != nil {
				return err
			}
			if err := s.approvals.DeleteByApplication(ctx, app.ID); err != nil {
				return err
			}
			if err := s.apps.Delete(ctx, app.ID); err != nil {
				return err
			}
		}

		if err := s.users.Delete(ctx, userID); err != nil {
			return err
		}
		return s.appendAudit(ctx, actorID, audit.ActionUserDeleted, userID.String(), before, nil, now)
	})
	if err != nil {
		var coded *dErrors.Error
		if errors.As(err, &coded) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete user")
	}

	s.logger.InfoContext(ctx, "user deleted",
		"user_id", userID,
		"actor_id", actorID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// Statistics is the admin dashboard payload.
type Statistics struct {
	Applications application.Stats     `json:"applications"`
	UsersByRole  map[identity.Role]int `json:"users_by_role"`
	GeneratedAt  time.Time             `json:"generated_at"`
}

// Statistics aggregates application and account counts.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	now := requestcontext.Now(ctx)
	appStats, err := s.apps.Stats(ctx, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "application statistics")
	}
	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "user statistics")
	}
	return &Statistics{
		Applications: appStats,
		UsersByRole:  byRole,
		GeneratedAt:  now,
	}, nil
}

// AuditLogs browses the compliance trail.
func (s *Service) AuditLogs(ctx context.Context, filter audit.Filter) ([]*audit.Entry, error) {
	entries, err := s.auditor.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list audit entries")
	}
	return entries, nil
}

func (s *Service) appendAudit(ctx context.Context, actorID id.UserID, action audit.Action, recordID string, before, after map[string]any, now time.Time) error {
	return s.auditor.Append(ctx, &audit.Entry{
		ID:        id.NewAuditEventID(),
		ActorID:   actorID,
		Action:    action,
		Entity:    "user",
		RecordID:  recordID,
		Before:    before,
		After:     after,
		Origin:    audit.OriginFromContext(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: now,
	})
}
