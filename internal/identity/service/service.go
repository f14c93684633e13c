// Package service implements account registration and authentication.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"passtrack/internal/identity"
	userstore "passtrack/internal/identity/store/user"
	id "passtrack/pkg/domain"
	dErrors "passtrack/pkg/domain-errors"
	"passtrack/pkg/email"
	"passtrack/pkg/platform/audit"
	"passtrack/pkg/platform/sentinel"
	txrunner "passtrack/pkg/platform/tx"
	"passtrack/pkg/requestcontext"
)

// TokenIssuer mints access tokens for authenticated users.
type TokenIssuer interface {
	GenerateAccessToken(userID uuid.UUID, role string, expiresIn time.Duration) (string, error)
	ExtractJTI(tokenString string) (jti string, expiresAt time.Time, err error)
}

// TokenRevoker stores revoked token ids until their natural expiry.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

// Service owns account registration, login and logout.
type Service struct {
	users    userstore.Store
	auditor  audit.Store
	tokens   TokenIssuer
	revoker  TokenRevoker
	tx       txrunner.Runner
	tokenTTL time.Duration
	logger   *slog.Logger
}

func New(users userstore.Store, auditor audit.Store, tokens TokenIssuer, revoker TokenRevoker, tx txrunner.Runner, tokenTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		users:    users,
		auditor:  auditor,
		tokens:   tokens,
		revoker:  revoker,
		tx:       tx,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// RegisterInput carries a self-service registration request. Role is always
// "user"; privileged roles are assigned by an admin.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Phone    string
}

func (in RegisterInput) validate() error {
	if in.Username == "" || in.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "username and email are required")
	}
	if len(in.Password) < 8 {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	return nil
}

// Register creates a self-service account with the user role.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*identity.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}

	fullName := in.FullName
	if fullName == "" {
		fullName = email.DeriveDisplayName(in.Email)
	}

	now := requestcontext.Now(ctx)
	u := &identity.User{
		ID:           id.NewUserID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Phone:        in.Phone,
		Role:         identity.RoleUser,
		Status:       identity.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		return s.auditor.Append(ctx, &audit.Entry{
			ID:        id.NewAuditEventID(),
			ActorID:   u.ID,
			Action:    audit.ActionUserCreated,
			Entity:    "users",
			RecordID:  u.ID.String(),
			After:     u.Snapshot(),
			Origin:    audit.OriginFromContext(ctx),
			RequestID: requestcontext.RequestID(ctx),
			Timestamp: now,
		})
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "username or email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "register user")
	}

	s.logger.InfoContext(ctx, "user registered",
		"user_id", u.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return u, nil
}

// LoginResult carries the issued access token and the authenticated account.
type LoginResult struct {
	AccessToken string
	ExpiresIn   time.Duration
	User        *identity.User
}

// Login verifies credentials, rejects non-active accounts, stamps last
// login and issues an access token.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "username and password are required")
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "look up user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if err := u.CanAuthenticate(); err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateAccessToken(uuid.UUID(u.ID), u.Role.String(), s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "issue access token")
	}

	u.ApplyLogin(requestcontext.Now(ctx))
	if err := s.users.Update(ctx, u); err != nil {
		// Last-login is informational; the login itself already succeeded.
		s.logger.WarnContext(ctx, "failed to stamp last login",
			"error", err,
			"user_id", u.ID,
		)
	}

	s.logger.InfoContext(ctx, "user logged in",
		"user_id", u.ID,
		"role", u.Role,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &LoginResult{AccessToken: token, ExpiresIn: s.tokenTTL, User: u}, nil
}

// Logout revokes the presented token's jti until the token would have
// expired on its own.
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	jti, expiresAt, err := s.tokens.ExtractJTI(tokenString)
	if err != nil {
		return err
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.RevokeToken(ctx, jti, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "revoke token")
	}
	s.logger.InfoContext(ctx, "user logged out",
		"user_id", requestcontext.UserID(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// ResolveActive returns the stored role for an account that is allowed to
// authenticate. The auth middleware calls this on every request so role
// changes and suspensions take effect immediately.
func (s *Service) ResolveActive(ctx context.Context, userID id.UserID) (string, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "account not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "look up user")
	}
	if err := u.CanAuthenticate(); err != nil {
		return "", err
	}
	return u.Role.String(), nil
}
