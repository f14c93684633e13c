package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"passtrack/internal/identity"
	"passtrack/internal/identity/store/revocation"
	userstore "passtrack/internal/identity/store/user"
	"passtrack/internal/jwttoken"
	dErrors "passtrack/pkg/domain-errors"
	"passtrack/pkg/platform/audit"
	auditmemory "passtrack/pkg/platform/audit/store/memory"
	txrunner "passtrack/pkg/platform/tx"
)

type ServiceSuite struct {
	suite.Suite
	users   *userstore.MemoryStore
	auditor *auditmemory.Store
	trl     *revocation.MemoryTRL
	jwt     *jwttoken.JWTService
	svc     *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.users = userstore.NewMemory()
	s.auditor = auditmemory.New()
	s.trl = revocation.NewMemoryTRL()
	s.jwt = jwttoken.NewJWTService("test-key", "passtrack", "passtrack-api")
	s.svc = New(s.users, s.auditor, s.jwt, s.trl, txrunner.NewMemoryRunner(), time.Hour, slog.Default())
}

func (s *ServiceSuite) register(username string) *identity.User {
	u, err := s.svc.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "s3cret-pass",
		FullName: "Test User",
	})
	s.Require().NoError(err)
	return u
}

func (s *ServiceSuite) TestRegisterAndLogin() {
	ctx := context.Background()
	u := s.register("applicant")

	s.Equal(identity.RoleUser, u.Role)
	s.Equal(identity.StatusActive, u.Status)
	s.NotEqual("s3cret-pass", u.PasswordHash)

	result, err := s.svc.Login(ctx, "applicant", "s3cret-pass")
	s.Require().NoError(err)
	s.NotEmpty(result.AccessToken)
	s.Equal(u.ID, result.User.ID)
	s.NotNil(result.User.LastLogin)

	claims, err := s.jwt.ValidateToken(result.AccessToken)
	s.Require().NoError(err)
	s.Equal(u.ID.String(), claims.UserID)
	s.Equal("user", claims.Role)
}

func (s *ServiceSuite) TestRegisterWritesAuditEntry() {
	u := s.register("audited")

	entries := s.auditor.All()
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionUserCreated, entries[0].Action)
	s.Equal(u.ID.String(), entries[0].RecordID)
	s.Equal("audited", entries[0].After["username"])
	s.NotContains(entries[0].After, "password_hash")
}

func (s *ServiceSuite) TestRegisterDerivesNameFromEmail() {
	u, err := s.svc.Register(context.Background(), RegisterInput{
		Username: "asha",
		Email:    "asha.kumar@example.com",
		Password: "s3cret-pass",
	})
	s.Require().NoError(err)
	s.Equal("Asha Kumar", u.FullName)
}

func (s *ServiceSuite) TestRegisterDuplicateUsername() {
	s.register("duplicate")

	_, err := s.svc.Register(context.Background(), RegisterInput{
		Username: "duplicate",
		Email:    "other@example.com",
		Password: "s3cret-pass",
		FullName: "Other User",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestRegisterValidation() {
	_, err := s.svc.Register(context.Background(), RegisterInput{
		Username: "shortpw",
		Email:    "shortpw@example.com",
		Password: "short",
		FullName: "Short Password",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestLoginWrongPassword() {
	s.register("applicant")
	_, err := s.svc.Login(context.Background(), "applicant", "wrong-password")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestLoginUnknownUser() {
	_, err := s.svc.Login(context.Background(), "nobody", "whatever-pass")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestLoginSuspendedUser() {
	ctx := context.Background()
	u := s.register("suspended")

	u.Status = identity.StatusSuspended
	s.Require().NoError(s.users.Update(ctx, u))

	_, err := s.svc.Login(ctx, "suspended", "s3cret-pass")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestLogoutRevokesToken() {
	ctx := context.Background()
	s.register("leaver")

	result, err := s.svc.Login(ctx, "leaver", "s3cret-pass")
	s.Require().NoError(err)

	jti, _, err := s.jwt.ExtractJTI(result.AccessToken)
	s.Require().NoError(err)

	revoked, err := s.trl.IsTokenRevoked(ctx, jti)
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(s.svc.Logout(ctx, result.AccessToken))

	revoked, err = s.trl.IsTokenRevoked(ctx, jti)
	s.Require().NoError(err)
	s.True(revoked)
}

func (s *ServiceSuite) TestResolveActive() {
	ctx := context.Background()
	u := s.register("resolver")

	role, err := s.svc.ResolveActive(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("user", role)

	u.Status = identity.StatusInactive
	s.Require().NoError(s.users.Update(ctx, u))

	_, err = s.svc.ResolveActive(ctx, u.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
