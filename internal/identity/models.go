// Package identity holds user accounts and their single role tag. It is the
// leaf dependency for every authorization check in the system: the lifecycle
// engine trusts the role resolved here and performs no credential checks of
// its own.
package identity

import (
	"time"

	id "passtrack/pkg/domain"
	dErrors "passtrack/pkg/domain-errors"
)

// Role is the single authorization tag carried by a user. Each back-office
// role owns one stage of the passport pipeline; admin may act in all of them.
type Role string

const (
	RoleUser         Role = "user"
	RoleAdmin        Role = "admin"
	RoleToken        Role = "token"
	RolePhoto        Role = "photo"
	RoleVerification Role = "verification"
	RoleProcessing   Role = "processing"
	RoleApproval     Role = "approval"
)

var validRoles = map[Role]struct{}{
	RoleUser:         {},
	RoleAdmin:        {},
	RoleToken:        {},
	RolePhoto:        {},
	RoleVerification: {},
	RoleProcessing:   {},
	RoleApproval:     {},
}

// ParseRole validates a role string.
func ParseRole(raw string) (Role, error) {
	role := Role(raw)
	if _, ok := validRoles[role]; !ok {
		return "", dErrors.New(dErrors.CodeValidation, "invalid role")
	}
	return role, nil
}

func (r Role) String() string { return string(r) }

// Status is the account state. Only active accounts may authenticate;
// suspended and inactive users are rejected at login and at token
// validation, never deeper in the lifecycle.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

var validStatuses = map[Status]struct{}{
	StatusActive:    {},
	StatusInactive:  {},
	StatusSuspended: {},
}

// ParseStatus validates a status string.
func ParseStatus(raw string) (Status, error) {
	status := Status(raw)
	if _, ok := validStatuses[status]; !ok {
		return "", dErrors.New(dErrors.CodeValidation, "invalid status")
	}
	return status, nil
}

func (s Status) String() string { return string(s) }

// User is an account with exactly one role.
type User struct {
	ID           id.UserID
	Username     string
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
	Role         Role
	Status       Status
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanAuthenticate reports whether the account may log in or use a token.
func (u *User) CanAuthenticate() error {
	if u.Status != StatusActive {
		return dErrors.New(dErrors.CodeUnauthorized, "account is not active")
	}
	return nil
}

// ApplyLogin stamps a successful authentication.
func (u *User) ApplyLogin(now time.Time) {
	t := now
	u.LastLogin = &t
	u.UpdatedAt = now
}

// Snapshot returns the audit payload view of the user. The password hash
// never appears in audit entries.
func (u *User) Snapshot() map[string]any {
	return map[string]any{
		"username":  u.Username,
		"email":     u.Email,
		"full_name": u.FullName,
		"phone":     u.Phone,
		"role":      string(u.Role),
		"status":    string(u.Status),
	}
}
