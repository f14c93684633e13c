// Package domain holds typed identifiers shared across modules.
//
// Every entity gets its own UUID-backed type so the compiler rejects
// cross-entity mixups (passing an ApplicationID where a UserID is
// expected is a compile error, not a runtime surprise).
package domain

import (
	"github.com/google/uuid"

	dErrors "passtrack/pkg/domain-errors"
)

// Typed identifiers for the passport workflow entities.
type (
	// UserID identifies an account in the identity store.
	UserID uuid.UUID

	// ApplicationID identifies a passport application aggregate.
	ApplicationID uuid.UUID

	// TokenID identifies a token record issued for an application.
	TokenID uuid.UUID

	// PhotoSignID identifies a photo/signature validation record.
	PhotoSignID uuid.UUID

	// VerificationID identifies a document verification record.
	VerificationID uuid.UUID

	// ProcessingID identifies a police/reference processing record.
	ProcessingID uuid.UUID

	// ApprovalID identifies a final approval log entry.
	ApprovalID uuid.UUID

	// AuditEventID identifies an append-only audit entry.
	AuditEventID uuid.UUID
)

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id ApplicationID) String() string  { return uuid.UUID(id).String() }
func (id TokenID) String() string        { return uuid.UUID(id).String() }
func (id PhotoSignID) String() string    { return uuid.UUID(id).String() }
func (id VerificationID) String() string { return uuid.UUID(id).String() }
func (id ProcessingID) String() string   { return uuid.UUID(id).String() }
func (id ApprovalID) String() string     { return uuid.UUID(id).String() }
func (id AuditEventID) String() string   { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id TokenID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id PhotoSignID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id VerificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProcessingID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ApprovalID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AuditEventID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewApplicationID returns a fresh random application ID.
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

// NewTokenID returns a fresh random token record ID.
func NewTokenID() TokenID { return TokenID(uuid.New()) }

// NewPhotoSignID returns a fresh random photo/signature record ID.
func NewPhotoSignID() PhotoSignID { return PhotoSignID(uuid.New()) }

// NewVerificationID returns a fresh random verification record ID.
func NewVerificationID() VerificationID { return VerificationID(uuid.New()) }

// NewProcessingID returns a fresh random processing record ID.
func NewProcessingID() ProcessingID { return ProcessingID(uuid.New()) }

// NewApprovalID returns a fresh random approval record ID.
func NewApprovalID() ApprovalID { return ApprovalID(uuid.New()) }

// NewAuditEventID returns a fresh random audit event ID.
func NewAuditEventID() AuditEventID { return AuditEventID(uuid.New()) }

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}

// ParseUserID validates and converts a string into a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseApplicationID validates and converts a string into an ApplicationID.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ApplicationID{}, err
	}
	return ApplicationID(u), nil
}

// ParseTokenID validates and converts a string into a TokenID.
func ParseTokenID(s string) (TokenID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return TokenID{}, err
	}
	return TokenID(u), nil
}

// ParsePhotoSignID validates and converts a string into a PhotoSignID.
func ParsePhotoSignID(s string) (PhotoSignID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return PhotoSignID{}, err
	}
	return PhotoSignID(u), nil
}

// ParseVerificationID validates and converts a string into a VerificationID.
func ParseVerificationID(s string) (VerificationID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return VerificationID{}, err
	}
	return VerificationID(u), nil
}

// ParseProcessingID validates and converts a string into a ProcessingID.
func ParseProcessingID(s string) (ProcessingID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ProcessingID{}, err
	}
	return ProcessingID(u), nil
}
