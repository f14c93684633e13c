package lifecycle

import (
	"time"

	id "passtrack/pkg/domain"
	dErrors "passtrack/pkg/domain-errors"
)

// TokenStatus tracks an issued token's validity.
type TokenStatus string

const (
	TokenActive    TokenStatus = "active"
	TokenUsed      TokenStatus = "used"
	TokenExpired   TokenStatus = "expired"
	TokenCancelled TokenStatus = "cancelled"
)

// Token is the appointment token issued when an application enters the
// pipeline. Re-issuance cancels the previous active token.
type Token struct {
	ID            id.TokenID
	ApplicationID id.ApplicationID
	Number        string
	Status        TokenStatus
	AssignedBy    id.UserID
	ValidUntil    time.Time
	CreatedAt     time.Time
}

// Snapshot returns the audit payload view of the token.
func (t *Token) Snapshot() map[string]any {
	return map[string]any{
		"application_id": t.ApplicationID.String(),
		"token_number":   t.Number,
		"status":         string(t.Status),
	}
}

// PhotoSign is the photo/signature validation record, at most one per
// application. Paths are references into the file storage collaborator;
// the record never holds file bytes.
type PhotoSign struct {
	ID                id.PhotoSignID
	ApplicationID     id.ApplicationID
	PhotoPath         string
	SignaturePath     string
	PhotoApproved     bool
	SignatureApproved bool
	PhotoRemarks      string
	SignatureRemarks  string
	ValidatedBy       id.UserID
	ValidatedAt       *time.Time
	CreatedAt         time.Time
}

// BothApproved is the advance verdict: the application moves to document
// verification only when photo and signature are both approved.
func (p *PhotoSign) BothApproved() bool {
	return p.PhotoApproved && p.SignatureApproved
}

// Snapshot returns the audit payload view of the record.
func (p *PhotoSign) Snapshot() map[string]any {
	return map[string]any{
		"application_id":     p.ApplicationID.String(),
		"photo_path":         p.PhotoPath,
		"signature_path":     p.SignaturePath,
		"photo_approved":     p.PhotoApproved,
		"signature_approved": p.SignatureApproved,
	}
}

// VerificationStatus is the overall document verification verdict.
type VerificationStatus string

const (
	VerificationPending    VerificationStatus = "pending"
	VerificationInProgress VerificationStatus = "in_progress"
	VerificationCompleted  VerificationStatus = "completed"
)

// ParseVerificationStatus validates a verification status string.
func ParseVerificationStatus(raw string) (VerificationStatus, error) {
	switch v := VerificationStatus(raw); v {
	case VerificationPending, VerificationInProgress, VerificationCompleted:
		return v, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "invalid verification status")
	}
}

// Verification is the document verification record: one verified flag per
// identity document plus the officer's overall verdict.
type Verification struct {
	ID              id.VerificationID
	ApplicationID   id.ApplicationID
	AadhaarVerified bool
	PANVerified     bool
	DLVerified      bool
	VoterIDVerified bool
	CCTNSVerified   bool
	Status          VerificationStatus
	Remarks         string
	VerifiedBy      id.UserID
	VerifiedAt      *time.Time
	CreatedAt       time.Time
}

// Completed is the advance verdict: the application moves to police
// verification when the officer marks the overall status completed.
func (v *Verification) Completed() bool {
	return v.Status == VerificationCompleted
}

// Snapshot returns the audit payload view of the record.
func (v *Verification) Snapshot() map[string]any {
	return map[string]any{
		"application_id":      v.ApplicationID.String(),
		"aadhaar_verified":    v.AadhaarVerified,
		"pan_verified":        v.PANVerified,
		"dl_verified":         v.DLVerified,
		"voter_id_verified":   v.VoterIDVerified,
		"cctns_verified":      v.CCTNSVerified,
		"verification_status": string(v.Status),
	}
}

// PoliceStatus is the police verification verdict.
type PoliceStatus string

const (
	PolicePending    PoliceStatus = "pending"
	PoliceInProgress PoliceStatus = "in_progress"
	PoliceClear      PoliceStatus = "clear"
	PoliceFailed     PoliceStatus = "failed"
)

// ParsePoliceStatus validates a police verification status string.
func ParsePoliceStatus(raw string) (PoliceStatus, error) {
	switch p := PoliceStatus(raw); p {
	case PolicePending, PoliceInProgress, PoliceClear, PoliceFailed:
		return p, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "invalid police verification status")
	}
}

// Reference is one of the two character references checked during police
// verification.
type Reference struct {
	Name     string
	Aadhaar  string
	Verified bool
}

// Processing is the police/reference verification record.
type Processing struct {
	ID            id.ProcessingID
	ApplicationID id.ApplicationID
	PoliceStatus  PoliceStatus
	PoliceStation string
	PoliceRemarks string
	Reference1    Reference
	Reference2    Reference
	ProcessedBy   id.UserID
	ProcessedAt   *time.Time
	CreatedAt     time.Time
}

// Cleared is the advance verdict: the application moves to final approval
// when the police verdict is clear and both references are verified.
func (p *Processing) Cleared() bool {
	return p.PoliceStatus == PoliceClear && p.Reference1.Verified && p.Reference2.Verified
}

// Snapshot returns the audit payload view of the record.
func (p *Processing) Snapshot() map[string]any {
	return map[string]any{
		"application_id":             p.ApplicationID.String(),
		"police_verification_status": string(p.PoliceStatus),
		"police_station":             p.PoliceStation,
		"reference1_verified":        p.Reference1.Verified,
		"reference2_verified":        p.Reference2.Verified,
	}
}

// Decision is the final approval outcome.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
	DecisionOnHold   Decision = "on_hold"
)

// ParseDecision validates a decision string.
func ParseDecision(raw string) (Decision, error) {
	switch d := Decision(raw); d {
	case DecisionApproved, DecisionRejected, DecisionOnHold:
		return d, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "invalid decision value")
	}
}

// Approval is one immutable final-approval log entry. Approved entries
// carry the issued passport number and its validity window.
type Approval struct {
	ID             id.ApprovalID
	ApplicationID  id.ApplicationID
	Decision       Decision
	ApprovedBy     id.UserID
	Comments       string
	PassportNumber string
	IssueDate      time.Time
	ExpiryDate     time.Time
	DecisionDate   time.Time
}

// Snapshot returns the audit payload view of the entry.
func (a *Approval) Snapshot() map[string]any {
	return map[string]any{
		"application_id":  a.ApplicationID.String(),
		"decision":        string(a.Decision),
		"passport_number": a.PassportNumber,
		"comments":        a.Comments,
	}
}
