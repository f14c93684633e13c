// Package audit defines the append-only audit trail written alongside every
// state-changing operation: who acted, what changed, and the structured
// before/after picture of the affected record.
package audit

import (
	"time"

	id "passtrack/pkg/domain"
)

// EventCategory classifies audit events by their durability requirement.
type EventCategory string

const (
	// CategoryCompliance covers lifecycle and account mutations. These are
	// appended in the same transaction as the mutation they describe and
	// must never be lost: a persisted write without its audit entry is a
	// correctness bug.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers best-effort per-request traces. These are
	// published fire-and-forget and may be sampled or dropped.
	CategoryOperations EventCategory = "operations"
)

// Action verbs recorded on audit entries, one per state-changing operation.
type Action string

const (
	ActionApplicationSubmitted Action = "application_submitted"
	ActionApplicationUpdated   Action = "application_updated"
	ActionTokenIssued          Action = "token_issued"
	ActionPhotoSignUploaded    Action = "photo_sign_uploaded"
	ActionPhotoSignValidated   Action = "photo_sign_validated"
	ActionVerificationStarted  Action = "verification_started"
	ActionVerificationUpdated  Action = "verification_updated"
	ActionProcessingStarted    Action = "processing_started"
	ActionProcessingUpdated    Action = "processing_updated"
	ActionApprovalDecided      Action = "approval_decided"

	ActionUserCreated Action = "user_created"
	ActionUserUpdated Action = "user_updated"
	ActionUserDeleted Action = "user_deleted"

	ActionRequestTrace Action = "request_trace"
)

// actionCategories maps each action to its durability class. Everything that
// moves an application or account forward is compliance-grade.
var actionCategories = map[Action]EventCategory{
	ActionApplicationSubmitted: CategoryCompliance,
	ActionApplicationUpdated:   CategoryCompliance,
	ActionTokenIssued:          CategoryCompliance,
	ActionPhotoSignUploaded:    CategoryCompliance,
	ActionPhotoSignValidated:   CategoryCompliance,
	ActionVerificationStarted:  CategoryCompliance,
	ActionVerificationUpdated:  CategoryCompliance,
	ActionProcessingStarted:    CategoryCompliance,
	ActionProcessingUpdated:    CategoryCompliance,
	ActionApprovalDecided:      CategoryCompliance,
	ActionUserCreated:          CategoryCompliance,
	ActionUserUpdated:          CategoryCompliance,
	ActionUserDeleted:          CategoryCompliance,
	ActionRequestTrace:         CategoryOperations,
}

// Category returns the EventCategory for this action.
// Unknown actions default to CategoryOperations.
func (a Action) Category() EventCategory {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// Origin captures where a request came from. The raw User-Agent is kept
// verbatim for forensics; Client is a normalized "browser on OS" summary.
type Origin struct {
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
	Client    string `json:"client,omitempty"`
}

// Entry is one immutable audit fact. Entries are never updated or deleted
// after insert.
//
// Before is nil for inserts; After is nil for deletes. Both are structured
// key/value snapshots of the affected record so the trail stays
// machine-queryable rather than an opaque blob.
type Entry struct {
	ID        id.AuditEventID `json:"id"`
	ActorID   id.UserID       `json:"actor_id"`
	Action    Action          `json:"action"`
	Entity    string          `json:"entity"`
	RecordID  string          `json:"record_id"`
	Before    map[string]any  `json:"before,omitempty"`
	After     map[string]any  `json:"after,omitempty"`
	Origin    Origin          `json:"origin"`
	RequestID string          `json:"request_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Filter narrows a List query. Zero fields match everything.
type Filter struct {
	ActorID id.UserID
	Action  Action
	Entity  string
	From    time.Time
	To      time.Time
	Limit   int
	Offset  int
}

const (
	// DefaultLimit applies when a filter does not set one.
	DefaultLimit = 100
	// MaxLimit caps a single page regardless of what the caller asks for.
	MaxLimit = 1000
)

// Normalize applies pagination defaults and caps.
func (f Filter) Normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Matches reports whether the entry passes every set field of the filter.
func (f Filter) Matches(e *Entry) bool {
	if !f.ActorID.IsNil() && e.ActorID != f.ActorID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Entity != "" && e.Entity != f.Entity {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	return true
}
