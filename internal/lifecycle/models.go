// Package lifecycle owns the passport application aggregate and its state
// machine: the stages an application passes through, who may move it
// between them, and the invariants each transition preserves.
package lifecycle

import (
	"time"

	id "passtrack/pkg/domain"
	dErrors "passtrack/pkg/domain-errors"
)

// Stage is one phase of the passport pipeline. Stages are strictly ordered
// and an application's stage never regresses.
type Stage string

const (
	StageApplication          Stage = "application"
	StageToken                Stage = "token"
	StagePhotoValidation      Stage = "photo_validation"
	StageDocumentVerification Stage = "document_verification"
	StagePoliceVerification   Stage = "police_verification"
	StageFinalApproval        Stage = "final_approval"
	StageCompleted            Stage = "completed"
)

// stageOrder defines the forward progression. Higher rank means further
// along the pipeline.
var stageOrder = map[Stage]int{
	StageApplication:          0,
	StageToken:                1,
	StagePhotoValidation:      2,
	StageDocumentVerification: 3,
	StagePoliceVerification:   4,
	StageFinalApproval:        5,
	StageCompleted:            6,
}

// Rank returns the stage's position in the pipeline, or -1 for unknown stages.
func (s Stage) Rank() int {
	rank, ok := stageOrder[s]
	if !ok {
		return -1
	}
	return rank
}

func (s Stage) String() string { return string(s) }

// ParseStage validates a stage string.
func ParseStage(raw string) (Stage, error) {
	stage := Stage(raw)
	if _, ok := stageOrder[stage]; !ok {
		return "", dErrors.New(dErrors.CodeValidation, "invalid stage")
	}
	return stage, nil
}

// Status is the overall outcome of an application, orthogonal to stage.
// approved, rejected and completed are terminal.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusSubmitted  Status = "submitted"
	StatusInProgress Status = "in_progress"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusOnHold     Status = "on_hold"
	StatusCompleted  Status = "completed"
)

var validStatuses = map[Status]struct{}{
	StatusDraft:      {},
	StatusSubmitted:  {},
	StatusInProgress: {},
	StatusApproved:   {},
	StatusRejected:   {},
	StatusOnHold:     {},
	StatusCompleted:  {},
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

// IsTerminal reports whether the status freezes the application.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCompleted
}

// Priority orders the back-office queues.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityTatkal Priority = "tatkal"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority validates a priority string, defaulting empty to normal.
func ParsePriority(raw string) (Priority, error) {
	if raw == "" {
		return PriorityNormal, nil
	}
	switch p := Priority(raw); p {
	case PriorityNormal, PriorityTatkal, PriorityUrgent:
		return p, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "invalid priority")
	}
}

// Applicant is the immutable snapshot of the person applying, fixed at
// submission.
type Applicant struct {
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
}

// Application is the aggregate root. The lifecycle engine exclusively owns
// writes to Status and CurrentStage; stage handlers delegate advances back
// here so the forward-progression invariant lives in one place.
type Application struct {
	ID           id.ApplicationID
	UserID       id.UserID
	Applicant    Applicant
	Priority     Priority
	Status       Status
	CurrentStage Stage
	Remarks      string
	ApprovedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanMutate reports whether the application accepts further transitions.
func (a *Application) CanMutate() error {
	if a.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeConflict, "application is in a terminal state")
	}
	return nil
}

// AdvanceTo moves the stage forward. Advancing to a stage at or before the
// current one is a no-op, which makes retried advance decisions idempotent.
// Returns true when the stage actually changed.
func (a *Application) AdvanceTo(stage Stage, now time.Time) bool {
	if stage.Rank() <= a.CurrentStage.Rank() {
		return false
	}
	a.CurrentStage = stage
	a.UpdatedAt = now
	return true
}

// SetStatus stamps a new overall status.
func (a *Application) SetStatus(status Status, now time.Time) {
	a.Status = status
	a.UpdatedAt = now
}

// ApplyDecision applies a final approval outcome.
func (a *Application) ApplyDecision(decision Decision, remarks string, now time.Time) {
	switch decision {
	case DecisionApproved:
		a.Status = StatusApproved
		t := now
		a.ApprovedAt = &t
	case DecisionRejected:
		a.Status = StatusRejected
	case DecisionOnHold:
		a.Status = StatusOnHold
	}
	if remarks != "" {
		a.Remarks = remarks
	}
	a.UpdatedAt = now
}

// Snapshot returns the audit payload view of the application.
func (a *Application) Snapshot() map[string]any {
	return map[string]any{
		"user_id":       a.UserID.String(),
		"full_name":     a.Applicant.FullName,
		"status":        string(a.Status),
		"current_stage": string(a.CurrentStage),
		"priority":      string(a.Priority),
		"remarks":       a.Remarks,
	}
}
