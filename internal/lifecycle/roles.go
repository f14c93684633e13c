package lifecycle

import (
	"passtrack/internal/identity"
	id "passtrack/pkg/domain"
	dErrors "passtrack/pkg/domain-errors"
)

// Transition names a guarded state change on an application.
type Transition string

const (
	TransitionSubmit            Transition = "submit"
	TransitionIssueToken        Transition = "issue_token"
	TransitionUploadPhotoSign   Transition = "upload_photo_sign"
	TransitionValidatePhotoSign Transition = "validate_photo_sign"
	TransitionVerify            Transition = "verify_document"
	TransitionProcess           Transition = "update_processing"
	TransitionApprove           Transition = "process_approval"
	TransitionUpdateStatus      Transition = "update_status"
)

// transitionRoles is the single authorization table for the whole engine.
// Handlers never duplicate these checks; the engine evaluates them once per
// transition.
var transitionRoles = map[Transition][]identity.Role{
	TransitionSubmit:            {identity.RoleUser, identity.RoleAdmin},
	TransitionIssueToken:        {identity.RoleToken, identity.RoleAdmin},
	TransitionUploadPhotoSign:   {identity.RoleUser, identity.RoleAdmin},
	TransitionValidatePhotoSign: {identity.RolePhoto, identity.RoleAdmin},
	TransitionVerify:            {identity.RoleVerification, identity.RoleAdmin},
	TransitionProcess:           {identity.RoleProcessing, identity.RoleAdmin},
	TransitionApprove:           {identity.RoleApproval, identity.RoleAdmin},

	// Any back-office desk from verification onward may correct an
	// application's status directly.
	TransitionUpdateStatus: {
		identity.RoleVerification,
		identity.RoleProcessing,
		identity.RoleApproval,
		identity.RoleAdmin,
	},
}

// Queue names a back-office work queue read.
type Queue string

const (
	QueueTokens        Queue = "tokens"
	QueuePhotoSigns    Queue = "pending_photo_signs"
	QueueVerifications Queue = "pending_verifications"
	QueueProcessings   Queue = "pending_processings"
	QueueApprovals     Queue = "approvals"
)

// queueRoles mirrors transitionRoles for reads: each desk sees its own
// queue, admin sees everything. Applicants never see other applicants'
// records through these.
var queueRoles = map[Queue][]identity.Role{
	QueueTokens:        {identity.RoleToken, identity.RoleAdmin},
	QueuePhotoSigns:    {identity.RolePhoto, identity.RoleAdmin},
	QueueVerifications: {identity.RoleVerification, identity.RoleAdmin},
	QueueProcessings:   {identity.RoleProcessing, identity.RoleAdmin},
	QueueApprovals:     {identity.RoleApproval, identity.RoleAdmin},
}

// AuthorizeQueue checks the actor's role against the queue's allow-list.
func AuthorizeQueue(q Queue, role identity.Role) error {
	for _, allowed := range queueRoles[q] {
		if role == allowed {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeForbidden, "role not permitted to read this queue")
}

// Actor is the authenticated identity performing an operation. The
// authentication collaborator validates it before any lifecycle call;
// the engine trusts it.
type Actor struct {
	UserID id.UserID
	Role   identity.Role
}

// Authorize checks the actor's role against the transition's allow-list.
func Authorize(t Transition, role identity.Role) error {
	for _, allowed := range transitionRoles[t] {
		if role == allowed {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeForbidden, "role not permitted for this operation")
}
