package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passtrack/internal/identity"
	id "passtrack/pkg/domain"
	dErrors "passtrack/pkg/domain-errors"
)

func newApplication() *Application {
	now := time.Now()
	return &Application{
		ID:           id.NewApplicationID(),
		UserID:       id.NewUserID(),
		Status:       StatusSubmitted,
		CurrentStage: StageApplication,
		Priority:     PriorityNormal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestAdvanceTo_Monotonic(t *testing.T) {
	app := newApplication()
	now := time.Now()

	require.True(t, app.AdvanceTo(StagePhotoValidation, now))
	assert.Equal(t, StagePhotoValidation, app.CurrentStage)

	// Moving backwards or staying put is a no-op.
	assert.False(t, app.AdvanceTo(StageToken, now))
	assert.False(t, app.AdvanceTo(StagePhotoValidation, now))
	assert.Equal(t, StagePhotoValidation, app.CurrentStage)

	require.True(t, app.AdvanceTo(StageFinalApproval, now))
	assert.Equal(t, StageFinalApproval, app.CurrentStage)
}

func TestAdvanceTo_IdempotentOnRetry(t *testing.T) {
	app := newApplication()
	now := time.Now()

	require.True(t, app.AdvanceTo(StageDocumentVerification, now))
	assert.False(t, app.AdvanceTo(StageDocumentVerification, now))
	assert.Equal(t, StageDocumentVerification, app.CurrentStage)
}

func TestCanMutate_TerminalStatuses(t *testing.T) {
	for _, status := range []Status{StatusApproved, StatusRejected, StatusCompleted} {
		app := newApplication()
		app.Status = status
		err := app.CanMutate()
		require.Error(t, err, string(status))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	}

	for _, status := range []Status{StatusDraft, StatusSubmitted, StatusInProgress, StatusOnHold} {
		app := newApplication()
		app.Status = status
		assert.NoError(t, app.CanMutate(), string(status))
	}
}

func TestApplyDecision(t *testing.T) {
	now := time.Now()

	app := newApplication()
	app.ApplyDecision(DecisionApproved, "all clear", now)
	assert.Equal(t, StatusApproved, app.Status)
	require.NotNil(t, app.ApprovedAt)
	assert.Equal(t, now, *app.ApprovedAt)
	assert.Equal(t, "all clear", app.Remarks)

	app = newApplication()
	app.ApplyDecision(DecisionRejected, "", now)
	assert.Equal(t, StatusRejected, app.Status)
	assert.Nil(t, app.ApprovedAt)

	app = newApplication()
	app.ApplyDecision(DecisionOnHold, "needs another document", now)
	assert.Equal(t, StatusOnHold, app.Status)
	assert.Nil(t, app.ApprovedAt)
}

func TestPhotoSignVerdict(t *testing.T) {
	p := &PhotoSign{PhotoApproved: true}
	assert.False(t, p.BothApproved())
	p.SignatureApproved = true
	assert.True(t, p.BothApproved())
}

func TestVerificationVerdict(t *testing.T) {
	v := &Verification{Status: VerificationInProgress}
	assert.False(t, v.Completed())
	v.Status = VerificationCompleted
	assert.True(t, v.Completed())
}

func TestProcessingVerdict(t *testing.T) {
	p := &Processing{PoliceStatus: PoliceClear, Reference1: Reference{Verified: true}}
	assert.False(t, p.Cleared())

	p.Reference2.Verified = true
	assert.True(t, p.Cleared())

	p.PoliceStatus = PoliceFailed
	assert.False(t, p.Cleared())
}

func TestAuthorize(t *testing.T) {
	require.NoError(t, Authorize(TransitionApprove, identity.RoleApproval))
	require.NoError(t, Authorize(TransitionApprove, identity.RoleAdmin))

	err := Authorize(TransitionApprove, identity.RoleToken)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	err = Authorize(TransitionIssueToken, identity.RoleUser)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestParseDecision(t *testing.T) {
	for _, raw := range []string{"approved", "rejected", "on_hold"} {
		_, err := ParseDecision(raw)
		require.NoError(t, err, raw)
	}
	_, err := ParseDecision("returned")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestParseStage(t *testing.T) {
	stage, err := ParseStage("police_verification")
	require.NoError(t, err)
	assert.Equal(t, 4, stage.Rank())

	_, err = ParseStage("unknown")
	require.Error(t, err)
}
