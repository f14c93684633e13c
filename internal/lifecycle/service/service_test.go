package service

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"passtrack/internal/identity"
	"passtrack/internal/lifecycle"
	applicationstore "passtrack/internal/lifecycle/store/application"
	approvalstore "passtrack/internal/lifecycle/store/approval"
	photosignstore "passtrack/internal/lifecycle/store/photosign"
	processingstore "passtrack/internal/lifecycle/store/processing"
	tokenstore "passtrack/internal/lifecycle/store/token"
	verificationstore "passtrack/internal/lifecycle/store/verification"
	id "passtrack/pkg/domain"
	dErrors "passtrack/pkg/domain-errors"
	"passtrack/pkg/platform/audit"
	auditmemory "passtrack/pkg/platform/audit/store/memory"
	txrunner "passtrack/pkg/platform/tx"
	"passtrack/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	apps    *applicationstore.MemoryStore
	tokens  *tokenstore.MemoryStore
	auditor *auditmemory.Store
	svc     *Service

	applicant lifecycle.Actor
	tokenDesk lifecycle.Actor
	photoDesk lifecycle.Actor
	verifier  lifecycle.Actor
	processor lifecycle.Actor
	approver  lifecycle.Actor
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.apps = applicationstore.NewMemory()
	s.tokens = tokenstore.NewMemory()
	s.auditor = auditmemory.New()
	s.svc = New(
		s.apps,
		s.tokens,
		photosignstore.NewMemory(),
		verificationstore.NewMemory(),
		processingstore.NewMemory(),
		approvalstore.NewMemory(),
		s.auditor,
		txrunner.NewMemoryRunner(),
		slog.Default(),
	)

	s.applicant = lifecycle.Actor{UserID: id.NewUserID(), Role: identity.RoleUser}
	s.tokenDesk = lifecycle.Actor{UserID: id.NewUserID(), Role: identity.RoleToken}
	s.photoDesk = lifecycle.Actor{UserID: id.NewUserID(), Role: identity.RolePhoto}
	s.verifier = lifecycle.Actor{UserID: id.NewUserID(), Role: identity.RoleVerification}
	s.processor = lifecycle.Actor{UserID: id.NewUserID(), Role: identity.RoleProcessing}
	s.approver = lifecycle.Actor{UserID: id.NewUserID(), Role: identity.RoleApproval}
}

func (s *ServiceSuite) ctx() context.Context {
	ctx := requestcontext.WithClientMetadata(context.Background(), "203.0.113.9", "test-agent")
	return requestcontext.WithRequestID(ctx, "req-1")
}

func (s *ServiceSuite) submitInput() SubmitInput {
	return SubmitInput{
		FullName:    "Asha Rao",
		DateOfBirth: time.Date(1994, 3, 12, 0, 0, 0, 0, time.UTC),
		Gender:      "female",
		Email:       "asha@example.com",
		Phone:       "9876543210",
		Address:     "12 MG Road",
		City:        "Bengaluru",
		State:       "Karnataka",
		Pincode:     "560001",
	}
}

func (s *ServiceSuite) submit() *lifecycle.Application {
	app, err := s.svc.Submit(s.ctx(), s.applicant, s.submitInput())
	s.Require().NoError(err)
	return app
}

// advanceTo drives an application forward through the pipeline up to and
// including the named stage.
func (s *ServiceSuite) advanceTo(appID id.ApplicationID, stage lifecycle.Stage) {
	ctx := s.ctx()
	if stage.Rank() >= lifecycle.StageToken.Rank() {
		_, err := s.svc.IssueToken(ctx, s.tokenDesk, appID)
		s.Require().NoError(err)
	}
	if stage.Rank() >= lifecycle.StagePhotoValidation.Rank() {
		_, err := s.svc.UploadPhotoSign(ctx, s.applicant, appID, "uploads/photo.jpg", "uploads/sign.png")
		s.Require().NoError(err)
	}
	if stage.Rank() >= lifecycle.StageDocumentVerification.Rank() {
		_, err := s.svc.ValidatePhotoSign(ctx, s.photoDesk, appID, ValidatePhotoSignInput{
			PhotoApproved: true, SignatureApproved: true,
		})
		s.Require().NoError(err)
	}
	if stage.Rank() >= lifecycle.StagePoliceVerification.Rank() {
		_, err := s.svc.UpdateVerification(ctx, s.verifier, appID, UpdateVerificationInput{
			AadhaarVerified: true, PANVerified: true, Status: "completed",
		})
		s.Require().NoError(err)
	}
	if stage.Rank() >= lifecycle.StageFinalApproval.Rank() {
		_, err := s.svc.UpdateProcessing(ctx, s.processor, appID, UpdateProcessingInput{
			PoliceStatus: "clear",
			Reference1:   lifecycle.Reference{Name: "R1", Aadhaar: "1111", Verified: true},
			Reference2:   lifecycle.Reference{Name: "R2", Aadhaar: "2222", Verified: true},
		})
		s.Require().NoError(err)
	}
}

func (s *ServiceSuite) TestFullPipeline() {
	app := s.submit()
	s.Equal(lifecycle.StageApplication, app.CurrentStage)
	s.Equal(lifecycle.StatusSubmitted, app.Status)

	s.advanceTo(app.ID, lifecycle.StageFinalApproval)

	got, err := s.svc.GetApplication(s.ctx(), s.applicant, app.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StageFinalApproval, got.CurrentStage)
	s.Equal(lifecycle.StatusInProgress, got.Status)

	entry, err := s.svc.ProcessApproval(s.ctx(), s.approver, app.ID, lifecycle.DecisionApproved, "all clear")
	s.Require().NoError(err)
	s.Regexp(regexp.MustCompile(`^Z\d{8}$`), entry.PassportNumber)
	s.Equal(entry.IssueDate.AddDate(10, 0, 0), entry.ExpiryDate)

	got, err = s.svc.GetApplication(s.ctx(), s.applicant, app.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StatusApproved, got.Status)
	s.Equal(lifecycle.StageCompleted, got.CurrentStage)
	s.Require().NotNil(got.ApprovedAt)
}

func (s *ServiceSuite) TestSubmitValidation() {
	in := s.submitInput()
	in.FullName = ""
	_, err := s.svc.Submit(s.ctx(), s.applicant, in)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestRoleGates() {
	app := s.submit()

	_, err := s.svc.IssueToken(s.ctx(), s.applicant, app.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.svc.ProcessApproval(s.ctx(), s.verifier, app.ID, lifecycle.DecisionApproved, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	admin := lifecycle.Actor{UserID: id.NewUserID(), Role: identity.RoleAdmin}
	_, err = s.svc.IssueToken(s.ctx(), admin, app.ID)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestUploadOwnerScoping() {
	app := s.submit()
	s.advanceTo(app.ID, lifecycle.StageToken)

	stranger := lifecycle.Actor{UserID: id.NewUserID(), Role: identity.RoleUser}
	_, err := s.svc.UploadPhotoSign(s.ctx(), stranger, app.ID, "uploads/photo.jpg", "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestTokenReissueCancelsPrior() {
	app := s.submit()

	first, err := s.svc.IssueToken(s.ctx(), s.tokenDesk, app.ID)
	s.Require().NoError(err)
	second, err := s.svc.IssueToken(s.ctx(), s.tokenDesk, app.ID)
	s.Require().NoError(err)
	s.NotEqual(first.Number, second.Number)

	active, err := s.tokens.GetActiveByApplication(s.ctx(), app.ID)
	s.Require().NoError(err)
	s.Equal(second.ID, active.ID)

	all, err := s.svc.ListTokens(s.ctx(), s.tokenDesk)
	s.Require().NoError(err)
	s.Len(all, 2)
	for _, tok := range all {
		if tok.ID == first.ID {
			s.Equal(lifecycle.TokenCancelled, tok.Status)
		}
	}
}

func (s *ServiceSuite) TestTokenStagePassedConflict() {
	app := s.submit()
	s.advanceTo(app.ID, lifecycle.StagePhotoValidation)

	_, err := s.svc.IssueToken(s.ctx(), s.tokenDesk, app.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestPartialApprovalDoesNotAdvance() {
	app := s.submit()
	s.advanceTo(app.ID, lifecycle.StagePhotoValidation)

	_, err := s.svc.ValidatePhotoSign(s.ctx(), s.photoDesk, app.ID, ValidatePhotoSignInput{
		PhotoApproved: true, SignatureApproved: false, SignatureRemarks: "blurred",
	})
	s.Require().NoError(err)

	got, err := s.svc.GetApplication(s.ctx(), s.photoDesk, app.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StagePhotoValidation, got.CurrentStage)
}

func (s *ServiceSuite) TestRevalidateAfterAdvanceKeepsStage() {
	app := s.submit()
	s.advanceTo(app.ID, lifecycle.StagePoliceVerification)

	// The photo desk re-saving its verdict must not pull the application
	// back to an earlier stage.
	_, err := s.svc.ValidatePhotoSign(s.ctx(), s.photoDesk, app.ID, ValidatePhotoSignInput{
		PhotoApproved: true, SignatureApproved: true,
	})
	s.Require().NoError(err)

	got, err := s.svc.GetApplication(s.ctx(), s.photoDesk, app.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StagePoliceVerification, got.CurrentStage)
}

func (s *ServiceSuite) TestUploadBeforeTokenAdvances() {
	// Applicants may hand in photo and signature before visiting the token
	// desk; the upload still moves the application to photo validation.
	app := s.submit()
	rec, err := s.svc.UploadPhotoSign(s.ctx(), s.applicant, app.ID, "uploads/photo.jpg", "")
	s.Require().NoError(err)
	s.Equal("uploads/photo.jpg", rec.PhotoPath)

	got, err := s.svc.GetApplication(s.ctx(), s.applicant, app.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StagePhotoValidation, got.CurrentStage)
}

func (s *ServiceSuite) TestApprovalPreconditionLeavesApplicationUntouched() {
	app := s.submit()
	s.advanceTo(app.ID, lifecycle.StageDocumentVerification)

	before, err := s.svc.GetApplication(s.ctx(), s.approver, app.ID)
	s.Require().NoError(err)

	_, err = s.svc.ProcessApproval(s.ctx(), s.approver, app.ID, lifecycle.DecisionApproved, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	after, err := s.svc.GetApplication(s.ctx(), s.approver, app.ID)
	s.Require().NoError(err)
	s.Equal(before.Status, after.Status)
	s.Equal(before.CurrentStage, after.CurrentStage)
	s.Equal(before.UpdatedAt, after.UpdatedAt)
}

func (s *ServiceSuite) TestTerminalApplicationRejectsTransitions() {
	app := s.submit()
	s.advanceTo(app.ID, lifecycle.StageFinalApproval)
	_, err := s.svc.ProcessApproval(s.ctx(), s.approver, app.ID, lifecycle.DecisionRejected, "incomplete papers")
	s.Require().NoError(err)

	_, err = s.svc.UpdateProcessing(s.ctx(), s.processor, app.ID, UpdateProcessingInput{PoliceStatus: "clear"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestOnHoldDecision() {
	app := s.submit()
	s.advanceTo(app.ID, lifecycle.StageFinalApproval)

	entry, err := s.svc.ProcessApproval(s.ctx(), s.approver, app.ID, lifecycle.DecisionOnHold, "address proof pending")
	s.Require().NoError(err)
	s.Empty(entry.PassportNumber)

	got, err := s.svc.GetApplication(s.ctx(), s.approver, app.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StatusOnHold, got.Status)
	s.Equal(lifecycle.StageFinalApproval, got.CurrentStage)
	s.Nil(got.ApprovedAt)
}

func (s *ServiceSuite) TestBulkApproveMixedBatch() {
	eligible := s.submit()
	s.advanceTo(eligible.ID, lifecycle.StageFinalApproval)

	done := s.submit()
	s.advanceTo(done.ID, lifecycle.StageFinalApproval)
	_, err := s.svc.ProcessApproval(s.ctx(), s.approver, done.ID, lifecycle.DecisionApproved, "")
	s.Require().NoError(err)

	results := s.svc.BulkApprove(s.ctx(), s.approver,
		[]id.ApplicationID{eligible.ID, done.ID, id.NewApplicationID()},
		lifecycle.DecisionApproved, "bulk clearance")
	s.Require().Len(results, 3)
	s.True(results[0].OK)
	s.False(results[1].OK)
	s.False(results[2].OK)

	got, err := s.svc.GetApplication(s.ctx(), s.approver, eligible.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StatusApproved, got.Status)
}

func (s *ServiceSuite) TestEachTransitionWritesOneAuditEntry() {
	app := s.submit()
	s.advanceTo(app.ID, lifecycle.StageFinalApproval)
	_, err := s.svc.ProcessApproval(s.ctx(), s.approver, app.ID, lifecycle.DecisionApproved, "")
	s.Require().NoError(err)

	entries := s.auditor.All()
	s.Require().Len(entries, 7)

	counts := make(map[audit.Action]int)
	for _, e := range entries {
		counts[e.Action]++
		s.Equal("203.0.113.9", e.Origin.IP)
		s.Equal("req-1", e.RequestID)
	}
	s.Equal(1, counts[audit.ActionApplicationSubmitted])
	s.Equal(1, counts[audit.ActionTokenIssued])
	s.Equal(1, counts[audit.ActionPhotoSignUploaded])
	s.Equal(1, counts[audit.ActionPhotoSignValidated])
	s.Equal(1, counts[audit.ActionVerificationStarted])
	s.Equal(1, counts[audit.ActionProcessingStarted])
	s.Equal(1, counts[audit.ActionApprovalDecided])
}

func (s *ServiceSuite) TestApprovalAuditMatchesPersistedState() {
	app := s.submit()
	s.advanceTo(app.ID, lifecycle.StageFinalApproval)
	_, err := s.svc.ProcessApproval(s.ctx(), s.approver, app.ID, lifecycle.DecisionApproved, "")
	s.Require().NoError(err)

	got, err := s.svc.GetApplication(s.ctx(), s.approver, app.ID)
	s.Require().NoError(err)

	var decided *audit.Entry
	for _, e := range s.auditor.All() {
		if e.Action == audit.ActionApprovalDecided {
			decided = e
		}
	}
	s.Require().NotNil(decided)
	s.Equal(string(got.Status), decided.After["status"])
	s.Equal(string(got.CurrentStage), decided.After["current_stage"])
	s.Equal(string(lifecycle.StatusInProgress), decided.Before["status"])
}

func (s *ServiceSuite) TestVerifyDocumentMergesSingleFlag() {
	app := s.submit()
	s.advanceTo(app.ID, lifecycle.StageDocumentVerification)

	_, err := s.svc.VerifyDocument(s.ctx(), s.verifier, app.ID, "aadhaar", true, "")
	s.Require().NoError(err)
	rec, err := s.svc.VerifyDocument(s.ctx(), s.verifier, app.ID, "pan", true, "matched against NSDL")
	s.Require().NoError(err)

	// The second check must not clobber the first.
	s.True(rec.AadhaarVerified)
	s.True(rec.PANVerified)
	s.False(rec.DLVerified)
	s.Equal("matched against NSDL", rec.Remarks)

	// Per-document checks never advance the stage; only the overall
	// verdict does.
	got, err := s.svc.GetApplication(s.ctx(), s.verifier, app.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StageDocumentVerification, got.CurrentStage)

	_, err = s.svc.VerifyDocument(s.ctx(), s.verifier, app.ID, "passport", true, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestVerifyReferenceAdvancesWhenBothLand() {
	app := s.submit()
	s.advanceTo(app.ID, lifecycle.StagePoliceVerification)

	_, err := s.svc.UpdateProcessing(s.ctx(), s.processor, app.ID, UpdateProcessingInput{
		PoliceStatus: "clear",
		Reference1:   lifecycle.Reference{Name: "R1", Aadhaar: "1111"},
		Reference2:   lifecycle.Reference{Name: "R2", Aadhaar: "2222"},
	})
	s.Require().NoError(err)

	rec, err := s.svc.VerifyProcessingReference(s.ctx(), s.processor, app.ID, 1, true)
	s.Require().NoError(err)
	s.True(rec.Reference1.Verified)
	s.False(rec.Reference2.Verified)

	got, err := s.svc.GetApplication(s.ctx(), s.processor, app.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StagePoliceVerification, got.CurrentStage)

	_, err = s.svc.VerifyProcessingReference(s.ctx(), s.processor, app.ID, 2, true)
	s.Require().NoError(err)

	got, err = s.svc.GetApplication(s.ctx(), s.processor, app.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StageFinalApproval, got.CurrentStage)

	_, err = s.svc.VerifyProcessingReference(s.ctx(), s.processor, app.ID, 3, true)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestConcurrentReferenceChecksCompose() {
	app := s.submit()
	s.advanceTo(app.ID, lifecycle.StagePoliceVerification)

	_, err := s.svc.UpdateProcessing(s.ctx(), s.processor, app.ID, UpdateProcessingInput{
		PoliceStatus: "clear",
		Reference1:   lifecycle.Reference{Name: "R1", Aadhaar: "1111"},
		Reference2:   lifecycle.Reference{Name: "R2", Aadhaar: "2222"},
	})
	s.Require().NoError(err)

	// Two officers close out different references at the same time. The
	// transactional read-modify-write must keep both flags.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.svc.VerifyProcessingReference(s.ctx(), s.processor, app.ID, i+1, true)
		}()
	}
	wg.Wait()
	s.Require().NoError(errs[0])
	s.Require().NoError(errs[1])

	rec, err := s.svc.GetProcessing(s.ctx(), s.processor, app.ID)
	s.Require().NoError(err)
	s.True(rec.Reference1.Verified)
	s.True(rec.Reference2.Verified)

	got, err := s.svc.GetApplication(s.ctx(), s.processor, app.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StageFinalApproval, got.CurrentStage)
}

func (s *ServiceSuite) TestUpdateApplicationStatus() {
	app := s.submit()
	s.advanceTo(app.ID, lifecycle.StageDocumentVerification)

	_, err := s.svc.UpdateApplicationStatus(s.ctx(), s.applicant, app.ID, UpdateStatusInput{Status: "on_hold"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	got, err := s.svc.UpdateApplicationStatus(s.ctx(), s.verifier, app.ID, UpdateStatusInput{
		Status:  "on_hold",
		Remarks: "address proof missing",
	})
	s.Require().NoError(err)
	s.Equal(lifecycle.StatusOnHold, got.Status)
	s.Equal("address proof missing", got.Remarks)

	// An earlier stage in the input never pulls the application back.
	got, err = s.svc.UpdateApplicationStatus(s.ctx(), s.verifier, app.ID, UpdateStatusInput{
		Status: "in_progress",
		Stage:  "token",
	})
	s.Require().NoError(err)
	s.Equal(lifecycle.StageDocumentVerification, got.CurrentStage)

	_, err = s.svc.UpdateApplicationStatus(s.ctx(), s.verifier, app.ID, UpdateStatusInput{Status: "lost"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestQueueReadsGatedByDeskRole() {
	app := s.submit()
	s.advanceTo(app.ID, lifecycle.StageToken)

	_, err := s.svc.ListTokens(s.ctx(), s.applicant)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	_, err = s.svc.ListPendingPhotoSigns(s.ctx(), s.applicant)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	_, err = s.svc.ListPendingVerifications(s.ctx(), s.applicant)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	_, err = s.svc.ListPendingProcessings(s.ctx(), s.applicant)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	_, err = s.svc.ListApprovals(s.ctx(), s.applicant)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	// Each desk sees its own queue, and only its own.
	_, err = s.svc.ListTokens(s.ctx(), s.tokenDesk)
	s.Require().NoError(err)
	_, err = s.svc.ListPendingVerifications(s.ctx(), s.tokenDesk)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	admin := lifecycle.Actor{UserID: id.NewUserID(), Role: identity.RoleAdmin}
	_, err = s.svc.ListTokens(s.ctx(), admin)
	s.Require().NoError(err)
	_, err = s.svc.ListApprovals(s.ctx(), admin)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestListScopedToOwner() {
	mine := s.submit()

	other := lifecycle.Actor{UserID: id.NewUserID(), Role: identity.RoleUser}
	_, err := s.svc.Submit(s.ctx(), other, s.submitInput())
	s.Require().NoError(err)

	apps, err := s.svc.ListApplications(s.ctx(), s.applicant, applicationstore.Filter{})
	s.Require().NoError(err)
	s.Require().Len(apps, 1)
	s.Equal(mine.ID, apps[0].ID)

	all, err := s.svc.ListApplications(s.ctx(), s.verifier, applicationstore.Filter{})
	s.Require().NoError(err)
	s.Len(all, 2)
}
