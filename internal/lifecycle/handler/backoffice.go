package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"passtrack/internal/lifecycle"
	"passtrack/internal/lifecycle/service"
	id "passtrack/pkg/domain"
	dErrors "passtrack/pkg/domain-errors"
	"passtrack/pkg/platform/httputil"
	request "passtrack/pkg/platform/middleware/request"
)

type verificationResponse struct {
	ID              string     `json:"id"`
	ApplicationID   string     `json:"application_id"`
	AadhaarVerified bool       `json:"aadhaar_verified"`
	PANVerified     bool       `json:"pan_verified"`
	DLVerified      bool       `json:"dl_verified"`
	VoterIDVerified bool       `json:"voter_id_verified"`
	CCTNSVerified   bool       `json:"cctns_verified"`
	Status          string     `json:"verification_status"`
	Remarks         string     `json:"remarks,omitempty"`
	VerifiedBy      string     `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toVerificationResponse(rec *lifecycle.Verification) verificationResponse {
	resp := verificationResponse{
		ID:              rec.ID.String(),
		ApplicationID:   rec.ApplicationID.String(),
		AadhaarVerified: rec.AadhaarVerified,
		PANVerified:     rec.PANVerified,
		DLVerified:      rec.DLVerified,
		VoterIDVerified: rec.VoterIDVerified,
		CCTNSVerified:   rec.CCTNSVerified,
		Status:          string(rec.Status),
		Remarks:         rec.Remarks,
		VerifiedAt:      rec.VerifiedAt,
		CreatedAt:       rec.CreatedAt,
	}
	if !rec.VerifiedBy.IsNil() {
		resp.VerifiedBy = rec.VerifiedBy.String()
	}
	return resp
}

type updateVerificationRequest struct {
	AadhaarVerified bool   `json:"aadhaar_verified"`
	PANVerified     bool   `json:"pan_verified"`
	DLVerified      bool   `json:"dl_verified"`
	VoterIDVerified bool   `json:"voter_id_verified"`
	CCTNSVerified   bool   `json:"cctns_verified"`
	Status          string `json:"verification_status"`
	Remarks         string `json:"remarks"`
}

func (req *updateVerificationRequest) Validate() error {
	if req.Status == "" {
		return dErrors.New(dErrors.CodeValidation, "verification_status is required")
	}
	return nil
}

func (h *Handler) updateVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	appID, err := applicationIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[*updateVerificationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.svc.UpdateVerification(ctx, actor, appID, service.UpdateVerificationInput{
		AadhaarVerified: req.AadhaarVerified,
		PANVerified:     req.PANVerified,
		DLVerified:      req.DLVerified,
		VoterIDVerified: req.VoterIDVerified,
		CCTNSVerified:   req.CCTNSVerified,
		Status:          req.Status,
		Remarks:         req.Remarks,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "verification update failed",
			"application_id", appID,
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message":      "verification recorded",
		"verification": toVerificationResponse(rec),
	})
}

type verifyDocumentRequest struct {
	Verified bool   `json:"verified"`
	Remarks  string `json:"remarks"`
}

func (req *verifyDocumentRequest) Validate() error { return nil }

func (h *Handler) verifyDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	appID, err := applicationIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	docType := chi.URLParam(r, "documentType")
	req, ok := httputil.DecodeAndPrepare[*verifyDocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.svc.VerifyDocument(ctx, actor, appID, docType, req.Verified, req.Remarks)
	if err != nil {
		h.logger.WarnContext(ctx, "document verification failed",
			"application_id", appID,
			"document_type", docType,
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message":      "document check recorded",
		"verification": toVerificationResponse(rec),
	})
}

func (h *Handler) listPendingVerifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	recs, err := h.svc.ListPendingVerifications(ctx, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]verificationResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toVerificationResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"pending": out, "count": len(out)})
}

func (h *Handler) getVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	appID, err := applicationIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.svc.GetVerification(ctx, actor, appID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toVerificationResponse(rec))
}

type referencePayload struct {
	Name     string `json:"name"`
	Aadhaar  string `json:"aadhaar"`
	Verified bool   `json:"verified"`
}

type processingResponse struct {
	ID            string           `json:"id"`
	ApplicationID string           `json:"application_id"`
	PoliceStatus  string           `json:"police_verification_status"`
	PoliceStation string           `json:"police_station,omitempty"`
	PoliceRemarks string           `json:"police_remarks,omitempty"`
	Reference1    referencePayload `json:"reference1"`
	Reference2    referencePayload `json:"reference2"`
	ProcessedBy   string           `json:"processed_by,omitempty"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

func toProcessingResponse(rec *lifecycle.Processing) processingResponse {
	resp := processingResponse{
		ID:            rec.ID.String(),
		ApplicationID: rec.ApplicationID.String(),
		PoliceStatus:  string(rec.PoliceStatus),
		PoliceStation: rec.PoliceStation,
		PoliceRemarks: rec.PoliceRemarks,
		Reference1:    referencePayload(rec.Reference1),
		Reference2:    referencePayload(rec.Reference2),
		ProcessedAt:   rec.ProcessedAt,
		CreatedAt:     rec.CreatedAt,
	}
	if !rec.ProcessedBy.IsNil() {
		resp.ProcessedBy = rec.ProcessedBy.String()
	}
	return resp
}

type updateProcessingRequest struct {
	PoliceStatus  string           `json:"police_verification_status"`
	PoliceStation string           `json:"police_station"`
	PoliceRemarks string           `json:"police_remarks"`
	Reference1    referencePayload `json:"reference1"`
	Reference2    referencePayload `json:"reference2"`
}

func (req *updateProcessingRequest) Validate() error {
	if req.PoliceStatus == "" {
		return dErrors.New(dErrors.CodeValidation, "police_verification_status is required")
	}
	return nil
}

func (h *Handler) updateProcessing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	appID, err := applicationIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[*updateProcessingRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.svc.UpdateProcessing(ctx, actor, appID, service.UpdateProcessingInput{
		PoliceStatus:  req.PoliceStatus,
		PoliceStation: req.PoliceStation,
		PoliceRemarks: req.PoliceRemarks,
		Reference1:    lifecycle.Reference(req.Reference1),
		Reference2:    lifecycle.Reference(req.Reference2),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "processing update failed",
			"application_id", appID,
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message":    "processing recorded",
		"processing": toProcessingResponse(rec),
	})
}

type verifyReferenceRequest struct {
	Verified bool `json:"verified"`
}

func (req *verifyReferenceRequest) Validate() error { return nil }

func (h *Handler) verifyReference(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	appID, err := applicationIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	refNumber, err := strconv.Atoi(chi.URLParam(r, "referenceNumber"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid reference number"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[*verifyReferenceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.svc.VerifyProcessingReference(ctx, actor, appID, refNumber, req.Verified)
	if err != nil {
		h.logger.WarnContext(ctx, "reference verification failed",
			"application_id", appID,
			"reference_number", refNumber,
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message":    "reference check recorded",
		"processing": toProcessingResponse(rec),
	})
}

func (h *Handler) listPendingProcessings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	recs, err := h.svc.ListPendingProcessings(ctx, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]processingResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toProcessingResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"pending": out, "count": len(out)})
}

func (h *Handler) getProcessing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	appID, err := applicationIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.svc.GetProcessing(ctx, actor, appID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProcessingResponse(rec))
}

type approvalResponse struct {
	ID             string    `json:"id"`
	ApplicationID  string    `json:"application_id"`
	Decision       string    `json:"decision"`
	ApprovedBy     string    `json:"approved_by"`
	Comments       string    `json:"comments,omitempty"`
	PassportNumber string    `json:"passport_number,omitempty"`
	IssueDate      string    `json:"issue_date,omitempty"`
	ExpiryDate     string    `json:"expiry_date,omitempty"`
	DecisionDate   time.Time `json:"decision_date"`
}

func toApprovalResponse(entry *lifecycle.Approval) approvalResponse {
	resp := approvalResponse{
		ID:             entry.ID.String(),
		ApplicationID:  entry.ApplicationID.String(),
		Decision:       string(entry.Decision),
		ApprovedBy:     entry.ApprovedBy.String(),
		Comments:       entry.Comments,
		PassportNumber: entry.PassportNumber,
		DecisionDate:   entry.DecisionDate,
	}
	if !entry.IssueDate.IsZero() {
		resp.IssueDate = entry.IssueDate.Format(dateLayout)
		resp.ExpiryDate = entry.ExpiryDate.Format(dateLayout)
	}
	return resp
}

type approvalRequest struct {
	Decision string `json:"decision"`
	Comments string `json:"comments"`
}

func (req *approvalRequest) Validate() error {
	if _, err := lifecycle.ParseDecision(req.Decision); err != nil {
		return err
	}
	return nil
}

func (h *Handler) processApproval(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	appID, err := applicationIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[*approvalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	entry, err := h.svc.ProcessApproval(ctx, actor, appID, lifecycle.Decision(req.Decision), req.Comments)
	if err != nil {
		h.logger.WarnContext(ctx, "approval decision failed",
			"application_id", appID,
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message":  "decision recorded",
		"approval": toApprovalResponse(entry),
	})
}

type bulkApprovalRequest struct {
	ApplicationIDs []string `json:"application_ids"`
	Decision       string   `json:"decision"`
	Comments       string   `json:"comments"`
}

func (req *bulkApprovalRequest) Validate() error {
	if len(req.ApplicationIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "application_ids is required")
	}
	if _, err := lifecycle.ParseDecision(req.Decision); err != nil {
		return err
	}
	return nil
}

func (h *Handler) bulkApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[*bulkApprovalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	appIDs := make([]id.ApplicationID, 0, len(req.ApplicationIDs))
	for _, raw := range req.ApplicationIDs {
		appID, err := id.ParseApplicationID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid application id: "+raw))
			return
		}
		appIDs = append(appIDs, appID)
	}

	results := h.svc.BulkApprove(ctx, actor, appIDs, lifecycle.Decision(req.Decision), req.Comments)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) listApprovals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.svc.ListApprovals(ctx, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]approvalResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toApprovalResponse(entry))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"approvals": out, "count": len(out)})
}

func (h *Handler) getApproval(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	appID, err := applicationIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entry, err := h.svc.GetApproval(ctx, actor, appID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApprovalResponse(entry))
}
