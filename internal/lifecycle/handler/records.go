package handler

import (
	"net/http"
	"time"

	"passtrack/internal/lifecycle"
	"passtrack/internal/lifecycle/service"
	id "passtrack/pkg/domain"
	dErrors "passtrack/pkg/domain-errors"
	"passtrack/pkg/platform/httputil"
	request "passtrack/pkg/platform/middleware/request"
)

type tokenResponse struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	Number        string    `json:"token_number"`
	Status        string    `json:"status"`
	AssignedBy    string    `json:"assigned_by"`
	ValidUntil    time.Time `json:"valid_until"`
	CreatedAt     time.Time `json:"created_at"`
}

func toTokenResponse(t *lifecycle.Token) tokenResponse {
	return tokenResponse{
		ID:            t.ID.String(),
		ApplicationID: t.ApplicationID.String(),
		Number:        t.Number,
		Status:        string(t.Status),
		AssignedBy:    t.AssignedBy.String(),
		ValidUntil:    t.ValidUntil,
		CreatedAt:     t.CreatedAt,
	}
}

type issueTokenRequest struct {
	ApplicationID string `json:"application_id"`
}

func (req *issueTokenRequest) Validate() error {
	if req.ApplicationID == "" {
		return dErrors.New(dErrors.CodeValidation, "application_id is required")
	}
	return nil
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[*issueTokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	appID, err := id.ParseApplicationID(req.ApplicationID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid application id"))
		return
	}

	tok, err := h.svc.IssueToken(ctx, actor, appID)
	if err != nil {
		h.logger.WarnContext(ctx, "token issuance failed",
			"application_id", req.ApplicationID,
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "token issued",
		"token":   toTokenResponse(tok),
	})
}

func (h *Handler) listTokens(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	tokens, err := h.svc.ListTokens(ctx, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]tokenResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, toTokenResponse(t))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"tokens": out, "count": len(out)})
}

func (h *Handler) getToken(w http.ResponseWriter, r *http.Request) {
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
	tok, err := h.svc.GetToken(ctx, actor, appID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTokenResponse(tok))
}

type photoSignResponse struct {
	ID                string     `json:"id"`
	ApplicationID     string     `json:"application_id"`
	PhotoPath         string     `json:"photo_path,omitempty"`
	SignaturePath     string     `json:"signature_path,omitempty"`
	PhotoApproved     bool       `json:"photo_approved"`
	SignatureApproved bool       `json:"signature_approved"`
	PhotoRemarks      string     `json:"photo_remarks,omitempty"`
	SignatureRemarks  string     `json:"signature_remarks,omitempty"`
	ValidatedBy       string     `json:"validated_by,omitempty"`
	ValidatedAt       *time.Time `json:"validated_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toPhotoSignResponse(rec *lifecycle.PhotoSign) photoSignResponse {
	resp := photoSignResponse{
		ID:                rec.ID.String(),
		ApplicationID:     rec.ApplicationID.String(),
		PhotoPath:         rec.PhotoPath,
		SignaturePath:     rec.SignaturePath,
		PhotoApproved:     rec.PhotoApproved,
		SignatureApproved: rec.SignatureApproved,
		PhotoRemarks:      rec.PhotoRemarks,
		SignatureRemarks:  rec.SignatureRemarks,
		ValidatedAt:       rec.ValidatedAt,
		CreatedAt:         rec.CreatedAt,
	}
	if !rec.ValidatedBy.IsNil() {
		resp.ValidatedBy = rec.ValidatedBy.String()
	}
	return resp
}

type uploadPhotoSignRequest struct {
	ApplicationID string `json:"application_id"`
	PhotoPath     string `json:"photo_path"`
	SignaturePath string `json:"signature_path"`
}

func (req *uploadPhotoSignRequest) Validate() error {
	if req.ApplicationID == "" {
		return dErrors.New(dErrors.CodeValidation, "application_id is required")
	}
	if req.PhotoPath == "" && req.SignaturePath == "" {
		return dErrors.New(dErrors.CodeValidation, "photo_path or signature_path is required")
	}
	return nil
}

func (h *Handler) uploadPhotoSign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[*uploadPhotoSignRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	appID, err := id.ParseApplicationID(req.ApplicationID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid application id"))
		return
	}

	rec, err := h.svc.UploadPhotoSign(ctx, actor, appID, req.PhotoPath, req.SignaturePath)
	if err != nil {
		h.logger.WarnContext(ctx, "photo/sign upload failed",
			"application_id", req.ApplicationID,
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"message":    "files recorded",
		"photo_sign": toPhotoSignResponse(rec),
	})
}

func (h *Handler) listPendingPhotoSigns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	recs, err := h.svc.ListPendingPhotoSigns(ctx, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]photoSignResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toPhotoSignResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"pending": out, "count": len(out)})
}

func (h *Handler) getPhotoSign(w http.ResponseWriter, r *http.Request) {
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
	rec, err := h.svc.GetPhotoSign(ctx, actor, appID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPhotoSignResponse(rec))
}

type validatePhotoSignRequest struct {
	PhotoApproved     bool   `json:"photo_approved"`
	SignatureApproved bool   `json:"signature_approved"`
	PhotoRemarks      string `json:"photo_remarks"`
	SignatureRemarks  string `json:"signature_remarks"`
}

func (req *validatePhotoSignRequest) Validate() error { return nil }

func (h *Handler) validatePhotoSign(w http.ResponseWriter, r *http.Request) {
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
	req, ok := httputil.DecodeAndPrepare[*validatePhotoSignRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.svc.ValidatePhotoSign(ctx, actor, appID, service.ValidatePhotoSignInput{
		PhotoApproved:     req.PhotoApproved,
		SignatureApproved: req.SignatureApproved,
		PhotoRemarks:      req.PhotoRemarks,
		SignatureRemarks:  req.SignatureRemarks,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "photo/sign validation failed",
			"application_id", appID,
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message":    "validation recorded",
		"photo_sign": toPhotoSignResponse(rec),
	})
}
