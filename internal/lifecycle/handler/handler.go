// Package handler exposes the application lifecycle endpoints. Every route
// here requires an authenticated caller; role checks live in the lifecycle
// engine, not in the routing table.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"passtrack/internal/identity"
	"passtrack/internal/lifecycle"
	"passtrack/internal/lifecycle/service"
	applicationstore "passtrack/internal/lifecycle/store/application"
	id "passtrack/pkg/domain"
	dErrors "passtrack/pkg/domain-errors"
	"passtrack/pkg/platform/httputil"
	request "passtrack/pkg/platform/middleware/request"
	"passtrack/pkg/requestcontext"
)

const dateLayout = "2006-01-02"

type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the lifecycle endpoints on an authenticated router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/applications", h.submit)
	r.Get("/applications", h.listApplications)
	r.Get("/applications/{applicationID}", h.getApplication)
	r.Put("/applications/{applicationID}", h.updateApplicationStatus)
	r.Get("/applications/{applicationID}/token", h.getToken)
	r.Get("/applications/{applicationID}/photo-sign", h.getPhotoSign)
	r.Get("/applications/{applicationID}/verification", h.getVerification)
	r.Get("/applications/{applicationID}/processing", h.getProcessing)
	r.Get("/applications/{applicationID}/approval", h.getApproval)

	r.Post("/tokens", h.issueToken)
	r.Get("/tokens", h.listTokens)

	r.Post("/photo-sign/upload", h.uploadPhotoSign)
	r.Get("/photo-sign/pending", h.listPendingPhotoSigns)
	r.Put("/photo-sign/{applicationID}", h.validatePhotoSign)

	r.Get("/verification/pending", h.listPendingVerifications)
	r.Put("/verification/{applicationID}", h.updateVerification)
	r.Put("/verification/{applicationID}/document/{documentType}", h.verifyDocument)

	r.Get("/processing/pending", h.listPendingProcessings)
	r.Put("/processing/{applicationID}", h.updateProcessing)
	r.Put("/processing/{applicationID}/reference/{referenceNumber}", h.verifyReference)

	r.Get("/approval", h.listApprovals)
	r.Post("/approval/bulk", h.bulkApprove)
	r.Post("/approval/{applicationID}", h.processApproval)
}

// actorFromContext rebuilds the acting identity injected by the auth
// middleware.
func actorFromContext(ctx context.Context) (lifecycle.Actor, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return lifecycle.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "missing authenticated user")
	}
	role, err := identity.ParseRole(requestcontext.Role(ctx))
	if err != nil {
		return lifecycle.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "missing caller role")
	}
	return lifecycle.Actor{UserID: userID, Role: role}, nil
}

func applicationIDParam(r *http.Request) (id.ApplicationID, error) {
	raw := chi.URLParam(r, "applicationID")
	appID, err := id.ParseApplicationID(raw)
	if err != nil {
		return id.ApplicationID{}, dErrors.New(dErrors.CodeBadRequest, "invalid application id")
	}
	return appID, nil
}

type applicationResponse struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Type         string     `json:"applicant_type"`
	FullName     string     `json:"full_name"`
	DateOfBirth  string     `json:"date_of_birth"`
	Gender       string     `json:"gender,omitempty"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Address      string     `json:"address"`
	City         string     `json:"city,omitempty"`
	State        string     `json:"state,omitempty"`
	Pincode      string     `json:"pincode,omitempty"`
	Priority     string     `json:"priority"`
	Status       string     `json:"status"`
	CurrentStage string     `json:"current_stage"`
	Remarks      string     `json:"remarks,omitempty"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func toApplicationResponse(app *lifecycle.Application) applicationResponse {
	return applicationResponse{
		ID:           app.ID.String(),
		UserID:       app.UserID.String(),
		Type:         app.Applicant.Type,
		FullName:     app.Applicant.FullName,
		DateOfBirth:  app.Applicant.DateOfBirth.Format(dateLayout),
		Gender:       app.Applicant.Gender,
		Email:        app.Applicant.Email,
		Phone:        app.Applicant.Phone,
		Address:      app.Applicant.Address,
		City:         app.Applicant.City,
		State:        app.Applicant.State,
		Pincode:      app.Applicant.Pincode,
		Priority:     string(app.Priority),
		Status:       string(app.Status),
		CurrentStage: string(app.CurrentStage),
		Remarks:      app.Remarks,
		ApprovedAt:   app.ApprovedAt,
		CreatedAt:    app.CreatedAt,
		UpdatedAt:    app.UpdatedAt,
	}
}

func toApplicationResponses(apps []*lifecycle.Application) []applicationResponse {
	out := make([]applicationResponse, 0, len(apps))
	for _, app := range apps {
		out = append(out, toApplicationResponse(app))
	}
	return out
}

type submitRequest struct {
	Type        string `json:"applicant_type"`
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
	Priority    string `json:"priority"`
}

func (req *submitRequest) Validate() error {
	if req.FullName == "" || req.Email == "" || req.Phone == "" || req.Address == "" {
		return dErrors.New(dErrors.CodeValidation, "full_name, email, phone and address are required")
	}
	if _, err := time.Parse(dateLayout, req.DateOfBirth); err != nil {
		return dErrors.New(dErrors.CodeValidation, "date_of_birth must be YYYY-MM-DD")
	}
	return nil
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[*submitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	dob, _ := time.Parse(dateLayout, req.DateOfBirth)

	app, err := h.svc.Submit(ctx, actor, service.SubmitInput{
		Type:        req.Type,
		FullName:    req.FullName,
		DateOfBirth: dob,
		Gender:      req.Gender,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		Pincode:     req.Pincode,
		Priority:    req.Priority,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "application submission failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"message":     "application submitted",
		"application": toApplicationResponse(app),
	})
}

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	filter := applicationstore.Filter{}
	q := r.URL.Query()
	if raw := q.Get("status"); raw != "" {
		status, err := lifecycle.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Status = status
	}
	if raw := q.Get("stage"); raw != "" {
		stage, err := lifecycle.ParseStage(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Stage = stage
	}
	if raw := q.Get("limit"); raw != "" {
		filter.Limit, _ = strconv.Atoi(raw)
	}
	if raw := q.Get("offset"); raw != "" {
		filter.Offset, _ = strconv.Atoi(raw)
	}

	apps, err := h.svc.ListApplications(ctx, actor, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"applications": toApplicationResponses(apps),
		"count":        len(apps),
	})
}

func (h *Handler) getApplication(w http.ResponseWriter, r *http.Request) {
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

	app, err := h.svc.GetApplication(ctx, actor, appID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

type updateStatusRequest struct {
	Status  string `json:"status"`
	Stage   string `json:"current_stage"`
	Remarks string `json:"remarks"`
}

func (req *updateStatusRequest) Validate() error {
	if req.Status == "" {
		return dErrors.New(dErrors.CodeValidation, "status is required")
	}
	return nil
}

func (h *Handler) updateApplicationStatus(w http.ResponseWriter, r *http.Request) {
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
	req, ok := httputil.DecodeAndPrepare[*updateStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	app, err := h.svc.UpdateApplicationStatus(ctx, actor, appID, service.UpdateStatusInput{
		Status:  req.Status,
		Stage:   req.Stage,
		Remarks: req.Remarks,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "application status update failed",
			"application_id", appID,
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message":     "application updated",
		"application": toApplicationResponse(app),
	})
}
