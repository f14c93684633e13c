// Package handler exposes the admin-only endpoints. The router mounts it
// behind the admin role gate; these handlers assume the caller was already
// authorized.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"passtrack/internal/admin/service"
	"passtrack/internal/identity"
	userstore "passtrack/internal/identity/store/user"
	id "passtrack/pkg/domain"
	dErrors "passtrack/pkg/domain-errors"
	"passtrack/pkg/platform/audit"
	"passtrack/pkg/platform/httputil"
	request "passtrack/pkg/platform/middleware/request"
	"passtrack/pkg/requestcontext"
)

type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the admin endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/admin/users", h.listUsers)
	r.Post("/admin/users", h.createUser)
	r.Get("/admin/users/{userID}", h.getUser)
	r.Put("/admin/users/{userID}", h.updateUser)
	r.Delete("/admin/users/{userID}", h.deleteUser)
	r.Get("/admin/statistics", h.statistics)
	r.Get("/admin/audit-logs", h.auditLogs)
}

func userIDParam(r *http.Request) (id.UserID, error) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		return id.UserID{}, dErrors.New(dErrors.CodeBadRequest, "invalid user id")
	}
	return userID, nil
}

type userResponse struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	Phone     string     `json:"phone,omitempty"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toUserResponse(u *identity.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		Role:      u.Role.String(),
		Status:    u.Status.String(),
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	filter := userstore.Filter{}
	q := r.URL.Query()
	if raw := q.Get("role"); raw != "" {
		role, err := identity.ParseRole(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Role = role
	}
	if raw := q.Get("status"); raw != "" {
		status, err := identity.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Status = status
	}

	users, err := h.svc.ListUsers(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"users": out, "count": len(out)})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	u, err := h.svc.GetUser(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

func (req *createUserRequest) Validate() error {
	if req.Username == "" || req.Email == "" || req.Password == "" || req.FullName == "" || req.Role == "" {
		return dErrors.New(dErrors.CodeValidation, "username, email, password, full_name and role are required")
	}
	return nil
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*createUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	u, err := h.svc.CreateUser(ctx, requestcontext.UserID(ctx), service.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     req.Role,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "admin user creation failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "user created",
		"user":    toUserResponse(u),
	})
}

type updateUserRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

func (req *updateUserRequest) Validate() error { return nil }

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	userID, err := userIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[*updateUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	u, err := h.svc.UpdateUser(ctx, requestcontext.UserID(ctx), userID, service.UpdateUserInput{
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     req.Role,
		Status:   req.Status,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "admin user update failed",
			"user_id", userID,
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "user updated",
		"user":    toUserResponse(u),
	})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	userID, err := userIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.svc.DeleteUser(ctx, requestcontext.UserID(ctx), userID); err != nil {
		h.logger.WarnContext(ctx, "admin user deletion failed",
			"user_id", userID,
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"message": "user deleted"})
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Statistics(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) auditLogs(w http.ResponseWriter, r *http.Request) {
	filter := audit.Filter{}
	q := r.URL.Query()
	if raw := q.Get("actor_id"); raw != "" {
		actorID, err := id.ParseUserID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid actor id"))
			return
		}
		filter.ActorID = actorID
	}
	if raw := q.Get("action"); raw != "" {
		filter.Action = audit.Action(raw)
	}
	if raw := q.Get("entity"); raw != "" {
		filter.Entity = raw
	}
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "from must be RFC3339"))
			return
		}
		filter.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "to must be RFC3339"))
			return
		}
		filter.To = to
	}
	if raw := q.Get("limit"); raw != "" {
		filter.Limit, _ = strconv.Atoi(raw)
	}
	if raw := q.Get("offset"); raw != "" {
		filter.Offset, _ = strconv.Atoi(raw)
	}

	entries, err := h.svc.AuditLogs(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}
