// Package handler exposes the authentication endpoints.
package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"passtrack/internal/identity"
	"passtrack/internal/identity/service"
	dErrors "passtrack/pkg/domain-errors"
	"passtrack/pkg/platform/httputil"
	request "passtrack/pkg/platform/middleware/request"
)

type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// PublicRoutes mounts register and login, which need no token.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/auth/register", h.register)
	r.Post("/auth/login", h.login)
}

// Routes mounts the endpoints that require an authenticated caller.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/logout", h.logout)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

func (req *registerRequest) Validate() error {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "username, email and password are required")
	}
	return nil
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
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*registerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	u, err := h.svc.Register(ctx, service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "registration successful",
		"user":    toUserResponse(u),
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (req *loginRequest) Validate() error {
	if req.Username == "" || req.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "username and password are required")
	}
	return nil
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*loginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"username", req.Username,
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"access_token": result.AccessToken,
		"token_type":   "Bearer",
		"expires_in":   int(result.ExpiresIn.Seconds()),
		"user":         toUserResponse(result.User),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	authHeader := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
		return
	}

	if err := h.svc.Logout(ctx, token); err != nil {
		h.logger.WarnContext(ctx, "logout failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"message": "logged out"})
}
