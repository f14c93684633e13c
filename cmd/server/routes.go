package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminhandler "passtrack/internal/admin/handler"
	adminservice "passtrack/internal/admin/service"
	"passtrack/internal/identity"
	identityhandler "passtrack/internal/identity/handler"
	identityservice "passtrack/internal/identity/service"
	"passtrack/internal/jwttoken"
	lifecyclehandler "passtrack/internal/lifecycle/handler"
	lifecycleservice "passtrack/internal/lifecycle/service"
	platformredis "passtrack/internal/platform/redis"
	id "passtrack/pkg/domain"
	dErrors "passtrack/pkg/domain-errors"
	"passtrack/pkg/platform/audit"
	"passtrack/pkg/platform/audit/publisher"
	"passtrack/pkg/platform/httputil"
	authmw "passtrack/pkg/platform/middleware/auth"
	"passtrack/pkg/platform/middleware/metadata"
	"passtrack/pkg/platform/middleware/request"
	"passtrack/pkg/platform/middleware/requesttime"
	"passtrack/pkg/requestcontext"
)

// revocationChecker is the slice of the token revocation list the router
// needs. Both the redis-backed and in-memory lists satisfy it.
type revocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type routerDeps struct {
	identity  *identityservice.Service
	lifecycle *lifecycleservice.Service
	admin     *adminservice.Service
	jwt       *jwttoken.JWTServiceAdapter
	revoked   revocationChecker
	db        *sql.DB
	redis     *platformredis.Client
	tracer    *publisher.Kafka
	logger    *slog.Logger
}

// newRouter assembles the full HTTP surface: public auth and health
// endpoints, the authenticated workflow API, and the admin API behind an
// additional role gate.
func newRouter(deps routerDeps) http.Handler {
	identityH := identityhandler.New(deps.identity, deps.logger)
	lifecycleH := lifecyclehandler.New(deps.lifecycle, deps.logger)
	adminH := adminhandler.New(deps.admin, deps.logger)

	r := chi.NewRouter()
	r.Use(request.ID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	if deps.tracer != nil {
		r.Use(requestTrace(deps.tracer))
	}

	r.Group(func(r chi.Router) {
		identityH.PublicRoutes(r)
		r.Get("/health", healthHandler(deps.db, deps.redis))
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(deps.jwt, deps.revoked, deps.identity, deps.logger))
		identityH.Routes(r)
		lifecycleH.Routes(r)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			adminH.Routes(r)
		})
	})

	return r
}

func healthHandler(db *sql.DB, redis *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"reason": "postgres unreachable",
			})
			return
		}
		if redis != nil {
			if err := redis.Health(ctx); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"reason": "redis unreachable",
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// requireAdmin rejects authenticated requests whose resolved role is not
// admin. It must sit inside the RequireAuth group.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestcontext.Role(r.Context()) != string(identity.RoleAdmin) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestTrace publishes a fire-and-forget operations event for every
// request. Traces ride Kafka rather than the compliance store: losing one
// is acceptable, slowing a request down is not.
func requestTrace(tracer *publisher.Kafka) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			ctx := r.Context()
			tracer.Publish(ctx, &audit.Entry{
				ID:       id.NewAuditEventID(),
				ActorID:  requestcontext.UserID(ctx),
				Action:   audit.ActionRequestTrace,
				Entity:   "http_request",
				RecordID: r.Method + " " + r.URL.Path,
				After: map[string]any{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      ww.Status(),
					"bytes":       ww.BytesWritten(),
					"duration_ms": time.Since(start).Milliseconds(),
				},
				Origin:    audit.OriginFromContext(ctx),
				RequestID: requestcontext.RequestID(ctx),
				Timestamp: start,
			})
		})
	}
}
