// Package httpadapter exposes the intake session lifecycle to the
// presentation layer. It only ever works with session snapshots; the
// orchestrator keeps sole ownership of the mutable state.
package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/Meirbek-dev/tou-intake/internal/config"
	"github.com/Meirbek-dev/tou-intake/internal/core/domain"
	"github.com/Meirbek-dev/tou-intake/internal/core/ports"
	"github.com/Meirbek-dev/tou-intake/internal/observability/metrics"
)

const serviceName = "gateway"

type Router struct {
	cfg      config.Config
	registry ports.SessionRegistry
	gateway  ports.ClassificationGateway
	metrics  *metrics.GatewayMetrics
	limiter  *rate.Limiter
}

func NewRouter(
	cfg config.Config,
	registry ports.SessionRegistry,
	gateway ports.ClassificationGateway,
	gatewayMetrics *metrics.GatewayMetrics,
) *Router {
	return &Router{
		cfg:      cfg,
		registry: registry,
		gateway:  gateway,
		metrics:  gatewayMetrics,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	r.Use(chimiddleware.Recoverer)
	if rt.cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(rt.cfg.RequestTimeout))
	}
	if rt.metrics != nil {
		r.Use(func(next http.Handler) http.Handler {
			return rt.metrics.Middleware(serviceName, next)
		})
	}
	r.Use(func(next http.Handler) http.Handler {
		return rateLimitMiddleware(next, rt.limiter)
	})
	r.Use(func(next http.Handler) http.Handler {
		return backpressureMiddleware(next, rt.cfg.MaxConcurrent, rt.cfg.RequestTimeout)
	})

	r.Get("/healthz", rt.healthz)
	if rt.metrics != nil {
		r.Handle("/metrics", rt.metrics.Handler())
	}

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", rt.createSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", rt.getSession)
			r.Delete("/", rt.removeSession)
			r.Patch("/applicant", rt.setApplicant)
			r.Post("/files", rt.uploadFiles)
			r.Delete("/files/{recordID}", rt.deleteFile)
			r.Get("/files/{recordID}/content", rt.downloadFile)
			r.Get("/archive", rt.downloadArchive)
			r.Post("/undo", rt.undoDelete)
			r.Post("/reset", rt.resetSession)
		})
	})

	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionResponse pairs a snapshot with its category grouping, computed
// on read so the presentation layer never re-derives it.
type sessionResponse struct {
	Session domain.Session         `json:"session"`
	Groups  []domain.CategoryGroup `json:"groups"`
}

func snapshotResponse(orch ports.SessionOrchestrator) sessionResponse {
	return sessionResponse{
		Session: orch.Snapshot(),
		Groups:  orch.Groups(),
	}
}

func (rt *Router) session(w http.ResponseWriter, r *http.Request) (ports.SessionOrchestrator, bool) {
	orch, err := rt.registry.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return orch, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("write_response_failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
