// Package http serves generated declarations over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/artpar/zentypes/adapters/metrics"
	"github.com/artpar/zentypes/app"
	"github.com/artpar/zentypes/core/diagnostic"
	"github.com/artpar/zentypes/core/formatter"
	"github.com/artpar/zentypes/domain/decl"
	"github.com/artpar/zentypes/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// ErrorResponseBody is the JSON body of every error response.
type ErrorResponseBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes an error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// RunResponse summarizes a generation run.
type RunResponse struct {
	RunID        string                  `json:"run_id"`
	Status       string                  `json:"status"`
	StartedAt    time.Time               `json:"started_at"`
	DurationMS   int64                   `json:"duration_ms"`
	Symbols      int                     `json:"symbols"`
	Declarations int                     `json:"declarations"`
	Errors       int                     `json:"errors"`
	Warnings     int                     `json:"warnings"`
	Infos        int                     `json:"infos"`
	Diagnostics  []diagnostic.Diagnostic `json:"diagnostics,omitempty"`
}

// Generator is the generation service as seen by the handlers.
type Generator interface {
	Run(ctx context.Context) (*app.Result, error)
	Last() *app.Result
	Latest() *app.Result
	Render(decls []decl.Declaration, format string) ([]byte, formatter.Formatter, error)
}

// Handler serves generation results.
type Handler struct {
	gen       Generator
	hasher    ports.TokenHasher
	tokenHash string
	logger    zerolog.Logger

	// one regeneration at a time
	running sync.Mutex
}

// NewHandler creates a handler. Regeneration over HTTP is disabled when
// tokenHash is empty.
func NewHandler(gen Generator, hasher ports.TokenHasher, tokenHash string, logger zerolog.Logger) *Handler {
	return &Handler{
		gen:       gen,
		hasher:    hasher,
		tokenHash: tokenHash,
		logger:    logger.With().Str("component", "http").Logger(),
	}
}

// Types serves the last successful output as TypeScript.
func (h *Handler) Types(w http.ResponseWriter, r *http.Request) {
	h.render(w, "ts")
}

// Declarations serves the last successful declarations as JSON.
func (h *Handler) Declarations(w http.ResponseWriter, r *http.Request) {
	h.render(w, "json")
}

// Output serves the last successful declarations in the format named by the
// {format} URL parameter.
func (h *Handler) Output(w http.ResponseWriter, r *http.Request) {
	h.render(w, chi.URLParam(r, "format"))
}

func (h *Handler) render(w http.ResponseWriter, format string) {
	last := h.gen.Last()
	if last == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "no successful generation yet")
		return
	}

	out, f, err := h.gen.Render(last.Declarations, format)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_format", err.Error())
		return
	}

	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("X-Run-ID", last.RunID)
	if _, err := w.Write(out); err != nil {
		h.logger.Error().Err(err).Msg("failed to write response body")
	}
}

// Diagnostics serves the diagnostics of the latest run, including halted runs.
func (h *Handler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	latest := h.gen.Latest()
	if latest == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "no generation has run yet")
		return
	}
	resp := summarize(latest, statusOf(latest))
	resp.Diagnostics = latest.Diagnostics.All()
	writeJSON(w, http.StatusOK, resp)
}

// Generate runs a generation. It requires a bearer token matching the
// configured hash.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	if h.tokenHash == "" {
		writeError(w, http.StatusForbidden, "disabled", "regeneration over HTTP is disabled")
		return
	}
	if !h.hasher.Compare(h.tokenHash, bearerToken(r)) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="zentypes"`)
		writeError(w, http.StatusUnauthorized, "invalid_token", "missing or invalid bearer token")
		return
	}

	if !h.running.TryLock() {
		writeError(w, http.StatusConflict, "busy", "a generation is already running")
		return
	}
	defer h.running.Unlock()

	result, err := h.gen.Run(r.Context())
	switch {
	case errors.Is(err, app.ErrCompilationHalted):
		resp := summarize(result, app.StatusHalted)
		resp.Diagnostics = result.Diagnostics.Errors
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case err != nil:
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("generation failed")
		writeError(w, http.StatusBadGateway, "generation_failed", err.Error())
	default:
		writeJSON(w, http.StatusOK, summarize(result, app.StatusOK))
	}
}

func summarize(res *app.Result, status string) RunResponse {
	return RunResponse{
		RunID:        res.RunID,
		Status:       status,
		StartedAt:    res.StartedAt,
		DurationMS:   res.Duration.Milliseconds(),
		Symbols:      res.Symbols,
		Declarations: len(res.Declarations),
		Errors:       len(res.Diagnostics.Errors),
		Warnings:     len(res.Diagnostics.Warnings),
		Infos:        len(res.Diagnostics.Infos),
	}
}

func statusOf(res *app.Result) string {
	if res.Diagnostics.HasErrors() {
		return app.StatusHalted
	}
	return app.StatusOK
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponseBody{Error: ErrorDetail{Code: code, Message: message}})
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	registry ports.HealthChecker
}

// NewHealthHandler creates a new health handler. registry may be nil.
func NewHealthHandler(registry ports.HealthChecker) *HealthHandler {
	return &HealthHandler{registry: registry}
}

// Liveness returns a simple liveness check.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness checks that the schema registry answers.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.registry != nil {
		if err := h.registry.HealthCheck(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VersionHandler returns a handler reporting version.
func VersionHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, VersionResponse{
			Version: version,
			Service: "zentypes",
		})
	}
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Version        string
	Metrics        *metrics.Collector
	MetricsPath    string       // default: /metrics
	MetricsHandler http.Handler // default: promhttp.Handler()
	Timeout        time.Duration
}

// NewRouter creates the HTTP router.
func NewRouter(h *Handler, health *HealthHandler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger, cfg.MetricsPath))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Timeout))

	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics, cfg.MetricsPath))
	}

	// Health endpoints (no auth required)
	r.Get("/health", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Metrics != nil {
		mh := cfg.MetricsHandler
		if mh == nil {
			mh = promhttp.Handler()
		}
		r.Handle(cfg.MetricsPath, mh)
	}

	r.Get("/version", VersionHandler(cfg.Version))

	r.Get("/types.ts", h.Types)
	r.Get("/declarations.json", h.Declarations)
	r.Get("/output/{format}", h.Output)
	r.Get("/diagnostics", h.Diagnostics)
	r.Post("/generate", h.Generate)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
	})

	return r
}

// NewMetricsMiddleware creates middleware that records request metrics.
func NewMetricsMiddleware(m *metrics.Collector, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics for internal endpoints
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == metricsPath {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.RequestsTotal.WithLabelValues(r.Method, route, statusLabel(ww.Status())).Inc()
			m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// statusLabel returns a string label for the status code.
func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

// NewLoggingMiddleware creates a new logging middleware.
func NewLoggingMiddleware(logger zerolog.Logger, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip logging for health checks and metrics
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == metricsPath {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
