package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tayaladitya/dyslexofly/internal/config"
	"github.com/tayaladitya/dyslexofly/internal/core/ports"
	"github.com/tayaladitya/dyslexofly/internal/observability/metrics"
)

const clientIDHeader = "X-Client-Id"

// Dependencies are the inbound services and stores the router serves.
type Dependencies struct {
	Ingest    ports.DocumentIngestor
	Documents ports.DocumentLifecycle
	Summaries ports.SummaryService
	Narration ports.NarrationService
	Audio     ports.FileArea
	Exporter  ports.SummaryExporter

	Metrics        *metrics.HTTPServerMetrics
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

type Router struct {
	cfg  config.Config
	deps Dependencies
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	return &Router{cfg: cfg, deps: deps}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/documents", rt.uploadDocument)
	api.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	api.HandleFunc("DELETE /v1/documents/{id}", rt.deleteDocument)
	api.HandleFunc("GET /v1/documents/{id}/exists", rt.documentExists)
	api.HandleFunc("GET /v1/documents/{id}/stats", rt.documentStats)
	api.HandleFunc("POST /v1/documents/{id}/summary", rt.summarizeDocument)
	api.HandleFunc("POST /v1/documents/{id}/audio", rt.narrateDocument)
	api.HandleFunc("GET /v1/audio/{name}", rt.serveAudio)
	api.HandleFunc("GET /v1/voices", rt.listVoices)

	var limited http.Handler = api
	limited = backpressureMiddleware(limited, rt.cfg.MaxInFlight, 250*time.Millisecond, rt.deps.Metrics)
	limited = rateLimitMiddleware(limited, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst, rt.deps.Metrics)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", rt.healthz)
	if rt.deps.MetricsHandler != nil {
		root.Handle("GET /metrics", rt.deps.MetricsHandler)
	}
	root.Handle("/v1/", limited)

	var handler http.Handler = root
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(handler)
	}
	logger := rt.deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	handler = recoverMiddleware(handler, logger)
	handler = accessLogMiddleware(handler, logger)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
