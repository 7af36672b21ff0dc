package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-datasource/pkg/config"
	"github.com/ekaya-inc/ekaya-datasource/pkg/logging"
)

// healthCheckTimeout bounds the database ping behind /health.
const healthCheckTimeout = 2 * time.Second

// Pinger is satisfied by the platform database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg    *config.Config
	db     Pinger
	logger *zap.Logger
}

// NewHealthHandler creates a HealthHandler. db may be nil, in which case the
// database is reported as "unknown".
func NewHealthHandler(cfg *config.Config, db Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, db: db, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health. It answers 503 when the record store is unreachable.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{Status: "ok", Database: "unknown"}
	status := http.StatusOK

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("Health check database ping failed",
				zap.String("error", logging.SanitizeError(err)))
			response.Status = "degraded"
			response.Database = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			response.Database = "ok"
		}
	}

	if err := WriteJSON(w, status, response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		if err := ErrorResponse(w, http.StatusInternalServerError, "hostname_unavailable", "failed to get hostname"); err != nil {
			h.logger.Error("Failed to encode error response", zap.Error(err))
		}
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "ekaya-datasource",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
