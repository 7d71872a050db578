package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/cloneforge/cloneforge-engine/pkg/config"
)

// HealthHandler serves the liveness and service-info endpoints.
type HealthHandler struct {
	cfg    *config.Config
	logger *zap.Logger
}

// ServiceInfo describes the running engine instance.
type ServiceInfo struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
}

func NewHealthHandler(cfg *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, logger: logger}
}

// Health answers load balancer liveness probes with a bare "ok".
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping reports build and runtime details for deploy verification.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, _ := os.Hostname()

	info := ServiceInfo{
		Status:      "ok",
		Service:     "cloneforge-engine",
		Version:     h.cfg.Version,
		Environment: h.cfg.Env,
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
	}
	if err := WriteJSON(w, http.StatusOK, info); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
