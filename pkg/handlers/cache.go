package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/cloneforge/cloneforge-engine/pkg/cache"
)

// CacheHandler exposes insights-cache effectiveness counters.
type CacheHandler struct {
	insights cache.InsightsCache
	logger   *zap.Logger
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(insights cache.InsightsCache, logger *zap.Logger) *CacheHandler {
	return &CacheHandler{insights: insights, logger: logger}
}

// Stats handles GET /api/cache/stats.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, h.insights.Stats()); err != nil {
		h.logger.Error("Failed to encode cache stats", zap.Error(err))
	}
}
