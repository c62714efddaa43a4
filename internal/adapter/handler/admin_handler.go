package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"tokenscout/internal/application/service"
	"tokenscout/internal/application/usecase"
)

// AdminHandler exposes the operational controls: scheduler status, an
// out-of-band refresh, and a full cache wipe. These are for operator
// tooling, not end users.
type AdminHandler struct {
	scheduler *service.RefreshScheduler
	cache     *usecase.SnapshotCache
	logger    *zap.Logger
}

func NewAdminHandler(scheduler *service.RefreshScheduler, cache *usecase.SnapshotCache, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		scheduler: scheduler,
		cache:     cache,
		logger:    logger,
	}
}

// Status serves GET /admin/status.
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	active, interval := h.scheduler.Status()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"active":          active,
		"intervalSeconds": int(interval.Seconds()),
	})
}

// Refresh serves POST /admin/refresh.
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("operator-triggered refresh")

	count, err := h.scheduler.TriggerOnce(r.Context())
	if err != nil {
		h.logger.Error("operator-triggered refresh failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "refresh failed: feed unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"count":  count,
	})
}

// ClearCache serves POST /admin/cache/clear.
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("operator-triggered cache clear")

	if err := h.cache.Clear(r.Context()); err != nil {
		h.logger.Error("cache clear failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to clear snapshot store")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
