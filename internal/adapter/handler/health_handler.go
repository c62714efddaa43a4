package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"tokenscout/internal/application/service"
	"tokenscout/internal/domain/port"
)

type HealthHandler struct {
	store     port.SnapshotStore
	scheduler *service.RefreshScheduler
	logger    *zap.Logger
}

func NewHealthHandler(store port.SnapshotStore, scheduler *service.RefreshScheduler, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		store:     store,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Check serves GET /health. A down snapshot store degrades the service but
// does not fail it outright: reads still work from the fallback tier.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	redisStatus := "healthy"
	overallStatus := "healthy"

	if err := h.store.Ping(r.Context()); err != nil {
		redisStatus = "unhealthy"
		overallStatus = "degraded"
		h.logger.Warn("redis health check failed", zap.Error(err))
	}

	schedulerActive, _ := h.scheduler.Status()

	response := map[string]interface{}{
		"status": overallStatus,
		"checks": map[string]interface{}{
			"redis":     redisStatus,
			"scheduler": schedulerActive,
		},
	}

	statusCode := http.StatusOK
	if overallStatus == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
