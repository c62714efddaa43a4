package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"tokenscout/internal/application/usecase"
	"tokenscout/internal/domain/model"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// TokenListResponse is the paginated read API contract. SnapshotTimestamp
// lets the client detect a stale-to-fresh transition mid-scroll and restart
// pagination instead of risking duplicate or missing rows.
type TokenListResponse struct {
	Tokens            []model.Token `json:"tokens"`
	Page              int           `json:"page"`
	Limit             int           `json:"limit"`
	TotalTokens       int           `json:"totalTokens"`
	TotalPages        int           `json:"totalPages"`
	HasNextPage       bool          `json:"hasNextPage"`
	HasPreviousPage   bool          `json:"hasPreviousPage"`
	SnapshotTimestamp time.Time     `json:"snapshotTimestamp"`
}

type TokenHandler struct {
	cache  *usecase.SnapshotCache
	logger *zap.Logger
}

func NewTokenHandler(cache *usecase.SnapshotCache, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{
		cache:  cache,
		logger: logger,
	}
}

// List serves GET /tokens with offset pagination over the current snapshot.
func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePositiveInt(r.URL.Query().Get("page"), 1)
	limit := parsePositiveInt(r.URL.Query().Get("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	snap, err := h.cache.GetWithSmartRefresh(r.Context())
	if err != nil {
		if errors.Is(err, model.ErrFeedUnavailable) {
			h.logger.Warn("token list unavailable, cold cache and feed down", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "token feed unavailable")
			return
		}
		h.logger.Error("failed to get token snapshot", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	total := len(snap.Tokens)
	totalPages := (total + limit - 1) / limit

	start := (page - 1) * limit
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	resp := TokenListResponse{
		Tokens:            snap.Tokens[start:end],
		Page:              page,
		Limit:             limit,
		TotalTokens:       total,
		TotalPages:        totalPages,
		HasNextPage:       page < totalPages,
		HasPreviousPage:   page > 1 && total > 0,
		SnapshotTimestamp: snap.WrittenAt,
	}
	if resp.Tokens == nil {
		resp.Tokens = []model.Token{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
