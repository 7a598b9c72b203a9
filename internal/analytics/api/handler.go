package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"ms-licensing/internal/analytics"
	"ms-licensing/internal/auth"
	"ms-licensing/internal/logger"
)

type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) DirectorSummary(w http.ResponseWriter, r *http.Request) {
	directorID := auth.UserID(r.Context())

	summary, err := h.Service.GetDirectorSummary(r.Context(), directorID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("DirectorSummary: %v", err))
		http.Error(w, "Could not load analytics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func (h *Handler) TopMusic(w http.ResponseWriter, r *http.Request) {
	directorID := auth.UserID(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	top, err := h.Service.GetTopMusic(r.Context(), directorID, limit)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("TopMusic: %v", err))
		http.Error(w, "Could not load analytics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(top)
}

func (h *Handler) DirectorOrderCounts(w http.ResponseWriter, r *http.Request) {
	directorID := auth.UserID(r.Context())

	counts, err := h.Service.GetDirectorOrderCounts(r.Context(), directorID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("DirectorOrderCounts: %v", err))
		http.Error(w, "Could not load analytics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(counts)
}

func (h *Handler) PlatformSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.GetPlatformSummary(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("PlatformSummary: %v", err))
		http.Error(w, "Could not load analytics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}
