package catalog_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ms-licensing/internal/auth"
	"ms-licensing/internal/catalog"
	"ms-licensing/internal/errs"
	"ms-licensing/internal/logger"
	"ms-licensing/internal/models"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	CatalogService *catalog.CatalogService
	Logger         *logger.Logger
}

func NewHandler(service *catalog.CatalogService, log *logger.Logger) *Handler {
	return &Handler{CatalogService: service, Logger: log}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	filter := models.MusicSearchFilter{
		Genre:   q.Get("genre"),
		Mood:    q.Get("mood"),
		UseCase: q.Get("use_case"),
		Query:   q.Get("q"),
		Limit:   limit,
		Offset:  offset,
	}

	results, err := h.CatalogService.Search(filter)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Search: %v", err))
		http.Error(w, "Search failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

func (h *Handler) GetMusic(w http.ResponseWriter, r *http.Request) {
	musicID := chi.URLParam(r, "musicId")

	music, err := h.CatalogService.GetMusic(musicID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetMusic: music not found: %v", err))
		http.Error(w, "Music not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(music)
}

func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	musicID := chi.URLParam(r, "musicId")

	if err := h.CatalogService.RecordPlay(musicID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Play: failed to record play: %v", err))
		http.Error(w, "Could not record play", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateMusic(w http.ResponseWriter, r *http.Request) {
	var req models.MusicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid music JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	directorID := auth.UserID(r.Context())
	music, err := h.CatalogService.CreateMusic(directorID, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateMusic: %v", err))
		http.Error(w, "Could not create music: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(music)
}

func (h *Handler) UpdateMusic(w http.ResponseWriter, r *http.Request) {
	musicID := chi.URLParam(r, "musicId")

	var req models.MusicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid music JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	directorID := auth.UserID(r.Context())
	music, err := h.CatalogService.UpdateMusic(directorID, musicID, req)
	if err != nil {
		writeDomainError(w, h.Logger, "UpdateMusic", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(music)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	directorID := auth.UserID(r.Context())

	music, err := h.CatalogService.ListByDirector(directorID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListMine: %v", err))
		http.Error(w, "Could not list music", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(music)
}

// ---------------- MODERATION ----------------

func (h *Handler) ListPendingReview(w http.ResponseWriter, r *http.Request) {
	music, err := h.CatalogService.ListPendingReview()
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListPendingReview: %v", err))
		http.Error(w, "Could not list pending music", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(music)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "approve", func(adminID, musicID, _ string) error {
		return h.CatalogService.Approve(adminID, musicID)
	})
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "reject", func(adminID, musicID, reason string) error {
		return h.CatalogService.Reject(adminID, musicID, reason)
	})
}

func (h *Handler) Flag(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "flag", func(adminID, musicID, reason string) error {
		return h.CatalogService.Flag(adminID, musicID, reason)
	})
}

func (h *Handler) Unflag(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "unflag", func(adminID, musicID, _ string) error {
		return h.CatalogService.Unflag(adminID, musicID)
	})
}

// moderate runs a moderation action. Invalid transitions come back as 409,
// never 5xx; these are reversible mutations.
func (h *Handler) moderate(w http.ResponseWriter, r *http.Request, op string, fn func(adminID, musicID, reason string) error) {
	musicID := chi.URLParam(r, "musicId")

	var body struct {
		Reason string `json:"reason"`
	}
	// Body is optional for approve/unflag
	_ = json.NewDecoder(r.Body).Decode(&body)

	adminID := auth.UserID(r.Context())
	if err := fn(adminID, musicID, body.Reason); err != nil {
		if errs.IsInvalidState(err) {
			http.Error(w, fmt.Sprintf("Cannot %s: %v", op, err), http.StatusConflict)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("Moderation %s failed: %v", op, err))
		http.Error(w, fmt.Sprintf("Could not %s music", op), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeDomainError(w http.ResponseWriter, log *logger.Logger, op string, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, errs.ErrUnauthorized):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, errs.ErrVersionConflict):
		http.Error(w, "Conflicting update, retry", http.StatusConflict)
	case errors.Is(err, errs.ErrExclusiveAlreadySold):
		http.Error(w, "Exclusive license already sold", http.StatusConflict)
	case errs.IsInvalidState(err), errs.IsPricing(err):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Error("API", fmt.Sprintf("%s: %v", op, err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
