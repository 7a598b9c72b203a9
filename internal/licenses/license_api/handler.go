package license_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-licensing/internal/auth"
	"ms-licensing/internal/errs"
	"ms-licensing/internal/licenses"
	"ms-licensing/internal/logger"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	LicenseService *licenses.LicenseService
	Logger         *logger.Logger
}

func NewHandler(licenseService *licenses.LicenseService, log *logger.Logger) *Handler {
	return &Handler{LicenseService: licenseService, Logger: log}
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	summaries, err := h.LicenseService.ListByUser(userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListMine licenses: %v", err))
		http.Error(w, "Could not list licenses", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}

func (h *Handler) GetLicense(w http.ResponseWriter, r *http.Request) {
	licenseID := chi.URLParam(r, "licenseId")

	license, err := h.LicenseService.GetLicense(licenseID, auth.UserID(r.Context()), auth.IsAdmin(r.Context()))
	if err != nil {
		h.writeError(w, "GetLicense", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(license)
}

// Certificate serves the QR proof image directly.
func (h *Handler) Certificate(w http.ResponseWriter, r *http.Request) {
	licenseID := chi.URLParam(r, "licenseId")

	license, err := h.LicenseService.GetLicense(licenseID, auth.UserID(r.Context()), auth.IsAdmin(r.Context()))
	if err != nil {
		h.writeError(w, "Certificate", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(license.Certificate)
}

func (h *Handler) ListByMusic(w http.ResponseWriter, r *http.Request) {
	musicID := chi.URLParam(r, "musicId")

	summaries, err := h.LicenseService.ListByMusic(musicID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListByMusic licenses: %v", err))
		http.Error(w, "Could not list licenses", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}

func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	licenseID := chi.URLParam(r, "licenseId")
	adminID := auth.UserID(r.Context())

	if err := h.LicenseService.Revoke(adminID, licenseID); err != nil {
		h.writeError(w, "Revoke", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// VerifyCertificate is public: anyone who scanned a certificate QR can
// check it against the license store.
func (h *Handler) VerifyCertificate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Certificate string `json:"certificate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Certificate == "" {
		http.Error(w, "A certificate payload is required", http.StatusBadRequest)
		return
	}

	result, err := h.LicenseService.VerifyCertificate(req.Certificate)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("VerifyCertificate: %v", err))
		http.Error(w, "Could not verify certificate", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Count is public: the storefront shows a running total of issued licenses.
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.LicenseService.CountIssued()
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Count licenses: %v", err))
		http.Error(w, "Could not count licenses", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"count": count})
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		http.Error(w, "License not found", http.StatusNotFound)
	case errors.Is(err, errs.ErrUnauthorized):
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
