package support_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-licensing/internal/auth"
	"ms-licensing/internal/errs"
	"ms-licensing/internal/logger"
	"ms-licensing/internal/models"
	"ms-licensing/internal/support"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	SupportService *support.SupportService
	Logger         *logger.Logger
}

func NewHandler(supportService *support.SupportService, log *logger.Logger) *Handler {
	return &Handler{SupportService: supportService, Logger: log}
}

func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req models.TicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid ticket JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Subject == "" || req.Message == "" {
		http.Error(w, "Subject and message are required", http.StatusBadRequest)
		return
	}

	userID := auth.UserID(r.Context())
	ticket, err := h.SupportService.CreateTicket(userID, req)
	if err != nil {
		h.writeError(w, "CreateTicket", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(ticket)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")

	ticket, err := h.SupportService.GetTicket(auth.UserID(r.Context()), ticketID, auth.IsAdmin(r.Context()))
	if err != nil {
		h.writeError(w, "GetTicket", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ticket)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.SupportService.ListMine(auth.UserID(r.Context()))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListMine tickets: %v", err))
		http.Error(w, "Could not list tickets", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tickets)
}

func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")

	var req models.TicketMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid message JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Content == "" {
		http.Error(w, "Message content is required", http.StatusBadRequest)
		return
	}

	msg, err := h.SupportService.PostMessage(auth.UserID(r.Context()), ticketID, req.Content, auth.IsAdmin(r.Context()))
	if err != nil {
		h.writeError(w, "PostMessage", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}

// ListByStatus is the admin queue view, filtered by ?status= (default open).
func (h *Handler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	status := models.TicketStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.TicketOpen
	}

	tickets, err := h.SupportService.ListByStatus(status)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListByStatus tickets: %v", err))
		http.Error(w, "Could not list tickets", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tickets)
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")

	var req struct {
		Status models.TicketStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid status JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.SupportService.SetStatus(auth.UserID(r.Context()), ticketID, req.Status); err != nil {
		h.writeError(w, "SetStatus", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		http.Error(w, "Ticket not found", http.StatusNotFound)
	case errors.Is(err, errs.ErrUnauthorized):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errs.IsInvalidState(err):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
