package order_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-licensing/internal/auth"
	"ms-licensing/internal/errs"
	"ms-licensing/internal/logger"
	"ms-licensing/internal/models"
	"ms-licensing/internal/order"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	OrderService *order.OrderService
	Logger       *logger.Logger
}

func NewHandler(orderService *order.OrderService, log *logger.Logger) *Handler {
	return &Handler{OrderService: orderService, Logger: log}
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid order JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	customerID := auth.UserID(r.Context())
	created, err := h.OrderService.PlaceOrder(customerID, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("PlaceOrder: %v", err))
		http.Error(w, "Could not place order: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	orderData, err := h.OrderService.GetOrder(orderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetOrder: order not found: %v", err))
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	// Orders are visible to their customer, their director, and admins.
	ctx := r.Context()
	uid := auth.UserID(ctx)
	if orderData.CustomerID != uid && orderData.DirectorID != uid && !auth.IsAdmin(ctx) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orderData)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := auth.UserID(ctx)

	var (
		orders []models.Order
		err    error
	)
	if auth.Role(ctx) == auth.RoleDirector {
		orders, err = h.OrderService.ListForDirector(uid)
	} else {
		orders, err = h.OrderService.ListForCustomer(uid)
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListMine: %v", err))
		http.Error(w, "Could not list orders", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orders)
}

func (h *Handler) ListOpen(w http.ResponseWriter, r *http.Request) {
	orders, err := h.OrderService.ListOpen()
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListOpen: %v", err))
		http.Error(w, "Could not list open orders", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orders)
}

func (h *Handler) SubmitOffer(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var offer models.OfferRequest
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		http.Error(w, "Invalid offer JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	directorID := auth.UserID(r.Context())
	if err := h.OrderService.SubmitOffer(directorID, orderID, offer); err != nil {
		h.writeError(w, "SubmitOffer", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	customerID := auth.UserID(r.Context())

	if err := h.OrderService.AcceptOffer(customerID, orderID); err != nil {
		h.writeError(w, "AcceptOffer", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RequestRevision(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var body struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid revision JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	customerID := auth.UserID(r.Context())
	if err := h.OrderService.RequestRevision(customerID, orderID, body.Note); err != nil {
		h.writeError(w, "RequestRevision", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ResumeWork(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	directorID := auth.UserID(r.Context())

	if err := h.OrderService.ResumeWork(directorID, orderID); err != nil {
		h.writeError(w, "ResumeWork", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MarkReadyForPayment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var body struct {
		FinalMusicURL string `json:"final_music_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid delivery JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body.FinalMusicURL == "" {
		http.Error(w, "final_music_url is required", http.StatusBadRequest)
		return
	}

	directorID := auth.UserID(r.Context())
	if err := h.OrderService.MarkReadyForPayment(directorID, orderID, body.FinalMusicURL); err != nil {
		h.writeError(w, "MarkReadyForPayment", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	actorID := auth.UserID(r.Context())
	if err := h.OrderService.Cancel(actorID, orderID, body.Reason); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) OpenDispute(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid dispute JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	actorID := auth.UserID(r.Context())
	if err := h.OrderService.OpenDispute(actorID, orderID, body.Reason); err != nil {
		h.writeError(w, "OpenDispute", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CompleteIssuance(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	if err := h.OrderService.CompleteIssuance(orderID); err != nil {
		h.writeError(w, "CompleteIssuance", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ---------------- ADMIN ----------------

func (h *Handler) ListDisputed(w http.ResponseWriter, r *http.Request) {
	orders, err := h.OrderService.ListDisputed()
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListDisputed: %v", err))
		http.Error(w, "Could not list disputes", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orders)
}

func (h *Handler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var body struct {
		Complete bool   `json:"complete"`
		Note     string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid resolution JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	adminID := auth.UserID(r.Context())
	if err := h.OrderService.ResolveDispute(adminID, orderID, body.Complete, body.Note); err != nil {
		h.writeError(w, "ResolveDispute", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeError maps the domain taxonomy onto HTTP statuses. State-machine
// violations surface as 409 with the offending status in the body; they are
// expected outcomes, not server faults.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		http.Error(w, "Order not found", http.StatusNotFound)
	case errors.Is(err, errs.ErrUnauthorized):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, errs.ErrRevisionLimitExceeded):
		http.Error(w, "Included revisions exhausted", http.StatusUnprocessableEntity)
	case errors.Is(err, errs.ErrLocked), errors.Is(err, errs.ErrVersionConflict):
		http.Error(w, "Order busy, retry", http.StatusConflict)
	case errs.IsInvalidState(err):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
