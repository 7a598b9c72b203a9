package cart_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-licensing/internal/auth"
	"ms-licensing/internal/cart"
	"ms-licensing/internal/errs"
	"ms-licensing/internal/logger"
	"ms-licensing/internal/models"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	CartService *cart.CartService
	Logger      *logger.Logger
}

func NewHandler(cartService *cart.CartService, log *logger.Logger) *Handler {
	return &Handler{CartService: cartService, Logger: log}
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req models.CartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid cart item JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	userID := auth.UserID(r.Context())
	item, err := h.CartService.AddItem(userID, req)
	if err != nil {
		h.writeError(w, "AddItem", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(item)
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	items, err := h.CartService.ListItems(userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListItems: %v", err))
		http.Error(w, "Could not list cart", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")
	userID := auth.UserID(r.Context())

	if err := h.CartService.RemoveItem(userID, itemID); err != nil {
		h.writeError(w, "RemoveItem", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Quote prices the cart without committing to anything. Amounts come back
// both exact and rounded for display.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	couponCode := r.URL.Query().Get("coupon")

	quote, err := h.CartService.Quote(userID, couponCode)
	if err != nil {
		h.writeError(w, "Quote", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		*models.Quote
		DisplayTotal string `json:"display_total"`
	}{quote, cart.DisplayAmount(quote.Total)})
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req models.ChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid checkout JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	userID := auth.UserID(r.Context())
	invoice, err := h.CartService.Checkout(userID, req)
	if err != nil {
		h.writeError(w, "Checkout", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(invoice)
}

func (h *Handler) RetryInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "invoiceId")

	var req models.ChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid checkout JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	userID := auth.UserID(r.Context())
	invoice, err := h.CartService.RetryInvoice(userID, invoiceID, req)
	if err != nil {
		h.writeError(w, "RetryInvoice", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(invoice)
}

func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	invoices, err := h.CartService.ListInvoices(userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListInvoices: %v", err))
		http.Error(w, "Could not list invoices", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(invoices)
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "invoiceId")
	userID := auth.UserID(r.Context())

	invoice, err := h.CartService.GetInvoice(userID, invoiceID)
	if err != nil {
		h.writeError(w, "GetInvoice", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(invoice)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, errs.ErrUnauthorized):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, errs.ErrGatewayTimeout):
		// Retriable: the invoice is still pending.
		http.Error(w, "Payment gateway timeout, retry checkout", http.StatusGatewayTimeout)
	case errors.Is(err, errs.ErrGatewayDeclined):
		http.Error(w, "Payment declined, use a different payment method", http.StatusPaymentRequired)
	case errors.Is(err, errs.ErrExclusiveAlreadySold):
		http.Error(w, "Exclusive license already sold", http.StatusConflict)
	case errs.IsInvalidState(err), errs.IsPricing(err):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
