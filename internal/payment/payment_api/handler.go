package payment_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-licensing/internal/errs"
	"ms-licensing/internal/logger"
	"ms-licensing/internal/models"

	"github.com/go-chi/chi/v5"
)

// Records is the read side of the payment store the admin views need.
type Records interface {
	GetPaymentByID(paymentID string) (*models.Payment, error)
	ListPaymentsByInvoice(invoiceID string) ([]models.Payment, error)
}

type Handler struct {
	Records Records
	Logger  *logger.Logger
}

func NewHandler(records Records, log *logger.Logger) *Handler {
	return &Handler{Records: records, Logger: log}
}

// ListForInvoice shows every charge attempt against an invoice, in order.
// Support staff use it to see whether a disputed invoice timed out, was
// declined, or double-charged.
func (h *Handler) ListForInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "invoiceId")

	payments, err := h.Records.ListPaymentsByInvoice(invoiceID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListForInvoice payments: %v", err))
		http.Error(w, "Could not list payments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payments)
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentId")

	payment, err := h.Records.GetPaymentByID(paymentID)
	if errors.Is(err, errs.ErrNotFound) {
		http.Error(w, "Payment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetPayment: %v", err))
		http.Error(w, "Could not load payment", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payment)
}
