package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func NewID() string {
	return uuid.NewString()
}

// NewInvoiceRef builds a human-readable invoice reference, e.g.
// INV-1724832000-4F2A.
func NewInvoiceRef() string {
	short := uuid.NewString()[:4]
	return fmt.Sprintf("INV-%d-%s", time.Now().Unix(), short)
}

// NewIdempotencyKey derives a stable key for payment retries on the same
// invoice.
func NewIdempotencyKey(invoiceID string) string {
	return "charge-" + invoiceID
}
