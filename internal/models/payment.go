package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentSuccess  PaymentStatus = "success"
	PaymentDeclined PaymentStatus = "declined"
	PaymentTimeout  PaymentStatus = "timeout"
	PaymentRefunded PaymentStatus = "refunded"
)

// Payment is the record of a gateway charge attempt for an invoice.
type Payment struct {
	bun.BaseModel `bun:"table:payments"`

	PaymentID      string          `json:"payment_id" bun:"payment_id,pk"`
	InvoiceID      string          `json:"invoice_id" bun:"invoice_id"`
	Status         PaymentStatus   `json:"status" bun:"status"`
	Amount         decimal.Decimal `json:"amount" bun:"amount"`
	Currency       string          `json:"currency" bun:"currency"`
	MethodRef      string          `json:"method_ref" bun:"method_ref"`
	IdempotencyKey string          `json:"idempotency_key" bun:"idempotency_key"`
	TxnID          string          `json:"txn_id,omitempty" bun:"txn_id,nullzero"`
	CreatedAt      time.Time       `json:"created_at" bun:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at,omitempty" bun:"updated_at,nullzero"`
}

// PaymentResult is what the core consumes from the gateway.
type PaymentResult struct {
	Success bool   `json:"success"`
	TxnID   string `json:"txn_id"`
}

type ChargeRequest struct {
	MethodRef      string `json:"method_ref"`
	CouponCode     string `json:"coupon_code,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}
