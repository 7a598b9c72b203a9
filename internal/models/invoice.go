package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceFailed  InvoiceStatus = "failed"
)

// Invoice is immutable once created. Line items carry price and tier
// snapshots taken at checkout; later edits to the referenced music never
// change an existing invoice.
type Invoice struct {
	bun.BaseModel `bun:"table:invoices"`

	InvoiceID  string          `bun:"invoice_id,pk" json:"invoice_id"`
	UserID     string          `bun:"user_id" json:"user_id"`
	Status     InvoiceStatus   `bun:"status" json:"status"`
	CouponCode string          `bun:"coupon_code,nullzero" json:"coupon_code,omitempty"`
	Subtotal   decimal.Decimal `bun:"subtotal" json:"subtotal"`
	Discount   decimal.Decimal `bun:"discount" json:"discount"`
	Tax        decimal.Decimal `bun:"tax" json:"tax"`
	Total      decimal.Decimal `bun:"total" json:"total"`
	Currency   string          `bun:"currency" json:"currency"`
	TxnID      string          `bun:"txn_id,nullzero" json:"txn_id,omitempty"`
	CreatedAt  time.Time       `bun:"created_at" json:"created_at"`
	PaidAt     time.Time       `bun:"paid_at,nullzero" json:"paid_at,omitempty"`
}

type FulfillmentStatus string

const (
	FulfillmentPending   FulfillmentStatus = "pending"
	FulfillmentFulfilled FulfillmentStatus = "fulfilled"
	FulfillmentFailed    FulfillmentStatus = "failed"
)

type InvoiceItem struct {
	bun.BaseModel `bun:"table:invoice_items"`

	ItemID      string            `bun:"item_id,pk" json:"item_id"`
	InvoiceID   string            `bun:"invoice_id" json:"invoice_id"`
	Kind        CartItemKind      `bun:"kind" json:"kind"`
	MusicID     string            `bun:"music_id,nullzero" json:"music_id,omitempty"`
	OrderID     string            `bun:"order_id,nullzero" json:"order_id,omitempty"`
	Tier        LicenseTier       `bun:"tier,nullzero" json:"tier,omitempty"`
	Description string            `bun:"description" json:"description"`
	UnitPrice   decimal.Decimal   `bun:"unit_price" json:"unit_price"`
	Fulfillment FulfillmentStatus `bun:"fulfillment" json:"fulfillment"`
}

type InvoiceWithItems struct {
	Invoice
	Items []InvoiceItem `json:"items"`
}
