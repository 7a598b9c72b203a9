package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type CartItemKind string

const (
	CartItemMusic        CartItemKind = "music"
	CartItemOrderPayment CartItemKind = "order_payment"
)

// CartItem is an ephemeral line in a user's cart. It references either a
// catalog music purchase (with the chosen license tier) or a payment due on
// a commission order. Rows are deleted on checkout or explicit removal.
type CartItem struct {
	bun.BaseModel `bun:"table:cart_items"`

	CartItemID string       `bun:"cart_item_id,pk" json:"cart_item_id"`
	UserID     string       `bun:"user_id" json:"user_id"`
	Kind       CartItemKind `bun:"kind" json:"kind"`
	MusicID    string       `bun:"music_id,nullzero" json:"music_id,omitempty"`
	Tier       LicenseTier  `bun:"tier,nullzero" json:"tier,omitempty"`
	OrderID    string       `bun:"order_id,nullzero" json:"order_id,omitempty"`
	AddedAt    time.Time    `bun:"added_at" json:"added_at"`
}

type CartItemRequest struct {
	Kind    CartItemKind `json:"kind"`
	MusicID string       `json:"music_id,omitempty"`
	Tier    LicenseTier  `json:"tier,omitempty"`
	OrderID string       `json:"order_id,omitempty"`
}

type Coupon struct {
	bun.BaseModel `bun:"table:coupons"`

	Code   string          `bun:"code,pk" json:"code"`
	Rate   decimal.Decimal `bun:"rate" json:"rate"`
	Active bool            `bun:"active" json:"active"`
}

// Quote is a priced view of a cart. All amounts are exact decimals; rounding
// to two places happens only when the quote is rendered.
type Quote struct {
	Lines        []QuoteLine     `json:"lines"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	CouponCode   string          `json:"coupon_code,omitempty"`
	CouponReason string          `json:"coupon_reason,omitempty"`
	Discount     decimal.Decimal `json:"discount"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
}

type QuoteLine struct {
	CartItemID  string          `json:"cart_item_id"`
	Kind        CartItemKind    `json:"kind"`
	MusicID     string          `json:"music_id,omitempty"`
	OrderID     string          `json:"order_id,omitempty"`
	Tier        LicenseTier     `json:"tier,omitempty"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}
