package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusOfferPending      OrderStatus = "offer_pending"
	OrderStatusOfferAccepted     OrderStatus = "offer_accepted"
	OrderStatusInProgress        OrderStatus = "in_progress"
	OrderStatusRevisionRequested OrderStatus = "revision_requested"
	OrderStatusReadyForPayment   OrderStatus = "ready_for_payment"
	OrderStatusPaid              OrderStatus = "paid"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusDisputed          OrderStatus = "disputed"
)

type PaymentModel string

const (
	PayOnCompletion PaymentModel = "on_completion"
	PayPartial      PaymentModel = "partial"
)

// Order is a custom-music commission between a customer and a director.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID            string              `bun:"order_id,pk" json:"order_id"`
	CustomerID         string              `bun:"customer_id" json:"customer_id"`
	DirectorID         string              `bun:"director_id,nullzero" json:"director_id,omitempty"`
	Status             OrderStatus         `bun:"status" json:"status"`
	Brief              string              `bun:"brief" json:"brief"`
	Budget             decimal.Decimal     `bun:"budget" json:"budget"`
	OfferedPrice       decimal.NullDecimal `bun:"offered_price" json:"offered_price"`
	ProductionTimeDays int                 `bun:"production_time_days" json:"production_time_days"`
	PaymentModel       PaymentModel        `bun:"payment_model" json:"payment_model"`
	IncludedRevisions  int                 `bun:"included_revisions" json:"included_revisions"`
	MaxRevisions       int                 `bun:"max_revisions" json:"max_revisions"`
	UsedRevisions      int                 `bun:"used_revisions" json:"used_revisions"`
	RevisionNote       string              `bun:"revision_note,nullzero" json:"revision_note,omitempty"`
	FinalMusicURL      string              `bun:"final_music_url,nullzero" json:"final_music_url,omitempty"`
	FinalMusicID       string              `bun:"final_music_id,nullzero" json:"final_music_id,omitempty"`
	CancelReason       string              `bun:"cancel_reason,nullzero" json:"cancel_reason,omitempty"`
	DisputeReason      string              `bun:"dispute_reason,nullzero" json:"dispute_reason,omitempty"`
	// Status the order held when the dispute was opened, so admins can see
	// what they are ruling on.
	DisputedFrom    OrderStatus `bun:"disputed_from,nullzero" json:"disputed_from,omitempty"`
	Version         int64       `bun:"version" json:"version"`
	CreatedAt       time.Time   `bun:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `bun:"updated_at" json:"updated_at"`
	OfferAcceptedAt time.Time   `bun:"offer_accepted_at,nullzero" json:"offer_accepted_at,omitempty"`
	CompletedAt     time.Time   `bun:"completed_at,nullzero" json:"completed_at,omitempty"`
}

type OrderRequest struct {
	Brief              string          `json:"brief"`
	Budget             decimal.Decimal `json:"budget"`
	DirectorID         string          `json:"director_id"`
	PaymentModel       PaymentModel    `json:"payment_model"`
	IncludedRevisions  int             `json:"included_revisions"`
	MaxRevisions       int             `json:"max_revisions"`
	ProductionTimeDays int             `json:"production_time_days"`
}

type OfferRequest struct {
	Price              decimal.Decimal `json:"price"`
	ProductionTimeDays int             `json:"production_time_days"`
}

type OrderResponse struct {
	OrderID    string      `json:"order_id"`
	CustomerID string      `json:"customer_id"`
	DirectorID string      `json:"director_id,omitempty"`
	Status     OrderStatus `json:"status"`
}
