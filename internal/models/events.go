package models

import "time"

// Event payloads published to Kafka for the external notification sink.
// Delivery (email/push) is not handled here.

type OrderEvent struct {
	Type       string      `json:"type"`
	OrderID    string      `json:"order_id"`
	CustomerID string      `json:"customer_id"`
	DirectorID string      `json:"director_id,omitempty"`
	Status     OrderStatus `json:"status"`
	Reason     string      `json:"reason,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

type TicketEvent struct {
	Type      string       `json:"type"`
	TicketID  string       `json:"ticket_id"`
	UserID    string       `json:"user_id"`
	SenderID  string       `json:"sender_id,omitempty"`
	IsAdmin   bool         `json:"is_admin,omitempty"`
	Status    TicketStatus `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
}

type InvoiceEvent struct {
	Type      string        `json:"type"`
	InvoiceID string        `json:"invoice_id"`
	UserID    string        `json:"user_id"`
	Status    InvoiceStatus `json:"status"`
	Total     string        `json:"total"`
	Timestamp time.Time     `json:"timestamp"`
}

// RefundEvent asks the payment collaborator to refund a charged invoice
// line that can never be fulfilled.
type RefundEvent struct {
	Type      string    `json:"type"`
	InvoiceID string    `json:"invoice_id"`
	ItemID    string    `json:"item_id"`
	MusicID   string    `json:"music_id,omitempty"`
	UserID    string    `json:"user_id"`
	Amount    string    `json:"amount"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

type LicenseEvent struct {
	Type      string      `json:"type"`
	LicenseID string      `json:"license_id"`
	MusicID   string      `json:"music_id,omitempty"`
	OrderID   string      `json:"order_id,omitempty"`
	UserID    string      `json:"user_id"`
	Tier      LicenseTier `json:"tier"`
	Timestamp time.Time   `json:"timestamp"`
}

type MusicEvent struct {
	Type       string      `json:"type"`
	MusicID    string      `json:"music_id"`
	DirectorID string      `json:"director_id"`
	Status     MusicStatus `json:"status"`
	Reason     string      `json:"reason,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
