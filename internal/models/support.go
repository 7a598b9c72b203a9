package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

type TicketType string

const (
	TicketTypeGeneral TicketType = "general"
	TicketTypeOrder   TicketType = "order"
	TicketTypePayment TicketType = "payment"
	TicketTypeDispute TicketType = "dispute"
)

type SupportTicket struct {
	bun.BaseModel `bun:"table:support_tickets"`

	TicketID  string       `bun:"ticket_id,pk" json:"ticket_id"`
	UserID    string       `bun:"user_id" json:"user_id"`
	OrderID   string       `bun:"order_id,nullzero" json:"order_id,omitempty"`
	Type      TicketType   `bun:"type" json:"type"`
	Subject   string       `bun:"subject" json:"subject"`
	Status    TicketStatus `bun:"status" json:"status"`
	CreatedAt time.Time    `bun:"created_at" json:"created_at"`
	UpdatedAt time.Time    `bun:"updated_at" json:"updated_at"`
}

// TicketMessage rows are append-only and never edited after creation.
type TicketMessage struct {
	bun.BaseModel `bun:"table:ticket_messages"`

	MessageID string    `bun:"message_id,pk" json:"message_id"`
	TicketID  string    `bun:"ticket_id" json:"ticket_id"`
	SenderID  string    `bun:"sender_id" json:"sender_id"`
	Content   string    `bun:"content" json:"content"`
	IsAdmin   bool      `bun:"is_admin" json:"is_admin"`
	SentAt    time.Time `bun:"sent_at" json:"sent_at"`
}

type TicketWithMessages struct {
	SupportTicket
	Messages []TicketMessage `json:"messages"`
}

type TicketRequest struct {
	OrderID string     `json:"order_id,omitempty"`
	Type    TicketType `json:"type"`
	Subject string     `json:"subject"`
	Message string     `json:"message"`
}

type TicketMessageRequest struct {
	Content string `json:"content"`
}
