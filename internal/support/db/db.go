package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ms-licensing/internal/errs"
	"ms-licensing/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateTicket(ticket models.SupportTicket) error {
	_, err := d.Bun.NewInsert().Model(&ticket).Exec(context.Background())
	return err
}

func (d *DB) GetTicketByID(ticketID string) (*models.SupportTicket, error) {
	var ticket models.SupportTicket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("ticket_id = ?", ticketID).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// SetTicketStatus moves a ticket from one status to another. The from
// guard keeps two concurrent transitions from both landing.
func (d *DB) SetTicketStatus(ticketID string, from, to models.TicketStatus) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.SupportTicket)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now()).
		Where("ticket_id = ?", ticketID).
		Where("status = ?", from).
		Exec(context.Background())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.InvalidState("set_ticket_status", from)
	}
	return nil
}

func (d *DB) GetTicketsByUser(userID string) ([]models.SupportTicket, error) {
	var tickets []models.SupportTicket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (d *DB) GetTicketsByStatus(status models.TicketStatus) ([]models.SupportTicket, error) {
	var tickets []models.SupportTicket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("status = ?", status).
		Order("updated_at ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (d *DB) AddMessage(msg models.TicketMessage) error {
	_, err := d.Bun.NewInsert().Model(&msg).Exec(context.Background())
	if err != nil {
		return err
	}
	_, err = d.Bun.NewUpdate().
		Model((*models.SupportTicket)(nil)).
		Set("updated_at = ?", msg.SentAt).
		Where("ticket_id = ?", msg.TicketID).
		Exec(context.Background())
	return err
}

func (d *DB) GetMessages(ticketID string) ([]models.TicketMessage, error) {
	var msgs []models.TicketMessage
	err := d.Bun.NewSelect().
		Model(&msgs).
		Where("ticket_id = ?", ticketID).
		Order("sent_at ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
