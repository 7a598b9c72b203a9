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

func (d *DB) SavePayment(p models.Payment) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := d.Bun.NewInsert().
		Model(&p).
		On("CONFLICT (payment_id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(context.Background())
	return err
}

func (d *DB) SetPaymentStatus(paymentID string, status models.PaymentStatus, txnID string) error {
	q := d.Bun.NewUpdate().
		Model((*models.Payment)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("payment_id = ?", paymentID)
	if txnID != "" {
		q = q.Set("txn_id = ?", txnID)
	}
	res, err := q.Exec(context.Background())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (d *DB) GetPaymentByID(paymentID string) (*models.Payment, error) {
	var p models.Payment
	err := d.Bun.NewSelect().
		Model(&p).
		Where("payment_id = ?", paymentID).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *DB) ListPaymentsByInvoice(invoiceID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := d.Bun.NewSelect().
		Model(&payments).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return payments, nil
}
