package db

import (
	"context"
	"database/sql"
	"errors"

	"ms-licensing/internal/errs"
	"ms-licensing/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- CART ITEMS ----------------

func (d *DB) AddItem(item models.CartItem) error {
	_, err := d.Bun.NewInsert().Model(&item).Exec(context.Background())
	return err
}

func (d *DB) GetItemsByUser(userID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := d.Bun.NewSelect().
		Model(&items).
		Where("user_id = ?", userID).
		Order("added_at ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return items, nil
}

// RemoveItem deletes a single line, scoped to the owner so one user can
// never remove another user's cart row.
func (d *DB) RemoveItem(userID, itemID string) error {
	res, err := d.Bun.NewDelete().
		Model((*models.CartItem)(nil)).
		Where("cart_item_id = ? AND user_id = ?", itemID, userID).
		Exec(context.Background())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (d *DB) ClearCart(userID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.CartItem)(nil)).
		Where("user_id = ?", userID).
		Exec(context.Background())
	return err
}

// ---------------- COUPONS ----------------

func (d *DB) GetCoupon(code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := d.Bun.NewSelect().
		Model(&coupon).
		Where("code = ? AND active = ?", code, true).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// ---------------- INVOICES ----------------

// CreateInvoice inserts the invoice and its line items in one transaction.
// Rows are never updated afterwards except for status/txn bookkeeping.
func (d *DB) CreateInvoice(invoice models.Invoice, items []models.InvoiceItem) error {
	ctx := context.Background()
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&invoice).Exec(ctx); err != nil {
			return err
		}
		if len(items) > 0 {
			if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *DB) GetInvoiceByID(id string) (*models.InvoiceWithItems, error) {
	var invoice models.Invoice
	err := d.Bun.NewSelect().
		Model(&invoice).
		Where("invoice_id = ?", id).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var items []models.InvoiceItem
	err = d.Bun.NewSelect().
		Model(&items).
		Where("invoice_id = ?", id).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}

	return &models.InvoiceWithItems{Invoice: invoice, Items: items}, nil
}

func (d *DB) ListInvoicesByUser(userID string) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := d.Bun.NewSelect().
		Model(&invoices).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// SetItemFulfillment records the per-line fulfillment outcome. Price and
// tier snapshots stay frozen.
func (d *DB) SetItemFulfillment(itemID string, status models.FulfillmentStatus) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.InvoiceItem)(nil)).
		Set("fulfillment = ?", status).
		Where("item_id = ?", itemID).
		Exec(context.Background())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetInvoiceStatus records the charge outcome. Totals and line items stay
// frozen.
func (d *DB) SetInvoiceStatus(id string, status models.InvoiceStatus, txnID string) error {
	q := d.Bun.NewUpdate().
		Model((*models.Invoice)(nil)).
		Set("status = ?", status).
		Where("invoice_id = ?", id)
	if txnID != "" {
		q = q.Set("txn_id = ?", txnID)
	}
	if status == models.InvoicePaid {
		q = q.Set("paid_at = CURRENT_TIMESTAMP")
	}
	_, err := q.Exec(context.Background())
	return err
}
