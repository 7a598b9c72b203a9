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

// ---------------- ORDERS ----------------

func (d *DB) CreateOrder(order models.Order) error {
	_, err := d.Bun.NewInsert().Model(&order).Exec(context.Background())
	return err
}

func (d *DB) GetOrderByID(id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("order_id = ?", id).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrder writes every mutable field, guarded by the optimistic version
// counter carried on the model. Lost updates surface as ErrVersionConflict
// instead of silently clobbering status or used_revisions.
func (d *DB) UpdateOrder(order models.Order) error {
	res, err := d.Bun.NewUpdate().
		Model(&order).
		Column("director_id", "status", "offered_price", "production_time_days",
			"included_revisions", "max_revisions", "used_revisions", "revision_note",
			"final_music_url", "final_music_id", "cancel_reason", "dispute_reason",
			"disputed_from", "updated_at", "offer_accepted_at", "completed_at").
		Set("version = version + 1").
		Where("order_id = ? AND version = ?", order.OrderID, order.Version).
		Exec(context.Background())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errs.ErrVersionConflict
	}
	return nil
}

// ---------------- LISTINGS ----------------

func (d *DB) GetOrdersByCustomer(customerID string) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *DB) GetOrdersByDirector(directorID string) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("director_id = ?", directorID).
		Order("created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOpenOrdersForDirectors lists unassigned commissions directors can bid
// on.
func (d *DB) GetOpenOrders() ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("status = ?", models.OrderStatusPending).
		Order("created_at ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *DB) GetOrdersByStatus(status models.OrderStatus) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("status = ?", status).
		Order("updated_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return orders, nil
}
