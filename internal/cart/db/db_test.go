package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	cartdb "ms-licensing/internal/cart/db"
	catalogdb "ms-licensing/internal/catalog/db"
	"ms-licensing/internal/errs"
	"ms-licensing/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*cartdb.DB, *catalogdb.DB, *bun.DB) {
	// Connect to an in-memory SQLite DB for testing
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	for _, model := range []interface{}{
		(*models.Music)(nil),
		(*models.Invoice)(nil),
		(*models.InvoiceItem)(nil),
	} {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(context.Background()); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	return &cartdb.DB{Bun: bunDB}, &catalogdb.DB{Bun: bunDB}, bunDB
}

func newInvoice(userID string) (models.Invoice, []models.InvoiceItem) {
	invoice := models.Invoice{
		InvoiceID: "INV-" + uuid.New().String(),
		UserID:    userID,
		Status:    models.InvoicePending,
		Subtotal:  decimal.NewFromInt(128),
		Discount:  decimal.Zero,
		Tax:       decimal.RequireFromString("24.32"),
		Total:     decimal.RequireFromString("152.32"),
		Currency:  "eur",
		CreatedAt: time.Now(),
	}
	items := []models.InvoiceItem{{
		ItemID:      uuid.New().String(),
		InvoiceID:   invoice.InvoiceID,
		Kind:        models.CartItemMusic,
		Tier:        models.TierCommercial,
		Description: "Neon Skyline (commercial license)",
		UnitPrice:   decimal.NewFromInt(128),
		Fulfillment: models.FulfillmentPending,
	}}
	return invoice, items
}

// Line items snapshot the price at checkout. Editing the referenced track
// afterwards must never rewrite an existing invoice.
func TestInvoiceSnapshotSurvivesPriceEdit(t *testing.T) {
	invoiceDB, musicDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	now := time.Now()
	track := models.Music{
		MusicID:         uuid.New().String(),
		DirectorID:      "director1",
		Title:           "Neon Skyline",
		Status:          models.MusicStatusActive,
		PriceCommercial: decimal.NewNullDecimal(decimal.NewFromInt(128)),
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	assert.NoError(t, musicDB.CreateMusic(track))

	invoice, items := newInvoice("user1")
	items[0].MusicID = track.MusicID
	assert.NoError(t, invoiceDB.CreateInvoice(invoice, items))

	track.PriceCommercial = decimal.NewNullDecimal(decimal.NewFromInt(999))
	track.UpdatedAt = time.Now()
	assert.NoError(t, musicDB.UpdateMusic(track))

	got, err := invoiceDB.GetInvoiceByID(invoice.InvoiceID)
	assert.NoError(t, err)
	assert.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.NewFromInt(128)))
	assert.True(t, got.Subtotal.Equal(decimal.NewFromInt(128)))
	assert.True(t, got.Total.Equal(decimal.RequireFromString("152.32")))
}

func TestSetItemFulfillment(t *testing.T) {
	invoiceDB, _, bunDB := setupTestDB(t)
	defer bunDB.Close()

	invoice, items := newInvoice("user1")
	assert.NoError(t, invoiceDB.CreateInvoice(invoice, items))

	assert.NoError(t, invoiceDB.SetItemFulfillment(items[0].ItemID, models.FulfillmentFulfilled))

	got, err := invoiceDB.GetInvoiceByID(invoice.InvoiceID)
	assert.NoError(t, err)
	assert.Equal(t, models.FulfillmentFulfilled, got.Items[0].Fulfillment)
	// The snapshot part of the row is untouched.
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.NewFromInt(128)))

	assert.ErrorIs(t, invoiceDB.SetItemFulfillment("missing", models.FulfillmentFailed), errs.ErrNotFound)
}

func TestSetInvoiceStatusLeavesTotalsFrozen(t *testing.T) {
	invoiceDB, _, bunDB := setupTestDB(t)
	defer bunDB.Close()

	invoice, items := newInvoice("user1")
	assert.NoError(t, invoiceDB.CreateInvoice(invoice, items))

	assert.NoError(t, invoiceDB.SetInvoiceStatus(invoice.InvoiceID, models.InvoicePaid, "txn123"))

	got, err := invoiceDB.GetInvoiceByID(invoice.InvoiceID)
	assert.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, got.Status)
	assert.Equal(t, "txn123", got.TxnID)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("152.32")))
	assert.False(t, got.PaidAt.IsZero())
}
