package analytics

import (
	"context"

	"ms-licensing/internal/models"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Service aggregates sales data from license and order snapshots. All
// amounts come from price_at_purchase / offered_price columns, never from
// the live catalog, so historical numbers do not drift when prices change.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// DirectorSummary is the rollup a director sees for their catalog.
type DirectorSummary struct {
	DirectorID      string          `json:"director_id"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	LicensesSold    int             `json:"licenses_sold"`
	SalesByTier     []TierSales     `json:"sales_by_tier"`
	DailySales      []DailySales    `json:"daily_sales"`
	CommissionTotal decimal.Decimal `json:"commission_total"`
}

type TierSales struct {
	Tier         models.LicenseTier `json:"tier" bun:"tier"`
	LicensesSold int                `json:"licenses_sold" bun:"licenses_sold"`
	Revenue      decimal.Decimal    `json:"revenue" bun:"revenue"`
}

type DailySales struct {
	Date         string          `json:"date" bun:"sales_date"`
	LicensesSold int             `json:"licenses_sold" bun:"licenses_sold"`
	Revenue      decimal.Decimal `json:"revenue" bun:"revenue"`
}

type TopMusic struct {
	MusicID       string `json:"music_id" bun:"music_id"`
	Title         string `json:"title" bun:"title"`
	PlayCount     int    `json:"play_count" bun:"play_count"`
	PurchaseCount int    `json:"purchase_count" bun:"purchase_count"`
}

type StatusCount struct {
	Status models.OrderStatus `json:"status" bun:"status"`
	Count  int                `json:"count" bun:"count"`
}

// PlatformSummary is the admin-wide view.
type PlatformSummary struct {
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	LicensesIssued int             `json:"licenses_issued"`
	InvoicesPaid   int             `json:"invoices_paid"`
	OrdersByStatus []StatusCount   `json:"orders_by_status"`
}

func (s *Service) GetDirectorSummary(ctx context.Context, directorID string) (*DirectorSummary, error) {
	summary := &DirectorSummary{
		DirectorID:      directorID,
		TotalRevenue:    decimal.Zero,
		CommissionTotal: decimal.Zero,
	}

	type totalsRaw struct {
		Revenue      decimal.NullDecimal `bun:"revenue"`
		LicensesSold int                 `bun:"licenses_sold"`
	}
	var totals totalsRaw
	err := s.db.NewRaw(`
		SELECT
			SUM(l.price_at_purchase) AS revenue,
			COUNT(l.license_id) AS licenses_sold
		FROM licenses l
		JOIN music m ON m.music_id = l.music_id
		WHERE m.director_id = ? AND l.revoked = ?
	`, directorID, false).Scan(ctx, &totals)
	if err != nil {
		return nil, err
	}
	if totals.Revenue.Valid {
		summary.TotalRevenue = totals.Revenue.Decimal
	}
	summary.LicensesSold = totals.LicensesSold

	err = s.db.NewRaw(`
		SELECT
			l.tier AS tier,
			COUNT(l.license_id) AS licenses_sold,
			SUM(l.price_at_purchase) AS revenue
		FROM licenses l
		JOIN music m ON m.music_id = l.music_id
		WHERE m.director_id = ? AND l.revoked = ?
		GROUP BY l.tier
		ORDER BY l.tier
	`, directorID, false).Scan(ctx, &summary.SalesByTier)
	if err != nil {
		return nil, err
	}

	err = s.db.NewRaw(`
		SELECT
			DATE(l.issued_at) AS sales_date,
			COUNT(l.license_id) AS licenses_sold,
			SUM(l.price_at_purchase) AS revenue
		FROM licenses l
		JOIN music m ON m.music_id = l.music_id
		WHERE m.director_id = ? AND l.revoked = ?
		GROUP BY DATE(l.issued_at)
		ORDER BY sales_date
	`, directorID, false).Scan(ctx, &summary.DailySales)
	if err != nil {
		return nil, err
	}

	// Completed commissions are paid at the offered price.
	type commissionRaw struct {
		Total decimal.NullDecimal `bun:"total"`
	}
	var commissions commissionRaw
	err = s.db.NewRaw(`
		SELECT SUM(offered_price) AS total
		FROM orders
		WHERE director_id = ? AND status = ?
	`, directorID, models.OrderStatusCompleted).Scan(ctx, &commissions)
	if err != nil {
		return nil, err
	}
	if commissions.Total.Valid {
		summary.CommissionTotal = commissions.Total.Decimal
	}

	return summary, nil
}

// GetTopMusic lists a director's tracks by purchase count.
func (s *Service) GetTopMusic(ctx context.Context, directorID string, limit int) ([]TopMusic, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var top []TopMusic
	err := s.db.NewRaw(`
		SELECT music_id, title, play_count, purchase_count
		FROM music
		WHERE director_id = ?
		ORDER BY purchase_count DESC, play_count DESC
		LIMIT ?
	`, directorID, limit).Scan(ctx, &top)
	if err != nil {
		return nil, err
	}
	return top, nil
}

// GetDirectorOrderCounts breaks down a director's commissions by status.
func (s *Service) GetDirectorOrderCounts(ctx context.Context, directorID string) ([]StatusCount, error) {
	var counts []StatusCount
	err := s.db.NewRaw(`
		SELECT status, COUNT(order_id) AS count
		FROM orders
		WHERE director_id = ?
		GROUP BY status
		ORDER BY status
	`, directorID).Scan(ctx, &counts)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *Service) GetPlatformSummary(ctx context.Context) (*PlatformSummary, error) {
	summary := &PlatformSummary{TotalRevenue: decimal.Zero}

	type totalsRaw struct {
		Revenue      decimal.NullDecimal `bun:"revenue"`
		InvoicesPaid int                 `bun:"invoices_paid"`
	}
	var totals totalsRaw
	err := s.db.NewRaw(`
		SELECT SUM(total) AS revenue, COUNT(invoice_id) AS invoices_paid
		FROM invoices
		WHERE status = ?
	`, models.InvoicePaid).Scan(ctx, &totals)
	if err != nil {
		return nil, err
	}
	if totals.Revenue.Valid {
		summary.TotalRevenue = totals.Revenue.Decimal
	}
	summary.InvoicesPaid = totals.InvoicesPaid

	licenseCount, err := s.db.NewSelect().
		Model((*models.License)(nil)).
		Where("revoked = ?", false).
		Count(ctx)
	if err != nil {
		return nil, err
	}
	summary.LicensesIssued = licenseCount

	err = s.db.NewRaw(`
		SELECT status, COUNT(order_id) AS count
		FROM orders
		GROUP BY status
		ORDER BY status
	`).Scan(ctx, &summary.OrdersByStatus)
	if err != nil {
		return nil, err
	}

	return summary, nil
}
