package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// License is an issued usage grant for a music track. Tier and price are
// snapshots taken at purchase time. Certificate holds an encrypted QR image
// that buyers can attach to productions as proof of licensing.
type License struct {
	bun.BaseModel `bun:"table:licenses"`

	LicenseID       string          `bun:"license_id,pk" json:"license_id"`
	MusicID         string          `bun:"music_id" json:"music_id"`
	UserID          string          `bun:"user_id" json:"user_id"`
	InvoiceID       string          `bun:"invoice_id,nullzero" json:"invoice_id,omitempty"`
	OrderID         string          `bun:"order_id,nullzero" json:"order_id,omitempty"`
	Tier            LicenseTier     `bun:"tier" json:"tier"`
	PriceAtPurchase decimal.Decimal `bun:"price_at_purchase" json:"price_at_purchase"`
	DownloadURL     string          `bun:"download_url" json:"download_url"`
	Certificate     []byte          `bun:"certificate" json:"certificate,omitempty"`
	IssuedAt        time.Time       `bun:"issued_at" json:"issued_at"`
	Revoked         bool            `bun:"revoked" json:"revoked"`
	RevokedAt       time.Time       `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`
}

// LicenseSummary is the listing shape without the certificate bytes.
type LicenseSummary struct {
	LicenseID       string          `json:"license_id"`
	MusicID         string          `json:"music_id"`
	Tier            LicenseTier     `json:"tier"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	DownloadURL     string          `json:"download_url"`
	IssuedAt        time.Time       `json:"issued_at"`
	Revoked         bool            `json:"revoked"`
}

func (l *License) ToSummary() LicenseSummary {
	return LicenseSummary{
		LicenseID:       l.LicenseID,
		MusicID:         l.MusicID,
		Tier:            l.Tier,
		PriceAtPurchase: l.PriceAtPurchase,
		DownloadURL:     l.DownloadURL,
		IssuedAt:        l.IssuedAt,
		Revoked:         l.Revoked,
	}
}

// CertificateVerification is the answer to a certificate check. Reason is
// set only when the certificate is not valid.
type CertificateVerification struct {
	Valid     bool        `json:"valid"`
	Reason    string      `json:"reason,omitempty"`
	LicenseID string      `json:"license_id,omitempty"`
	MusicID   string      `json:"music_id,omitempty"`
	Tier      LicenseTier `json:"tier,omitempty"`
	IssuedAt  time.Time   `json:"issued_at,omitempty"`
	Revoked   bool        `json:"revoked,omitempty"`
}
