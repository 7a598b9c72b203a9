package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type MusicStatus string

const (
	MusicStatusPendingReview MusicStatus = "pending_review"
	MusicStatusActive        MusicStatus = "active"
	MusicStatusInactive      MusicStatus = "inactive"
	MusicStatusExclusiveSold MusicStatus = "exclusive_sold"
	MusicStatusRejected      MusicStatus = "rejected"
	MusicStatusFlagged       MusicStatus = "flagged"
)

type LicenseTier string

const (
	TierPersonal   LicenseTier = "personal"
	TierCommercial LicenseTier = "commercial"
	TierEnterprise LicenseTier = "enterprise"
	TierExclusive  LicenseTier = "exclusive"
)

type Music struct {
	bun.BaseModel `bun:"table:music"`

	MusicID         string              `bun:"music_id,pk" json:"music_id"`
	DirectorID      string              `bun:"director_id" json:"director_id"`
	Title           string              `bun:"title" json:"title"`
	Genre           string              `bun:"genre" json:"genre"`
	Mood            string              `bun:"mood" json:"mood"`
	UseCase         string              `bun:"use_case" json:"use_case"`
	DurationSeconds int                 `bun:"duration_seconds" json:"duration_seconds"`
	AudioURL        string              `bun:"audio_url" json:"audio_url"`
	CoverURL        string              `bun:"cover_url,nullzero" json:"cover_url,omitempty"`
	Status          MusicStatus         `bun:"status" json:"status"`
	PricePersonal   decimal.NullDecimal `bun:"price_personal" json:"price_personal"`
	PriceCommercial decimal.NullDecimal `bun:"price_commercial" json:"price_commercial"`
	PriceEnterprise decimal.NullDecimal `bun:"price_enterprise" json:"price_enterprise"`
	PriceExclusive  decimal.NullDecimal `bun:"price_exclusive" json:"price_exclusive"`
	PlayCount       int64               `bun:"play_count" json:"play_count"`
	PurchaseCount   int64               `bun:"purchase_count" json:"purchase_count"`
	RejectReason    string              `bun:"reject_reason,nullzero" json:"reject_reason,omitempty"`
	Version         int64               `bun:"version" json:"version"`
	CreatedAt       time.Time           `bun:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `bun:"updated_at" json:"updated_at"`
}

// TierPrice returns the configured price for a tier. The second return is
// false when the director does not offer that tier.
func (m *Music) TierPrice(tier LicenseTier) (decimal.Decimal, bool) {
	var p decimal.NullDecimal
	switch tier {
	case TierPersonal:
		p = m.PricePersonal
	case TierCommercial:
		p = m.PriceCommercial
	case TierEnterprise:
		p = m.PriceEnterprise
	case TierExclusive:
		p = m.PriceExclusive
	default:
		return decimal.Zero, false
	}
	if !p.Valid {
		return decimal.Zero, false
	}
	return p.Decimal, true
}

type MusicRequest struct {
	Title           string              `json:"title"`
	Genre           string              `json:"genre"`
	Mood            string              `json:"mood"`
	UseCase         string              `json:"use_case"`
	DurationSeconds int                 `json:"duration_seconds"`
	AudioURL        string              `json:"audio_url"`
	CoverURL        string              `json:"cover_url"`
	PricePersonal   decimal.NullDecimal `json:"price_personal"`
	PriceCommercial decimal.NullDecimal `json:"price_commercial"`
	PriceEnterprise decimal.NullDecimal `json:"price_enterprise"`
	PriceExclusive  decimal.NullDecimal `json:"price_exclusive"`
}

type MusicSearchFilter struct {
	Genre   string
	Mood    string
	UseCase string
	Query   string
	Limit   int
	Offset  int
}
