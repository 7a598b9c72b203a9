package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"ms-licensing/internal/errs"
	"ms-licensing/internal/kafka"
	"ms-licensing/internal/logger"
	"ms-licensing/internal/models"
	"ms-licensing/internal/redislock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DBLayer interface {
	CreateMusic(music models.Music) error
	GetMusicByID(id string) (*models.Music, error)
	UpdateMusic(music models.Music) error
	SetStatus(id string, from, to models.MusicStatus, reason string) error
	MarkExclusiveSold(id string) (bool, error)
	IncrementPlayCount(id string) error
	IncrementPurchaseCount(id string) error
	SearchActive(filter models.MusicSearchFilter) ([]models.Music, error)
	ListByDirector(directorID string) ([]models.Music, error)
	ListPendingReview() ([]models.Music, error)
}

type ExclusiveGuard interface {
	Lock(key, owner string) (bool, error)
	Unlock(key, owner string) error
}

type KafkaPublisher interface {
	Publish(topic string, key string, value []byte) error
}

type CatalogService struct {
	DB     DBLayer
	Guard  ExclusiveGuard
	Kafka  KafkaPublisher
	Logger *logger.Logger
}

func NewCatalogService(db DBLayer, guard ExclusiveGuard, kafkaPub KafkaPublisher, log *logger.Logger) *CatalogService {
	return &CatalogService{DB: db, Guard: guard, Kafka: kafkaPub, Logger: log}
}

// ---------------- DIRECTOR OPS ----------------

// CreateMusic registers a new track. It enters pending_review and is not
// sellable until an admin approves it.
func (s *CatalogService) CreateMusic(directorID string, req models.MusicRequest) (*models.Music, error) {
	now := time.Now()
	music := models.Music{
		MusicID:         uuid.NewString(),
		DirectorID:      directorID,
		Title:           req.Title,
		Genre:           req.Genre,
		Mood:            req.Mood,
		UseCase:         req.UseCase,
		DurationSeconds: req.DurationSeconds,
		AudioURL:        req.AudioURL,
		CoverURL:        req.CoverURL,
		Status:          models.MusicStatusPendingReview,
		PricePersonal:   req.PricePersonal,
		PriceCommercial: req.PriceCommercial,
		PriceEnterprise: req.PriceEnterprise,
		PriceExclusive:  req.PriceExclusive,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.DB.CreateMusic(music); err != nil {
		return nil, fmt.Errorf("failed to create music: %w", err)
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Music %s created by director %s, pending review", music.MusicID, directorID))
	return &music, nil
}

// UpdateMusic lets the owning director edit metadata and prices. Existing
// invoices keep their snapshots, so price edits never rewrite history.
func (s *CatalogService) UpdateMusic(directorID, musicID string, req models.MusicRequest) (*models.Music, error) {
	music, err := s.DB.GetMusicByID(musicID)
	if err != nil {
		return nil, err
	}
	if music.DirectorID != directorID {
		return nil, errs.ErrUnauthorized
	}
	if music.Status == models.MusicStatusExclusiveSold {
		return nil, errs.ErrExclusiveAlreadySold
	}

	music.Title = req.Title
	music.Genre = req.Genre
	music.Mood = req.Mood
	music.UseCase = req.UseCase
	music.DurationSeconds = req.DurationSeconds
	music.AudioURL = req.AudioURL
	music.CoverURL = req.CoverURL
	music.PricePersonal = req.PricePersonal
	music.PriceCommercial = req.PriceCommercial
	music.PriceEnterprise = req.PriceEnterprise
	music.PriceExclusive = req.PriceExclusive
	music.UpdatedAt = time.Now()

	if err := s.DB.UpdateMusic(*music); err != nil {
		return nil, fmt.Errorf("failed to update music %s: %w", musicID, err)
	}
	music.Version++
	return music, nil
}

func (s *CatalogService) ListByDirector(directorID string) ([]models.Music, error) {
	return s.DB.ListByDirector(directorID)
}

// ---------------- BROWSE ----------------

func (s *CatalogService) GetMusic(id string) (*models.Music, error) {
	return s.DB.GetMusicByID(id)
}

func (s *CatalogService) Search(filter models.MusicSearchFilter) ([]models.Music, error) {
	return s.DB.SearchActive(filter)
}

func (s *CatalogService) RecordPlay(id string) error {
	return s.DB.IncrementPlayCount(id)
}

// ---------------- PRICING / PURCHASE ----------------

// ResolvePrice returns the unit price for a tier. Unknown or unconfigured
// tiers fail; a sold-out exclusive track can no longer be priced at all.
func (s *CatalogService) ResolvePrice(musicID string, tier models.LicenseTier) (decimal.Decimal, error) {
	music, err := s.DB.GetMusicByID(musicID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.resolvePrice(music, tier)
}

func (s *CatalogService) resolvePrice(music *models.Music, tier models.LicenseTier) (decimal.Decimal, error) {
	if music.Status == models.MusicStatusExclusiveSold {
		return decimal.Zero, errs.ErrExclusiveAlreadySold
	}
	if music.Status != models.MusicStatusActive {
		return decimal.Zero, errs.InvalidState("resolve_price", music.Status)
	}
	price, ok := music.TierPrice(tier)
	if !ok {
		return decimal.Zero, &errs.PricingError{MusicID: music.MusicID, Tier: string(tier)}
	}
	return price, nil
}

// PurchaseLicense validates a purchase and returns the price snapshot the
// invoice must carry. For the exclusive tier the status flip is a
// check-and-set: the redis guard keeps concurrent checkouts from both
// reaching the database, and the conditional UPDATE decides the winner even
// if they do.
func (s *CatalogService) PurchaseLicense(musicID string, tier models.LicenseTier, buyerID string) (decimal.Decimal, error) {
	music, err := s.DB.GetMusicByID(musicID)
	if err != nil {
		return decimal.Zero, err
	}

	price, err := s.resolvePrice(music, tier)
	if err != nil {
		return decimal.Zero, err
	}

	if tier == models.TierExclusive {
		key := redislock.ExclusiveKey(musicID)
		ok, err := s.Guard.Lock(key, buyerID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("redis guard error: %w", err)
		}
		if !ok {
			return decimal.Zero, errs.ErrExclusiveAlreadySold
		}

		sold, err := s.DB.MarkExclusiveSold(musicID)
		if err != nil {
			_ = s.Guard.Unlock(key, buyerID)
			return decimal.Zero, fmt.Errorf("failed to mark exclusive sold: %w", err)
		}
		if !sold {
			_ = s.Guard.Unlock(key, buyerID)
			return decimal.Zero, errs.ErrExclusiveAlreadySold
		}
	}

	if err := s.DB.IncrementPurchaseCount(musicID); err != nil {
		s.Logger.Error("CATALOG", fmt.Sprintf("Failed to bump purchase count for %s: %v", musicID, err))
	}

	return price, nil
}

// ---------------- MODERATION ----------------

func (s *CatalogService) Approve(adminID, musicID string) error {
	if err := s.DB.SetStatus(musicID, models.MusicStatusPendingReview, models.MusicStatusActive, ""); err != nil {
		return err
	}
	s.Logger.LogAudit(adminID, "music.approve", musicID, "pending_review -> active")
	s.publishModeration(musicID, models.MusicStatusActive, "")
	return nil
}

func (s *CatalogService) Reject(adminID, musicID, reason string) error {
	if err := s.DB.SetStatus(musicID, models.MusicStatusPendingReview, models.MusicStatusRejected, reason); err != nil {
		return err
	}
	s.Logger.LogAudit(adminID, "music.reject", musicID, reason)
	s.publishModeration(musicID, models.MusicStatusRejected, reason)
	return nil
}

func (s *CatalogService) Flag(adminID, musicID, reason string) error {
	if err := s.DB.SetStatus(musicID, models.MusicStatusActive, models.MusicStatusFlagged, ""); err != nil {
		return err
	}
	s.Logger.LogAudit(adminID, "music.flag", musicID, reason)
	s.publishModeration(musicID, models.MusicStatusFlagged, reason)
	return nil
}

func (s *CatalogService) Unflag(adminID, musicID string) error {
	if err := s.DB.SetStatus(musicID, models.MusicStatusFlagged, models.MusicStatusActive, ""); err != nil {
		return err
	}
	s.Logger.LogAudit(adminID, "music.unflag", musicID, "flagged -> active")
	s.publishModeration(musicID, models.MusicStatusActive, "")
	return nil
}

func (s *CatalogService) ListPendingReview() ([]models.Music, error) {
	return s.DB.ListPendingReview()
}

func (s *CatalogService) publishModeration(musicID string, status models.MusicStatus, reason string) {
	event := models.MusicEvent{
		Type:      "music_moderated",
		MusicID:   musicID,
		Status:    status,
		Reason:    reason,
		Timestamp: time.Now(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		s.Logger.Error("CATALOG", fmt.Sprintf("Failed to marshal moderation event: %v", err))
		return
	}
	if err := s.Kafka.Publish(kafka.TopicMusicModerated, musicID, value); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish moderation event for %s: %v", musicID, err))
	}
}
