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

// ---------------- MUSIC ----------------

func (d *DB) CreateMusic(music models.Music) error {
	_, err := d.Bun.NewInsert().Model(&music).Exec(context.Background())
	return err
}

func (d *DB) GetMusicByID(id string) (*models.Music, error) {
	var music models.Music
	err := d.Bun.NewSelect().
		Model(&music).
		Where("music_id = ?", id).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &music, nil
}

// UpdateMusic writes the mutable fields, guarded by the optimistic version
// counter. Returns ErrVersionConflict when a concurrent writer got there
// first.
func (d *DB) UpdateMusic(music models.Music) error {
	res, err := d.Bun.NewUpdate().
		Model(&music).
		Column("title", "genre", "mood", "use_case", "duration_seconds",
			"audio_url", "cover_url", "price_personal", "price_commercial",
			"price_enterprise", "price_exclusive", "updated_at").
		Set("version = version + 1").
		Where("music_id = ? AND version = ?", music.MusicID, music.Version).
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

// SetStatus is used by moderation transitions. The expected current status
// is part of the WHERE clause so transitions never race each other.
func (d *DB) SetStatus(id string, from, to models.MusicStatus, reason string) error {
	q := d.Bun.NewUpdate().
		Model((*models.Music)(nil)).
		Set("status = ?", to).
		Set("updated_at = CURRENT_TIMESTAMP").
		Set("version = version + 1").
		Where("music_id = ? AND status = ?", id, from)
	if reason != "" {
		q = q.Set("reject_reason = ?", reason)
	}
	res, err := q.Exec(context.Background())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errs.InvalidState(string(to), from)
	}
	return nil
}

// MarkExclusiveSold atomically flips an active track to exclusive_sold.
// Exactly one caller can win; everyone else sees zero rows affected.
func (d *DB) MarkExclusiveSold(id string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Music)(nil)).
		Set("status = ?", models.MusicStatusExclusiveSold).
		Set("updated_at = CURRENT_TIMESTAMP").
		Set("version = version + 1").
		Where("music_id = ? AND status = ?", id, models.MusicStatusActive).
		Exec(context.Background())
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (d *DB) IncrementPlayCount(id string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Music)(nil)).
		Set("play_count = play_count + 1").
		Where("music_id = ?", id).
		Exec(context.Background())
	return err
}

func (d *DB) IncrementPurchaseCount(id string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Music)(nil)).
		Set("purchase_count = purchase_count + 1").
		Where("music_id = ?", id).
		Exec(context.Background())
	return err
}

// ---------------- LISTINGS ----------------

func (d *DB) SearchActive(filter models.MusicSearchFilter) ([]models.Music, error) {
	var music []models.Music
	q := d.Bun.NewSelect().
		Model(&music).
		Where("status = ?", models.MusicStatusActive)

	if filter.Genre != "" {
		q = q.Where("genre = ?", filter.Genre)
	}
	if filter.Mood != "" {
		q = q.Where("mood = ?", filter.Mood)
	}
	if filter.UseCase != "" {
		q = q.Where("use_case = ?", filter.UseCase)
	}
	if filter.Query != "" {
		q = q.Where("title LIKE ?", "%"+filter.Query+"%")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	err := q.Order("created_at DESC").Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return music, nil
}

func (d *DB) ListByDirector(directorID string) ([]models.Music, error) {
	var music []models.Music
	err := d.Bun.NewSelect().
		Model(&music).
		Where("director_id = ?", directorID).
		Order("created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return music, nil
}

func (d *DB) ListPendingReview() ([]models.Music, error) {
	var music []models.Music
	err := d.Bun.NewSelect().
		Model(&music).
		Where("status = ?", models.MusicStatusPendingReview).
		Order("created_at ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return music, nil
}
