package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"ms-licensing/internal/catalog/db"
	"ms-licensing/internal/errs"
	"ms-licensing/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	// Connect to an in-memory SQLite DB for testing
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = bunDB.NewCreateTable().Model((*models.Music)(nil)).Exec(context.Background())
	if err != nil {
		t.Fatalf("Failed to create music table: %v", err)
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func newTrack(status models.MusicStatus) models.Music {
	now := time.Now()
	return models.Music{
		MusicID:         uuid.New().String(),
		DirectorID:      "director1",
		Title:           "Neon Skyline",
		Genre:           "synthwave",
		Mood:            "uplifting",
		UseCase:         "advertising",
		DurationSeconds: 184,
		AudioURL:        "https://cdn.example.com/audio/neon.mp3",
		Status:          status,
		PricePersonal:   decimal.NewNullDecimal(decimal.NewFromInt(10)),
		PriceCommercial: decimal.NewNullDecimal(decimal.NewFromInt(128)),
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestCreateAndGetMusic(t *testing.T) {
	musicDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	track := newTrack(models.MusicStatusPendingReview)
	assert.NoError(t, musicDB.CreateMusic(track))

	got, err := musicDB.GetMusicByID(track.MusicID)
	assert.NoError(t, err)
	assert.Equal(t, track.Title, got.Title)
	assert.Equal(t, models.MusicStatusPendingReview, got.Status)

	_, err = musicDB.GetMusicByID("missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSetStatusGuardsCurrentStatus(t *testing.T) {
	musicDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	track := newTrack(models.MusicStatusPendingReview)
	assert.NoError(t, musicDB.CreateMusic(track))

	err := musicDB.SetStatus(track.MusicID, models.MusicStatusPendingReview, models.MusicStatusActive, "")
	assert.NoError(t, err)

	// The track already left pending_review, so approving again fails.
	err = musicDB.SetStatus(track.MusicID, models.MusicStatusPendingReview, models.MusicStatusActive, "")
	assert.True(t, errs.IsInvalidState(err))

	got, err := musicDB.GetMusicByID(track.MusicID)
	assert.NoError(t, err)
	assert.Equal(t, models.MusicStatusActive, got.Status)
}

func TestSetStatusStoresRejectReason(t *testing.T) {
	musicDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	track := newTrack(models.MusicStatusPendingReview)
	assert.NoError(t, musicDB.CreateMusic(track))

	err := musicDB.SetStatus(track.MusicID, models.MusicStatusPendingReview, models.MusicStatusRejected, "low audio quality")
	assert.NoError(t, err)

	got, err := musicDB.GetMusicByID(track.MusicID)
	assert.NoError(t, err)
	assert.Equal(t, models.MusicStatusRejected, got.Status)
	assert.Equal(t, "low audio quality", got.RejectReason)
}

func TestMarkExclusiveSoldExactlyOnce(t *testing.T) {
	musicDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	track := newTrack(models.MusicStatusActive)
	assert.NoError(t, musicDB.CreateMusic(track))

	sold, err := musicDB.MarkExclusiveSold(track.MusicID)
	assert.NoError(t, err)
	assert.True(t, sold)

	// A second flip attempt sees zero affected rows.
	sold, err = musicDB.MarkExclusiveSold(track.MusicID)
	assert.NoError(t, err)
	assert.False(t, sold)

	got, err := musicDB.GetMusicByID(track.MusicID)
	assert.NoError(t, err)
	assert.Equal(t, models.MusicStatusExclusiveSold, got.Status)
}

func TestUpdateMusicVersionConflict(t *testing.T) {
	musicDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	track := newTrack(models.MusicStatusActive)
	assert.NoError(t, musicDB.CreateMusic(track))

	first := track
	first.Title = "Neon Skyline (Remaster)"
	assert.NoError(t, musicDB.UpdateMusic(first))

	stale := track
	stale.Title = "Old Title"
	err := musicDB.UpdateMusic(stale)
	assert.ErrorIs(t, err, errs.ErrVersionConflict)
}

func TestSearchActiveFilters(t *testing.T) {
	musicDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	active := newTrack(models.MusicStatusActive)
	pending := newTrack(models.MusicStatusPendingReview)
	other := newTrack(models.MusicStatusActive)
	other.Genre = "ambient"
	other.Title = "Quiet Harbour"

	assert.NoError(t, musicDB.CreateMusic(active))
	assert.NoError(t, musicDB.CreateMusic(pending))
	assert.NoError(t, musicDB.CreateMusic(other))

	// Status filter: pending tracks never show up.
	results, err := musicDB.SearchActive(models.MusicSearchFilter{})
	assert.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = musicDB.SearchActive(models.MusicSearchFilter{Genre: "ambient"})
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "Quiet Harbour", results[0].Title)

	results, err = musicDB.SearchActive(models.MusicSearchFilter{Query: "Neon"})
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, active.MusicID, results[0].MusicID)
}

func TestIncrementCounters(t *testing.T) {
	musicDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	track := newTrack(models.MusicStatusActive)
	assert.NoError(t, musicDB.CreateMusic(track))

	assert.NoError(t, musicDB.IncrementPlayCount(track.MusicID))
	assert.NoError(t, musicDB.IncrementPlayCount(track.MusicID))
	assert.NoError(t, musicDB.IncrementPurchaseCount(track.MusicID))

	got, err := musicDB.GetMusicByID(track.MusicID)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), got.PlayCount)
	assert.Equal(t, int64(1), got.PurchaseCount)
}
