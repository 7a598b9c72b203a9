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

func (d *DB) CreateLicense(license models.License) error {
	_, err := d.Bun.NewInsert().Model(&license).Exec(context.Background())
	return err
}

func (d *DB) GetLicenseByID(licenseID string) (*models.License, error) {
	var license models.License
	err := d.Bun.NewSelect().
		Model(&license).
		Where("license_id = ?", licenseID).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &license, nil
}

func (d *DB) GetLicensesByUser(userID string) ([]models.License, error) {
	var licenses []models.License
	err := d.Bun.NewSelect().
		Model(&licenses).
		Where("user_id = ?", userID).
		Order("issued_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return licenses, nil
}

func (d *DB) GetLicensesByMusic(musicID string) ([]models.License, error) {
	var licenses []models.License
	err := d.Bun.NewSelect().
		Model(&licenses).
		Where("music_id = ?", musicID).
		Order("issued_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return licenses, nil
}

// RevokeLicense flips the revoked flag once. Already-revoked rows are
// left untouched so RevokedAt keeps the original timestamp.
func (d *DB) RevokeLicense(licenseID string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.License)(nil)).
		Set("revoked = ?", true).
		Set("revoked_at = ?", time.Now()).
		Where("license_id = ?", licenseID).
		Where("revoked = ?", false).
		Exec(context.Background())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (d *DB) CountIssued() (int, error) {
	return d.Bun.NewSelect().
		Model((*models.License)(nil)).
		Where("revoked = ?", false).
		Count(context.Background())
}
