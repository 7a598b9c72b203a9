package licenses

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ms-licensing/internal/errs"
	"ms-licensing/internal/kafka"
	"ms-licensing/internal/licenses/cert"
	"ms-licensing/internal/logger"
	"ms-licensing/internal/models"
	"ms-licensing/internal/utils"

	"github.com/shopspring/decimal"
)

type DBLayer interface {
	CreateLicense(license models.License) error
	GetLicenseByID(licenseID string) (*models.License, error)
	GetLicensesByUser(userID string) ([]models.License, error)
	GetLicensesByMusic(musicID string) ([]models.License, error)
	RevokeLicense(licenseID string) error
	CountIssued() (int, error)
}

type CertGenerator interface {
	GenerateCertificate(license models.License) ([]byte, error)
	Decode(encrypted string) (*cert.Payload, error)
}

type KafkaPublisher interface {
	Publish(topic string, key string, value []byte) error
}

type LicenseService struct {
	DB     DBLayer
	Cert   CertGenerator
	Kafka  KafkaPublisher
	Logger *logger.Logger
}

func NewLicenseService(db DBLayer, cert CertGenerator, kafkaPub KafkaPublisher, log *logger.Logger) *LicenseService {
	return &LicenseService{DB: db, Cert: cert, Kafka: kafkaPub, Logger: log}
}

// IssueForPurchase creates the license for a catalog tier bought through
// checkout. Tier and price are snapshotted from the invoice line.
func (s *LicenseService) IssueForPurchase(userID, musicID, invoiceID string, tier models.LicenseTier, price decimal.Decimal) (*models.License, error) {
	license := models.License{
		LicenseID:       utils.NewID(),
		MusicID:         musicID,
		UserID:          userID,
		InvoiceID:       invoiceID,
		Tier:            tier,
		PriceAtPurchase: price,
		DownloadURL:     fmt.Sprintf("/downloads/music/%s", musicID),
		IssuedAt:        time.Now(),
	}
	if err := s.issue(&license); err != nil {
		return nil, err
	}
	return &license, nil
}

// IssueForOrder creates the license for a finished commission. The buyer
// owns the delivered track outright, so the tier is exclusive.
func (s *LicenseService) IssueForOrder(order models.Order) (string, error) {
	price := decimal.Zero
	if order.OfferedPrice.Valid {
		price = order.OfferedPrice.Decimal
	}

	license := models.License{
		LicenseID:       utils.NewID(),
		UserID:          order.CustomerID,
		OrderID:         order.OrderID,
		Tier:            models.TierExclusive,
		PriceAtPurchase: price,
		DownloadURL:     order.FinalMusicURL,
		IssuedAt:        time.Now(),
	}
	if err := s.issue(&license); err != nil {
		return "", err
	}
	return license.LicenseID, nil
}

func (s *LicenseService) issue(license *models.License) error {
	certBytes, err := s.Cert.GenerateCertificate(*license)
	if err != nil {
		return fmt.Errorf("failed to generate certificate: %w", err)
	}
	license.Certificate = certBytes

	if err := s.DB.CreateLicense(*license); err != nil {
		s.Logger.Error("LICENSE", fmt.Sprintf("Failed to store license %s: %v", license.LicenseID, err))
		return err
	}

	event := models.LicenseEvent{
		Type:      "license_issued",
		LicenseID: license.LicenseID,
		MusicID:   license.MusicID,
		OrderID:   license.OrderID,
		UserID:    license.UserID,
		Tier:      license.Tier,
		Timestamp: license.IssuedAt,
	}
	payload, err := json.Marshal(event)
	if err == nil {
		if err := s.Kafka.Publish(kafka.TopicLicenseIssued, license.LicenseID, payload); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish license event: %v", err))
		}
	}

	s.Logger.Info("LICENSE", fmt.Sprintf("Issued %s license %s to user %s", license.Tier, license.LicenseID, license.UserID))
	return nil
}

// GetLicense returns the full license, certificate included. Only the
// owner or an admin may read it.
func (s *LicenseService) GetLicense(licenseID, requesterID string, isAdmin bool) (*models.License, error) {
	license, err := s.DB.GetLicenseByID(licenseID)
	if err != nil {
		return nil, err
	}
	if license.UserID != requesterID && !isAdmin {
		return nil, errs.ErrUnauthorized
	}
	return license, nil
}

func (s *LicenseService) ListByUser(userID string) ([]models.LicenseSummary, error) {
	licenses, err := s.DB.GetLicensesByUser(userID)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.LicenseSummary, 0, len(licenses))
	for i := range licenses {
		summaries = append(summaries, licenses[i].ToSummary())
	}
	return summaries, nil
}

func (s *LicenseService) ListByMusic(musicID string) ([]models.LicenseSummary, error) {
	licenses, err := s.DB.GetLicensesByMusic(musicID)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.LicenseSummary, 0, len(licenses))
	for i := range licenses {
		summaries = append(summaries, licenses[i].ToSummary())
	}
	return summaries, nil
}

// VerifyCertificate checks a scanned QR payload against the license store.
// A certificate that does not decode or does not match its record is
// reported invalid, not an error; errors mean the check itself failed.
func (s *LicenseService) VerifyCertificate(encrypted string) (*models.CertificateVerification, error) {
	payload, err := s.Cert.Decode(encrypted)
	if err != nil {
		return &models.CertificateVerification{Valid: false, Reason: "certificate does not decode"}, nil
	}

	license, err := s.DB.GetLicenseByID(payload.LicenseID)
	if errors.Is(err, errs.ErrNotFound) {
		return &models.CertificateVerification{Valid: false, Reason: "no such license"}, nil
	}
	if err != nil {
		return nil, err
	}

	if license.UserID != payload.UserID || license.MusicID != payload.MusicID || license.Tier != payload.Tier {
		return &models.CertificateVerification{Valid: false, Reason: "certificate does not match license record"}, nil
	}

	result := &models.CertificateVerification{
		Valid:     !license.Revoked,
		LicenseID: license.LicenseID,
		MusicID:   license.MusicID,
		Tier:      license.Tier,
		IssuedAt:  license.IssuedAt,
		Revoked:   license.Revoked,
	}
	if license.Revoked {
		result.Reason = "license revoked"
	}
	return result, nil
}

func (s *LicenseService) Revoke(adminID, licenseID string) error {
	if err := s.DB.RevokeLicense(licenseID); err != nil {
		return err
	}
	s.Logger.LogAudit(adminID, "license_revoked", licenseID, "")
	return nil
}

// CountIssued returns how many active licenses exist, for the public
// storefront counter.
func (s *LicenseService) CountIssued() (int, error) {
	return s.DB.CountIssued()
}
