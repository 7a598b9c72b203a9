package cert_test

import (
	"bytes"
	"testing"
	"time"

	"ms-licensing/internal/licenses/cert"
	"ms-licensing/internal/models"

	"github.com/stretchr/testify/assert"
)

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47}

func TestGenerateCertificateProducesPNG(t *testing.T) {
	gen := cert.NewGenerator("test-secret")

	img, err := gen.GenerateCertificate(models.License{
		LicenseID: "license1",
		MusicID:   "music1",
		UserID:    "user1",
		Tier:      models.TierCommercial,
		IssuedAt:  time.Now(),
	})

	assert.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic), "certificate should be a PNG image")
}

func TestGenerateCertificateAnySecretLength(t *testing.T) {
	// Secrets are hashed to a fixed AES key size, so arbitrary strings work.
	for _, secret := range []string{"", "short", "a-much-longer-secret-than-thirty-two-bytes-total"} {
		gen := cert.NewGenerator(secret)
		img, err := gen.GenerateCertificate(models.License{LicenseID: "license1", IssuedAt: time.Now()})
		assert.NoError(t, err)
		assert.NotEmpty(t, img)
	}
}

func TestGenerateCertificateUniquePerCall(t *testing.T) {
	gen := cert.NewGenerator("test-secret")
	license := models.License{LicenseID: "license1", IssuedAt: time.Now()}

	first, err := gen.GenerateCertificate(license)
	assert.NoError(t, err)
	second, err := gen.GenerateCertificate(license)
	assert.NoError(t, err)

	// A fresh IV per call means identical licenses still yield distinct
	// ciphertexts, so the images differ.
	assert.False(t, bytes.Equal(first, second))
}
