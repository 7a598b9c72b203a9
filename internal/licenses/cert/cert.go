package cert

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"ms-licensing/internal/models"

	"github.com/skip2/go-qrcode"
)

// Payload is what gets encrypted into the certificate QR. Verifiers with
// the shared secret can decrypt it and compare against the license record.
type Payload struct {
	LicenseID string             `json:"license_id"`
	MusicID   string             `json:"music_id"`
	UserID    string             `json:"user_id"`
	Tier      models.LicenseTier `json:"tier"`
	IssuedAt  time.Time          `json:"issued_at"`
}

type Generator struct {
	secret []byte
}

func NewGenerator(secret string) *Generator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &Generator{secret: hashed[:]}
}

// GenerateCertificate encodes an encrypted license payload as a QR PNG.
func (g *Generator) GenerateCertificate(license models.License) ([]byte, error) {
	data, err := json.Marshal(Payload{
		LicenseID: license.LicenseID,
		MusicID:   license.MusicID,
		UserID:    license.UserID,
		Tier:      license.Tier,
		IssuedAt:  license.IssuedAt,
	})
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, g.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

// Decode decrypts the string a certificate QR carries back into its
// payload. Garbage or a ciphertext under a different secret fails.
func (g *Generator) Decode(encrypted string) (*Payload, error) {
	data, err := decryptAES(encrypted, g.secret)
	if err != nil {
		return nil, err
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("certificate payload does not parse: %w", err)
	}
	if p.LicenseID == "" {
		return nil, fmt.Errorf("certificate payload missing license id")
	}
	return &p, nil
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

func decryptAES(encoded string, key []byte) ([]byte, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("certificate is not valid base64: %w", err)
	}
	if len(ciphertext) < aes.BlockSize {
		return nil, fmt.Errorf("certificate ciphertext too short")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv := ciphertext[:aes.BlockSize]
	data := make([]byte, len(ciphertext)-aes.BlockSize)
	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(data, ciphertext[aes.BlockSize:])

	return data, nil
}
