package security

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/bazario-app/bazario-backend/pkg/config"
)

// ErrInvalidCiphertext signals a malformed or tampered sealed string.
var ErrInvalidCiphertext = fmt.Errorf("invalid sealed value")

// Sealer encrypts merchant credentials at rest with XChaCha20-Poly1305.
type Sealer struct {
	key []byte
}

// NewSealer builds a Sealer from the hex-encoded 32-byte secrets key.
func NewSealer(cfg config.SecurityConfig) (*Sealer, error) {
	key, err := hex.DecodeString(strings.TrimSpace(cfg.SecretsKey))
	if err != nil {
		return nil, fmt.Errorf("decode secrets key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("secrets key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Sealer{key: key}, nil
}

// SealString encrypts plaintext and returns a self-describing sealed string.
func (s *Sealer) SealString(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("plaintext cannot be empty")
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)

	encNonce := base64.RawStdEncoding.EncodeToString(nonce)
	encSealed := base64.RawStdEncoding.EncodeToString(sealed)

	return fmt.Sprintf("$xchacha20$v=1$%s$%s", encNonce, encSealed), nil
}

// OpenString decrypts a sealed string produced by SealString.
func (s *Sealer) OpenString(encoded string) (string, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[1] != "xchacha20" || parts[2] != "v=1" {
		return "", ErrInvalidCiphertext
	}

	nonce, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	sealed, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	if len(nonce) != aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plaintext), nil
}

// IsSealed reports whether the value carries the sealed-string envelope.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, "$xchacha20$v=1$")
}

// Mask returns a redacted rendering for API echoes, keeping the last four
// characters of the original credential when it is long enough.
func Mask(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
