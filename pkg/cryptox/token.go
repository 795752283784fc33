package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// SecretSize is the byte length of generated signing secrets.
const SecretSize = 32

// VerificationCodeLength is the number of characters in an emailed code.
const VerificationCodeLength = 8

// GenerateToken returns size random bytes, base64url-encoded without padding.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewVerificationCode returns a short uppercase code that is easy to copy
// out of an email: the leading hex digits of a random UUID.
func NewVerificationCode() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("cryptox: verification code: %w", err)
	}
	digits := strings.ReplaceAll(id.String(), "-", "")
	return strings.ToUpper(digits[:VerificationCodeLength]), nil
}

// FingerprintToken is the stored form of a code: base64url SHA-256, 43 chars.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
