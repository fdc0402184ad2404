package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ParseAPIKey splits an API key into key ID and random part.
// Format: jf-v1-<key_id>-<random_data>, key_id 32 hex chars (UUIDv7 without
// hyphens) and random_data 64 hex chars.
func ParseAPIKey(key string) (keyID, randomData string, err error) {
	parts := strings.Split(key, "-")
	if len(parts) != 4 || parts[0] != "jf" || parts[1] != "v1" {
		return "", "", ErrInvalidKeyFormat
	}

	keyID, randomData = parts[2], parts[3]
	if len(keyID) != 32 || len(randomData) != 64 {
		return "", "", ErrInvalidKeyFormat
	}
	for _, c := range keyID + randomData {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", "", ErrInvalidKeyFormat
		}
	}
	return keyID, randomData, nil
}

// ComputeHMAC computes the HMAC-SHA256 of apiKey under secret.
func ComputeHMAC(secret []byte, apiKey string) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(apiKey))
	return h.Sum(nil)
}

// VerifyHMAC compares two digests in constant time.
func VerifyHMAC(expectedHash, computedHash []byte) bool {
	return hmac.Equal(expectedHash, computedHash)
}

// FormatAPIKey assembles an API key from its parts.
func FormatAPIKey(keyID, randomData string) string {
	return fmt.Sprintf("jf-v1-%s-%s", keyID, randomData)
}

// GenerateAPIKey returns a new key with a time-ordered key ID.
func GenerateAPIKey() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate key id: %w", err)
	}
	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return FormatAPIKey(strings.ReplaceAll(id.String(), "-", ""), hex.EncodeToString(random)), nil
}
