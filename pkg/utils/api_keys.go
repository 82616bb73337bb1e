package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateAdminKey returns a random URL-safe key. Used at startup when no
// admin API key is configured.
func GenerateAdminKey(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
