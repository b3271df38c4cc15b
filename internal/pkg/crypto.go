package pkg

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateRandomString generates a cryptographically secure random hex string.
// The returned string will be 2*length characters long. The MIME composer
// uses this to generate message boundaries.
func GenerateRandomString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
