package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateSecretBytes returns n cryptographically random bytes.
func GenerateSecretBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	return buf, nil
}

// GenerateSessionSecret returns a URL-safe random secret with 256 bits of
// entropy. A fresh one is minted for every successful login.
func GenerateSessionSecret() (string, error) {
	const numBytes = 32 // 256 bits
	buf, err := GenerateSecretBytes(numBytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
