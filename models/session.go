package models

import "time"

// Claims is the payload sealed inside a session token.
type Claims struct {
	Username string `json:"username"`
	// Secret is the per-login session secret; it must match the
	// registry's current secret for the token to remain valid.
	Secret string `json:"secret"`
	// IssuedAt is the unix-seconds issue timestamp.
	IssuedAt int64 `json:"issued_at"`
}

// IssuedToken couples an opaque session token with its recommended
// cookie expiry.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}
