package models

import "time"

const (
	// BootstrapUserName is provisioned when no accounts are configured.
	BootstrapUserName = "admin"
)

// Account models a login-capable user of the media server.
// PasswordHash is a bcrypt digest; the plaintext is never stored.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
