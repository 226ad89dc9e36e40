package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/chacha20poly1305"

	"mediastream/models"
	"mediastream/utils"
)

// Issue mints a session token for an already-verified username. The fresh
// per-login secret overwrites the registry entry, which implicitly
// invalidates every token issued for that user before this call.
func (s *Service) Issue(username string) (models.IssuedToken, error) {
	secret, err := utils.GenerateSessionSecret()
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("auth: generate session secret: %w", err)
	}

	issuedAt := s.now()
	claims := models.Claims{
		Username: username,
		Secret:   secret,
		IssuedAt: issuedAt.Unix(),
	}

	token, err := s.seal(claims)
	if err != nil {
		return models.IssuedToken{}, err
	}

	s.mu.Lock()
	s.registry[username] = secret
	s.mu.Unlock()

	return models.IssuedToken{
		Token:     token,
		ExpiresAt: issuedAt.Add(s.duration),
	}, nil
}

// Validate checks a session token and returns the username it is bound to.
// Failure modes map onto the redirect reasons the handlers use:
// ErrNoToken (no cookie), ErrInvalidToken (tampered, undecryptable, or
// superseded by a newer login), ErrSessionExpired (past its lifetime).
// Internal causes are logged, never returned to the client.
func (s *Service) Validate(token string) (string, error) {
	if token == "" {
		return "", ErrNoToken
	}

	claims, err := s.open(token)
	if err != nil {
		slog.Info("auth.token.rejected", "cause", err.Error())
		return "", ErrInvalidToken
	}

	if s.now().Sub(time.Unix(claims.IssuedAt, 0)) > s.duration {
		return "", ErrSessionExpired
	}

	s.mu.Lock()
	current, ok := s.registry[claims.Username]
	s.mu.Unlock()
	if !ok || subtle.ConstantTimeCompare([]byte(claims.Secret), []byte(current)) != 1 {
		slog.Info("auth.token.rejected", "cause", "session secret mismatch", "username", claims.Username)
		return "", ErrInvalidToken
	}

	return claims.Username, nil
}

// seal encrypts claims with XChaCha20-Poly1305 under the process session
// key; the nonce is prepended and the whole envelope base64url encoded.
func (s *Service) seal(claims models.Claims) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("auth: init cipher: %w", err)
	}

	nonce, err := utils.GenerateSecretBytes(aead.NonceSize())
	if err != nil {
		return "", fmt.Errorf("auth: generate nonce: %w", err)
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("auth: encode claims: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, payload, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *Service) open(token string) (models.Claims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return models.Claims{}, fmt.Errorf("decode token: %w", err)
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return models.Claims{}, fmt.Errorf("init cipher: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return models.Claims{}, fmt.Errorf("token too short")
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	payload, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return models.Claims{}, fmt.Errorf("decrypt token: %w", err)
	}

	var claims models.Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return models.Claims{}, fmt.Errorf("decode claims: %w", err)
	}
	if claims.Username == "" || claims.Secret == "" || claims.IssuedAt <= 0 {
		return models.Claims{}, fmt.Errorf("incomplete claims")
	}
	return claims, nil
}
