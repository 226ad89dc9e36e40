package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/chacha20poly1305"

	"mediastream/models"
	"mediastream/utils"
)

var (
	// ErrUnauthorized covers bad or blank credentials. Handlers must not
	// tell the client which part was wrong.
	ErrUnauthorized = errors.New("incorrect username or password")
	// ErrLockedOut is returned once a client identity has failed too many
	// consecutive logins. It does not decay; only a successful login or a
	// process restart clears it.
	ErrLockedOut = errors.New("too many failed login attempts")

	ErrNoToken        = errors.New("missing session token")
	ErrInvalidToken   = errors.New("invalid session token")
	ErrSessionExpired = errors.New("session expired")
)

// dummyHash burns a bcrypt comparison for unknown usernames so response
// timing does not reveal whether a username exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("mediastream-timing-pad"), bcrypt.DefaultCost)

// CredentialStore resolves a username to its stored bcrypt hash.
type CredentialStore interface {
	PasswordHash(username string) (hash string, ok bool)
}

// Config tunes a Service.
type Config struct {
	// Key is the 32-byte process session key. Generated when nil; a
	// restart therefore invalidates every outstanding token.
	Key []byte
	// SessionDuration bounds token validity from issue time.
	SessionDuration time.Duration
	// LockoutThreshold is the consecutive-failure count that locks a
	// client identity out.
	LockoutThreshold int
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service owns all mutable session state: the per-client failure counter,
// the username -> current-session-secret registry, and the process session
// key. Every map access is mutex-guarded; the service is shared by all
// request goroutines.
type Service struct {
	store     CredentialStore
	key       []byte
	duration  time.Duration
	threshold int
	now       func() time.Time

	mu       sync.Mutex
	failures map[string]int
	registry map[string]string
}

// NewService builds a Service around the given credential store.
func NewService(store CredentialStore, cfg Config) (*Service, error) {
	key := cfg.Key
	if key == nil {
		generated, err := utils.GenerateSecretBytes(chacha20poly1305.KeySize)
		if err != nil {
			return nil, fmt.Errorf("auth: generate session key: %w", err)
		}
		key = generated
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("auth: session key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}

	duration := cfg.SessionDuration
	if duration <= 0 {
		duration = time.Hour
	}
	threshold := cfg.LockoutThreshold
	if threshold <= 0 {
		threshold = 3
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		store:     store,
		key:       key,
		duration:  duration,
		threshold: threshold,
		now:       now,
		failures:  make(map[string]int),
		registry:  make(map[string]string),
	}, nil
}

// RecordFailure increments the consecutive-failure count for a client
// identity and returns the new count.
func (s *Service) RecordFailure(client string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[client]++
	return s.failures[client]
}

// ResetFailures clears the failure count for a client identity.
func (s *Service) ResetFailures(client string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, client)
}

// Failures reports the current consecutive-failure count for a client.
func (s *Service) Failures(client string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[client]
}

// VerifyCredentials checks a username/password pair. Blank inputs and wrong
// credentials both count as failures against the client identity; once the
// count reaches the lockout threshold the error becomes ErrLockedOut.
func (s *Service) VerifyCredentials(client, username, password string) error {
	if username == "" || password == "" {
		return s.fail(client, "blank credentials")
	}

	hash, ok := s.store.PasswordHash(username)
	if !ok {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return s.fail(client, "unknown username")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return s.fail(client, "wrong password")
	}

	s.ResetFailures(client)
	return nil
}

// Login verifies credentials and, on success, issues a fresh session token.
func (s *Service) Login(client, username, password string) (models.IssuedToken, error) {
	if err := s.VerifyCredentials(client, username, password); err != nil {
		return models.IssuedToken{}, err
	}
	return s.Issue(username)
}

// Logout drops the user's registry entry, invalidating any outstanding token.
func (s *Service) Logout(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.registry, username)
}

func (s *Service) fail(client, cause string) error {
	count := s.RecordFailure(client)
	// Cause stays in server logs only; the caller sees a generic error.
	slog.Info("auth.login.failed", "client", client, "cause", cause, "failures", count)
	if count >= s.threshold {
		return ErrLockedOut
	}
	return ErrUnauthorized
}
