package accounts

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-password/password"
	"golang.org/x/crypto/bcrypt"

	"mediastream/internal/database"
	"mediastream/models"
)

// Service provisions and resolves login accounts. It implements the
// credential-store seam the auth service verifies against.
type Service struct {
	repo *database.AccountRepository
}

// NewService seeds the configured accounts and returns the service. When no
// account exists and none is configured, a bootstrap admin account with a
// generated password is created and the password logged once so the operator
// can log in after first start.
func NewService(repo *database.AccountRepository, configured map[string]string) (*Service, error) {
	s := &Service{repo: repo}

	for username, plaintext := range configured {
		if err := s.upsert(username, plaintext); err != nil {
			return nil, err
		}
	}

	count, err := repo.Count()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		generated, err := password.Generate(20, 4, 4, false, false)
		if err != nil {
			return nil, fmt.Errorf("accounts: generate bootstrap password: %w", err)
		}
		if err := s.upsert(models.BootstrapUserName, generated); err != nil {
			return nil, err
		}
		slog.Warn("accounts.bootstrap_created",
			"username", models.BootstrapUserName,
			"password", generated,
			"note", "configure ACCOUNTS to replace this credential",
		)
	}

	return s, nil
}

func (s *Service) upsert(username, plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("accounts: hash password for %q: %w", username, err)
	}
	return s.repo.Upsert(models.Account{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	})
}

// PasswordHash resolves a username to its stored bcrypt hash.
func (s *Service) PasswordHash(username string) (string, bool) {
	account, err := s.repo.GetByUsername(username)
	if err != nil {
		if !errors.Is(err, database.ErrAccountNotFound) {
			slog.Error("accounts.lookup_failed", "username", username, "err", err)
		}
		return "", false
	}
	return account.PasswordHash, true
}

// List returns all accounts.
func (s *Service) List() ([]models.Account, error) {
	return s.repo.List()
}

// Exists reports whether a username has an account.
func (s *Service) Exists(username string) bool {
	_, ok := s.PasswordHash(username)
	return ok
}
