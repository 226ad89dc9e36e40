package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mediastream/models"
)

// ErrAccountNotFound is returned when a username has no stored account.
var ErrAccountNotFound = errors.New("account not found")

// AccountRepository persists login accounts.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Upsert stores an account, replacing the password hash when the username
// already exists.
func (r *AccountRepository) Upsert(account models.Account) error {
	_, err := r.db.Exec(`
		INSERT INTO accounts (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET password_hash = excluded.password_hash`,
		account.ID, account.Username, account.PasswordHash, account.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert account %q: %w", account.Username, err)
	}
	return nil
}

// GetByUsername fetches one account.
func (r *AccountRepository) GetByUsername(username string) (*models.Account, error) {
	row := r.db.QueryRow(`
		SELECT id, username, password_hash, created_at
		FROM accounts WHERE username = ?`, username)

	var account models.Account
	var createdAt time.Time
	if err := row.Scan(&account.ID, &account.Username, &account.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account %q: %w", username, err)
	}
	account.CreatedAt = createdAt
	return &account, nil
}

// List returns all accounts ordered by creation time.
func (r *AccountRepository) List() ([]models.Account, error) {
	rows, err := r.db.Query(`
		SELECT id, username, password_hash, created_at
		FROM accounts ORDER BY created_at, username`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		var createdAt time.Time
		if err := rows.Scan(&account.ID, &account.Username, &account.PasswordHash, &createdAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		account.CreatedAt = createdAt
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// Count reports how many accounts exist.
func (r *AccountRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// Delete removes an account by username.
func (r *AccountRepository) Delete(username string) error {
	res, err := r.db.Exec(`DELETE FROM accounts WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("delete account %q: %w", username, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAccountNotFound
	}
	return nil
}
