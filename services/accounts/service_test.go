package accounts_test

import (
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"mediastream/internal/database"
	"mediastream/models"
	"mediastream/services/accounts"
)

func newDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.NewDB(database.Config{
		DatabasePath: filepath.Join(t.TempDir(), "mediastream.db"),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestServiceProvisionsBootstrapAccount(t *testing.T) {
	db := newDB(t)

	svc, err := accounts.NewService(db.Accounts, nil)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	list, err := svc.List()
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected exactly one account, got %d", len(list))
	}
	if list[0].Username != models.BootstrapUserName {
		t.Fatalf("expected bootstrap account %q, got %q", models.BootstrapUserName, list[0].Username)
	}
	if list[0].PasswordHash == "" {
		t.Fatalf("expected bootstrap account to have a password hash")
	}
}

func TestServiceSeedsConfiguredAccounts(t *testing.T) {
	db := newDB(t)

	svc, err := accounts.NewService(db.Accounts, map[string]string{
		"alice": "correcthorse",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	hash, ok := svc.PasswordHash("alice")
	if !ok {
		t.Fatalf("expected configured account to exist")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("correcthorse")); err != nil {
		t.Fatalf("stored hash does not match configured password: %v", err)
	}
	if _, ok := svc.PasswordHash("nobody"); ok {
		t.Fatalf("expected unknown username to be absent")
	}
	if !svc.Exists("alice") {
		t.Fatalf("expected Exists to report configured account")
	}

	// No bootstrap account when accounts are configured.
	list, err := svc.List()
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected exactly one account, got %d", len(list))
	}
}

func TestReseedingUpdatesPassword(t *testing.T) {
	db := newDB(t)

	if _, err := accounts.NewService(db.Accounts, map[string]string{"alice": "correcthorse"}); err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	svc, err := accounts.NewService(db.Accounts, map[string]string{"alice": "betterbattery"})
	if err != nil {
		t.Fatalf("failed to re-create service: %v", err)
	}

	hash, _ := svc.PasswordHash("alice")
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("betterbattery")); err != nil {
		t.Fatalf("expected password to be updated: %v", err)
	}
}
