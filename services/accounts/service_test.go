package accounts

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
)

func newAccounts(t *testing.T, fs afero.Fs) *Service {
	t.Helper()
	svc, err := NewService(fs, "/data")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestNewServiceRequiresDir(t *testing.T) {
	if _, err := NewService(afero.NewMemMapFs(), " "); !errors.Is(err, ErrStorageDirRequired) {
		t.Fatalf("expected ErrStorageDirRequired, got %v", err)
	}
}

func TestCreateAndAuthenticate(t *testing.T) {
	svc := newAccounts(t, afero.NewMemMapFs())

	account, err := svc.Create(" Ada@Example.com ", "secret")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if account.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", account.Email)
	}
	if account.PasswordHash == "secret" {
		t.Fatal("password stored in clear")
	}

	got, err := svc.Authenticate("ADA@example.com", "secret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != account.ID {
		t.Fatalf("expected %s, got %s", account.ID, got.ID)
	}
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	svc := newAccounts(t, afero.NewMemMapFs())
	if _, err := svc.Create("ada@example.com", "secret"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create("ADA@example.com", "other"); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	svc := newAccounts(t, afero.NewMemMapFs())
	if _, err := svc.Create("", "secret"); !errors.Is(err, ErrEmailRequired) {
		t.Fatalf("expected ErrEmailRequired, got %v", err)
	}
	if _, err := svc.Create("ada@example.com", ""); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("expected ErrPasswordRequired, got %v", err)
	}
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	svc := newAccounts(t, afero.NewMemMapFs())
	svc.Create("ada@example.com", "secret")

	if _, err := svc.Authenticate("ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.Authenticate("bob@example.com", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestAccountsPersistAcrossReload(t *testing.T) {
	fs := afero.NewMemMapFs()
	account, err := newAccounts(t, fs).Create("ada@example.com", "secret")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	reloaded := newAccounts(t, fs)
	if _, ok := reloaded.Get(account.ID); !ok {
		t.Fatal("expected account after reload")
	}
	if _, err := reloaded.Authenticate("ada@example.com", "secret"); err != nil {
		t.Fatalf("expected hash to survive reload: %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc := newAccounts(t, afero.NewMemMapFs())
	account, _ := svc.Create("ada@example.com", "secret")

	if err := svc.Delete(account.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := svc.Get(account.ID); ok {
		t.Fatal("expected account to be gone")
	}
	if err := svc.Delete(account.ID); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
