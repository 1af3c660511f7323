package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	album := &Album{IDToken: "0f1e2d3c4b5a", Password: "family-secret"}

	if err := manager.Store(album); err != nil {
		t.Fatalf("Failed to store album: %v", err)
	}
	if album.LastModified.IsZero() {
		t.Error("Store should stamp LastModified")
	}

	password, err := manager.Password("0f1e2d3c4b5a")
	if err != nil {
		t.Fatalf("Failed to retrieve password: %v", err)
	}
	if password != "family-secret" {
		t.Errorf("Password mismatch: got %s, want family-secret", password)
	}

	albums, err := manager.List()
	if err != nil {
		t.Fatalf("Failed to list albums: %v", err)
	}
	if len(albums) != 1 {
		t.Errorf("Expected 1 album in list, got %d", len(albums))
	}

	if err := manager.Delete("0f1e2d3c4b5a"); err != nil {
		t.Errorf("Failed to delete album: %v", err)
	}
	if _, err := manager.Retrieve("0f1e2d3c4b5a"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound after deletion, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 albums after deletion, got %d", mockStore.Count())
	}
}

func TestManagerStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	if err := manager.Store(&Album{Password: "x"}); err == nil {
		t.Error("Expected error for missing id token")
	}
	if err := manager.Store(&Album{IDToken: "abc"}); err == nil {
		t.Error("Expected error for missing password")
	}
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keychain locked")
	backup := NewMockStore()
	manager := NewManagerWithStores(broken, backup)

	if err := manager.Store(&Album{IDToken: "abc", Password: "pw"}); err != nil {
		t.Fatalf("Failed to store album: %v", err)
	}
	if !backup.Exists("abc") {
		t.Error("Album should land in the fallback store")
	}

	backup.StoreError = errors.New("disk full")
	manager = NewManagerWithStores(NewEnvironmentStore(), backup)
	err := manager.Store(&Album{IDToken: "def", Password: "pw"})
	if err == nil || !bytes.Contains([]byte(err.Error()), []byte("disk full")) {
		t.Errorf("Expected last store error, got %v", err)
	}
}

func TestManagerRetrieveDefault(t *testing.T) {
	manager, store := NewMockManager()

	if _, err := manager.RetrieveDefault(); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}

	store.Store(&Album{IDToken: "only", Password: "pw"})
	album, err := manager.RetrieveDefault()
	if err != nil {
		t.Fatalf("RetrieveDefault failed: %v", err)
	}
	if album.IDToken != "only" {
		t.Errorf("IDToken mismatch: got %s, want only", album.IDToken)
	}

	store.Store(&Album{IDToken: "second", Password: "pw"})
	if _, err := manager.RetrieveDefault(); err == nil {
		t.Error("Expected error when several albums are stored")
	}
}

func TestManagerDeleteMissing(t *testing.T) {
	manager, _ := NewMockManager()

	err := manager.Delete("nothing-here")
	if !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
}

func TestSanitizeAlbum(t *testing.T) {
	album := &Album{IDToken: "0123456789abcdef", Password: "family-secret"}

	sanitized := SanitizeAlbum(album)
	if sanitized.Password == album.Password {
		t.Error("Password should be masked")
	}
	if sanitized.IDToken != "0123...cdef" {
		t.Errorf("IDToken mask mismatch: got %s", sanitized.IDToken)
	}
	if SanitizeAlbum(&Album{IDToken: "short"}).IDToken != "********" {
		t.Error("Short tokens should be fully masked")
	}
	if SanitizeAlbum(nil) != nil {
		t.Error("nil album should sanitize to nil")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(passphraseEnv, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	if err := store.Store(&Album{IDToken: "album-one", Password: "plaintext-password"}); err != nil {
		t.Fatalf("Failed to store in encrypted file: %v", err)
	}
	if err := store.Store(&Album{IDToken: "album-two", Password: "second-password"}); err != nil {
		t.Fatalf("Failed to store in encrypted file: %v", err)
	}

	retrieved, err := store.Retrieve("album-one")
	if err != nil {
		t.Fatalf("Failed to retrieve from encrypted file: %v", err)
	}
	if retrieved.Password != "plaintext-password" {
		t.Error("Password mismatch after encryption/decryption")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(content, []byte("plaintext-password")) {
		t.Error("File contains plaintext password")
	}
	if bytes.Contains(content, []byte("album-one")) {
		t.Error("File contains plaintext id token")
	}

	albums, err := store.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(albums) != 2 || albums[0].IDToken != "album-one" || albums[1].IDToken != "album-two" {
		t.Errorf("Unexpected albums: %+v", albums)
	}

	if err := store.Delete("album-one"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if store.Exists("album-one") {
		t.Error("album-one should be gone")
	}
	if err := store.Delete("album-two"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Store file should be removed with the last album")
	}
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(passphraseEnv, "first")
	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Store(&Album{IDToken: "abc", Password: "pw"}); err != nil {
		t.Fatal(err)
	}

	t.Setenv(passphraseEnv, "second")
	other, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Retrieve("abc"); err == nil || errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected decryption failure, got %v", err)
	}
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(passphraseEnv, "")
	dir := t.TempDir()

	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Store(&Album{IDToken: "abc", Password: "pw"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(filepath.Join(dir, passphraseFile))
	if err != nil {
		t.Fatalf("Passphrase file not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Passphrase file mode = %v, want 0600", info.Mode().Perm())
	}

	// a second store over the same directory reuses the passphrase
	reopened, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatal(err)
	}
	if !reopened.Exists("abc") {
		t.Error("Reopened store should decrypt existing data")
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv(envIDToken, "env-token")
	t.Setenv(envPassword, "env-password")

	store := NewEnvironmentStore()

	album, err := store.Retrieve("env-token")
	if err != nil {
		t.Fatalf("Failed to retrieve from environment: %v", err)
	}
	if album.Password != "env-password" {
		t.Errorf("Password mismatch: got %s, want env-password", album.Password)
	}

	if _, err := store.Retrieve("another-album"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Error("Environment credential should only match its own id token")
	}

	albums, _ := store.List()
	if len(albums) != 1 {
		t.Errorf("Expected 1 album, got %d", len(albums))
	}

	if err := store.Store(&Album{}); err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	if err != nil {
		t.Fatalf("Failed to create keyring store: %v", err)
	}

	for _, token := range []string{"zeta", "alpha"} {
		if err := store.Store(&Album{IDToken: token, Password: "pw-" + token}); err != nil {
			t.Fatalf("Failed to store %s: %v", token, err)
		}
	}

	album, err := store.Retrieve("alpha")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if album.Password != "pw-alpha" {
		t.Errorf("Password mismatch: got %s", album.Password)
	}

	albums, err := store.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(albums) != 2 || albums[0].IDToken != "alpha" || albums[1].IDToken != "zeta" {
		t.Errorf("Unexpected albums: %+v", albums)
	}

	if err := store.Delete("alpha"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if store.Exists("alpha") {
		t.Error("alpha should be gone")
	}
	if err := store.Delete("alpha"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}

	albums, _ = store.List()
	if len(albums) != 1 {
		t.Errorf("Expected 1 album after delete, got %d", len(albums))
	}
}

func TestMockStoreErrorInjection(t *testing.T) {
	store := NewMockStore()
	store.ListError = errors.New("injected error")

	if _, err := store.List(); err == nil || err.Error() != "injected error" {
		t.Error("Expected injected error")
	}
}
