package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"
)

// Album is a stored album credential. The id token is the last path segment of the
// share link and identifies the album.
type Album struct {
	IDToken      string    `json:"id_token"`
	Password     string    `json:"password"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving album passwords
type CredentialStore interface {
	// Store saves the credential for an album
	Store(album *Album) error

	// Retrieve gets the credential for an id token
	Retrieve(idToken string) (*Album, error)

	// List returns all stored albums
	List() ([]*Album, error)

	// Delete removes the credential for an id token
	Delete(idToken string) error

	// Exists checks if a credential exists for an id token
	Exists(idToken string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager backed by the system keychain when available,
// an encrypted file, and finally the environment.
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over the given stores, tried in order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the credential using the first store that accepts it
func (m *Manager) Store(album *Album) error {
	if album == nil || album.IDToken == "" {
		return errors.New("album id token is required")
	}
	if album.Password == "" {
		return errors.New("album password is required")
	}

	album.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(album)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets the credential from the first store that has it
func (m *Manager) Retrieve(idToken string) (*Album, error) {
	for _, store := range m.stores {
		if album, err := store.Retrieve(idToken); err == nil && album != nil {
			return album, nil
		}
	}
	return nil, fmt.Errorf("%w for album %s", ErrCredentialsNotFound, maskString(idToken))
}

// Password returns the stored password for an id token
func (m *Manager) Password(idToken string) (string, error) {
	album, err := m.Retrieve(idToken)
	if err != nil {
		return "", err
	}
	return album.Password, nil
}

// RetrieveDefault returns the only stored album. It fails when none or several are stored.
func (m *Manager) RetrieveDefault() (*Album, error) {
	albums, err := m.List()
	if err != nil {
		return nil, err
	}

	switch len(albums) {
	case 0:
		return nil, ErrCredentialsNotFound
	case 1:
		return albums[0], nil
	default:
		return nil, fmt.Errorf("%d albums stored, pass --id-token to choose one", len(albums))
	}
}

// List returns the stored albums from all stores, ordered by id token
func (m *Manager) List() ([]*Album, error) {
	byToken := make(map[string]*Album)

	for _, store := range m.stores {
		albums, err := store.List()
		if err != nil {
			continue
		}
		for _, album := range albums {
			// the most recently modified copy wins
			if existing, ok := byToken[album.IDToken]; !ok || album.LastModified.After(existing.LastModified) {
				byToken[album.IDToken] = album
			}
		}
	}

	result := make([]*Album, 0, len(byToken))
	for _, album := range byToken {
		result = append(result, album)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].IDToken < result[j].IDToken })

	return result, nil
}

// Delete removes the credential from all stores
func (m *Manager) Delete(idToken string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(idToken); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil && !errors.Is(lastErr, ErrCredentialsNotFound) && !errors.Is(lastErr, ErrStoreUnavailable) {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	return fmt.Errorf("%w for album %s", ErrCredentialsNotFound, maskString(idToken))
}

// DeleteAll removes all stored credentials
func (m *Manager) DeleteAll() error {
	albums, err := m.List()
	if err != nil {
		return err
	}

	for _, album := range albums {
		_ = m.Delete(album.IDToken)
	}

	return nil
}

// getConfigDir returns the per-user configuration directory, creating it if needed
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "familyalbum")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "familyalbum")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "familyalbum")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "familyalbum")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// SanitizeAlbum returns a copy safe for display
func SanitizeAlbum(album *Album) *Album {
	if album == nil {
		return nil
	}

	return &Album{
		IDToken:      maskString(album.IDToken),
		Password:     "********",
		LastModified: album.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
