package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	keyringService  = "familyalbum"
	keyringPrefix   = "album_"
	keyringIndexKey = "albums_index"
)

// KeyringStore implements CredentialStore using the system keychain. The keychain cannot
// be enumerated portably, so the stored id tokens are tracked in an index entry.
type KeyringStore struct {
	mu sync.Mutex
}

// NewKeyringStore creates a keyring-backed store, failing when no keychain is reachable
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Store saves the credential to the system keychain
func (k *KeyringStore) Store(album *Album) error {
	if album == nil || album.IDToken == "" {
		return ErrInvalidCredentials
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	data, err := json.Marshal(album)
	if err != nil {
		return fmt.Errorf("failed to marshal album: %w", err)
	}

	if err := keyring.Set(keyringService, keyringPrefix+album.IDToken, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}

	index, err := k.index()
	if err != nil {
		return err
	}
	index[album.IDToken] = struct{}{}
	return k.saveIndex(index)
}

// Retrieve gets the credential from the system keychain
func (k *KeyringStore) Retrieve(idToken string) (*Album, error) {
	if idToken == "" {
		return nil, ErrInvalidCredentials
	}

	data, err := keyring.Get(keyringService, keyringPrefix+idToken)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var album Album
	if err := json.Unmarshal([]byte(data), &album); err != nil {
		return nil, fmt.Errorf("failed to unmarshal album: %w", err)
	}

	return &album, nil
}

// List returns every album recorded in the index
func (k *KeyringStore) List() ([]*Album, error) {
	k.mu.Lock()
	index, err := k.index()
	k.mu.Unlock()
	if err != nil {
		return nil, err
	}

	tokens := make([]string, 0, len(index))
	for token := range index {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	albums := make([]*Album, 0, len(tokens))
	for _, token := range tokens {
		album, err := k.Retrieve(token)
		if err != nil {
			continue
		}
		albums = append(albums, album)
	}
	return albums, nil
}

// Delete removes the credential from the system keychain
func (k *KeyringStore) Delete(idToken string) error {
	if idToken == "" {
		return ErrInvalidCredentials
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if err := keyring.Delete(keyringService, keyringPrefix+idToken); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}

	index, err := k.index()
	if err != nil {
		return err
	}
	delete(index, idToken)
	return k.saveIndex(index)
}

// Exists checks if a credential exists in the keychain
func (k *KeyringStore) Exists(idToken string) bool {
	if idToken == "" {
		return false
	}
	_, err := keyring.Get(keyringService, keyringPrefix+idToken)
	return err == nil
}

func (k *KeyringStore) index() (map[string]struct{}, error) {
	index := make(map[string]struct{})

	data, err := keyring.Get(keyringService, keyringIndexKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return index, nil
		}
		return nil, fmt.Errorf("failed to read keyring index: %w", err)
	}

	var tokens []string
	if err := json.Unmarshal([]byte(data), &tokens); err != nil {
		return nil, fmt.Errorf("failed to parse keyring index: %w", err)
	}
	for _, t := range tokens {
		index[t] = struct{}{}
	}
	return index, nil
}

func (k *KeyringStore) saveIndex(index map[string]struct{}) error {
	if len(index) == 0 {
		err := keyring.Delete(keyringService, keyringIndexKey)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to clear keyring index: %w", err)
		}
		return nil
	}

	tokens := make([]string, 0, len(index))
	for t := range index {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)

	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to marshal keyring index: %w", err)
	}
	if err := keyring.Set(keyringService, keyringIndexKey, string(data)); err != nil {
		return fmt.Errorf("failed to write keyring index: %w", err)
	}
	return nil
}
