package auth

import (
	"os"
	"time"
)

const (
	envIDToken  = "FAMILYALBUM_ID_TOKEN"
	envPassword = "FAMILYALBUM_PASSWORD"
)

// EnvironmentStore is a read-only CredentialStore over FAMILYALBUM_ID_TOKEN and
// FAMILYALBUM_PASSWORD
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(album *Album) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment credential when it matches idToken
func (e *EnvironmentStore) Retrieve(idToken string) (*Album, error) {
	token := os.Getenv(envIDToken)
	password := os.Getenv(envPassword)

	if token == "" || password == "" || token != idToken {
		return nil, ErrCredentialsNotFound
	}

	return &Album{
		IDToken:      token,
		Password:     password,
		LastModified: time.Now(),
	}, nil
}

// List returns a single album if both variables are set
func (e *EnvironmentStore) List() ([]*Album, error) {
	album, err := e.Retrieve(os.Getenv(envIDToken))
	if err != nil {
		return []*Album{}, nil
	}
	return []*Album{album}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(idToken string) error {
	return ErrStoreUnavailable
}

// Exists checks if the environment holds a credential for idToken
func (e *EnvironmentStore) Exists(idToken string) bool {
	_, err := e.Retrieve(idToken)
	return err == nil
}
