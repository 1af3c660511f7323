package auth

import (
	"sort"
	"sync"
)

// MockStore is an in-memory CredentialStore for tests
type MockStore struct {
	albums map[string]*Album
	mu     sync.RWMutex

	// Error injection
	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

// NewMockStore creates a new mock credential store
func NewMockStore() *MockStore {
	return &MockStore{albums: make(map[string]*Album)}
}

func (m *MockStore) Store(album *Album) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if album == nil || album.IDToken == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	a := *album
	m.albums[album.IDToken] = &a
	return nil
}

func (m *MockStore) Retrieve(idToken string) (*Album, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}
	if idToken == "" {
		return nil, ErrInvalidCredentials
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	album, ok := m.albums[idToken]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	a := *album
	return &a, nil
}

func (m *MockStore) List() ([]*Album, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	albums := make([]*Album, 0, len(m.albums))
	for _, album := range m.albums {
		a := *album
		albums = append(albums, &a)
	}
	sort.Slice(albums, func(i, j int) bool { return albums[i].IDToken < albums[j].IDToken })
	return albums, nil
}

func (m *MockStore) Delete(idToken string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	if idToken == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.albums[idToken]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.albums, idToken)
	return nil
}

func (m *MockStore) Exists(idToken string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.albums[idToken]
	return ok
}

// Count returns the number of stored albums
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.albums)
}

// NewMockManager creates a Manager over a single MockStore
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return NewManagerWithStores(store), store
}
