package filestore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"example.com/snapgram/internal/store"
	"github.com/google/uuid"
)

// MockFileStore keeps uploaded objects in memory.
type MockFileStore struct {
	mu         sync.Mutex
	Objects    map[string]bool
	Deleted    []string
	ShouldFail bool
}

func NewMock() *MockFileStore {
	return &MockFileStore{Objects: make(map[string]bool)}
}

// Put simulates a client finishing an upload and returns its storage id.
func (m *MockFileStore) Put() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := keyPrefix + uuid.NewString()
	m.Objects[id] = true
	return id
}

func (m *MockFileStore) GenerateUploadURL(_ context.Context) (UploadTarget, error) {
	if m.ShouldFail {
		return UploadTarget{}, errors.New("mock: presign failed")
	}
	id := keyPrefix + uuid.NewString()
	return UploadTarget{
		StorageID: id,
		URL:       "https://uploads.example.test/" + id + "?signature=mock",
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

func (m *MockFileStore) GetURL(_ context.Context, storageID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return "", errors.New("mock: head failed")
	}
	if !m.Objects[storageID] {
		return "", fmt.Errorf("storage id %q: %w", storageID, store.ErrNotFound)
	}
	return "https://cdn.example.test/" + storageID, nil
}

func (m *MockFileStore) Delete(_ context.Context, storageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errors.New("mock: delete failed")
	}
	delete(m.Objects, storageID)
	m.Deleted = append(m.Deleted, storageID)
	return nil
}
