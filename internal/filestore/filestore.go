package filestore

import (
	"context"
	"time"
)

// UploadTarget is a presigned location a client can PUT an image to. The
// StorageID is what the client passes back when creating the post.
type UploadTarget struct {
	StorageID string    `json:"storage_id"`
	URL       string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FileStore generates upload targets, resolves stored objects to public URLs
// and deletes them. GetURL returns store.ErrNotFound for a missing object.
type FileStore interface {
	GenerateUploadURL(ctx context.Context) (UploadTarget, error)
	GetURL(ctx context.Context, storageID string) (string, error)
	Delete(ctx context.Context, storageID string) error
}
