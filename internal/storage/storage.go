// Package storage provides file storage for user uploads.
//
// Implementations:
// - LocalStorage: File system storage for development
// - R2Storage: Cloudflare R2 (S3-compatible) storage for production
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Storage stores uploaded objects and resolves their public URLs.
type Storage interface {
	// Put stores data at key, replacing any existing object.
	// Returns ErrTooLarge if opts.MaxSize is set and exceeded.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Delete removes the object at key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a URL browsers can load the object from.
	URL(ctx context.Context, key string) (string, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	ContentType string
	// MaxSize in bytes. Zero means no limit.
	MaxSize int64
}

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory where files are stored.
	BasePath string
	// BaseURL is the public URL prefix, e.g. "http://localhost:8080/files".
	BaseURL string
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is the bucket's public domain. When empty, URL returns
	// presigned links.
	PublicURL string

	// Region defaults to "auto".
	Region string
}

const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// AvatarKey generates a storage key for a processed avatar.
// Format: avatars/{userID}/{uuid}.jpg
func AvatarKey(userID uuid.UUID) string {
	return fmt.Sprintf("avatars/%s/%s.jpg", userID, uuid.New())
}
