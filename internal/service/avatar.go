package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/DukeRupert/lingua/internal/storage"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // registers the WebP decoder with image.Decode
)

const (
	// MaxAvatarBytes is the largest accepted upload (10 MB).
	MaxAvatarBytes = 10 << 20

	// AvatarSize is the edge length of the stored square avatar.
	AvatarSize = 256

	avatarJPEGQuality = 85
)

// =============================================================================
// Image processing
// =============================================================================

// AvatarProcessor turns an uploaded image into the stored avatar.
type AvatarProcessor interface {
	// Process decodes data and returns a size x size JPEG.
	Process(data io.Reader, size int) ([]byte, error)
}

type imagingProcessor struct{}

// NewImagingProcessor creates an AvatarProcessor using the imaging library.
func NewImagingProcessor() AvatarProcessor {
	return &imagingProcessor{}
}

// Process center-crops and resizes to a square, honoring EXIF orientation.
func (p *imagingProcessor) Process(data io.Reader, size int) ([]byte, error) {
	img, err := imaging.Decode(data, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	avatar := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, avatar, imaging.JPEG, imaging.JPEGQuality(avatarJPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}

// =============================================================================
// Service
// =============================================================================

// AvatarService stores profile pictures.
type AvatarService interface {
	// Upload validates, resizes and stores an avatar, then points the
	// user's profile at it. Returns the new avatar URL.
	// Returns domain.EINVALID for unsupported formats and domain.ETOOLARGE
	// for uploads over MaxAvatarBytes.
	Upload(ctx context.Context, userID uuid.UUID, data io.Reader) (string, error)
}

type avatarService struct {
	users     UserService
	storage   storage.Storage
	processor AvatarProcessor
	logger    *slog.Logger
}

// NewAvatarService creates a new AvatarService.
func NewAvatarService(users UserService, store storage.Storage, processor AvatarProcessor, logger *slog.Logger) AvatarService {
	return &avatarService{
		users:     users,
		storage:   store,
		processor: processor,
		logger:    logger,
	}
}

func (s *avatarService) Upload(ctx context.Context, userID uuid.UUID, data io.Reader) (string, error) {
	const op = "AvatarService.Upload"

	raw, err := io.ReadAll(io.LimitReader(data, MaxAvatarBytes+1))
	if err != nil {
		return "", domain.Invalid(op, "Failed to read upload")
	}
	if len(raw) == 0 {
		return "", domain.Invalid(op, "No file uploaded")
	}
	if len(raw) > MaxAvatarBytes {
		return "", domain.Errorf(domain.ETOOLARGE, op, "File too large. Maximum size is 10MB")
	}

	contentType, ok := storage.SniffImageType(raw)
	if !ok {
		return "", domain.Errorf(domain.EINVALID, op, "Invalid file type. Only JPEG, PNG, WebP and GIF are allowed")
	}

	jpeg, err := s.processor.Process(bytes.NewReader(raw), AvatarSize)
	if err != nil {
		return "", domain.Wrap(err, domain.EINVALID, op, "Could not read image")
	}

	key := storage.AvatarKey(userID)
	if err := s.storage.Put(ctx, key, bytes.NewReader(jpeg), storage.PutOptions{ContentType: "image/jpeg"}); err != nil {
		return "", domain.Unavailable(err, op, "Failed to store avatar")
	}

	url, err := s.storage.URL(ctx, key)
	if err != nil {
		s.cleanup(key)
		return "", domain.Unavailable(err, op, "Failed to store avatar")
	}

	if err := s.users.UpdateAvatar(ctx, userID, url); err != nil {
		s.cleanup(key)
		return "", err
	}

	s.logger.Info("avatar uploaded", "user_id", userID, "source_type", contentType, "key", key)
	return url, nil
}

// cleanup removes an orphaned object. It runs on a fresh context so a
// cancelled request still cleans up.
func (s *avatarService) cleanup(key string) {
	if err := s.storage.Delete(context.Background(), key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("failed to remove orphaned avatar", "key", key, "error", err)
	}
}
