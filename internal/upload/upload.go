// Package upload stores menu images in S3 or on the local disk.
package upload

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"qrmenu/internal/model"
)

const keyPrefix = "menu-images"

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var (
	ErrEmptyFile       = model.NewDomainError(model.ErrCodeValidation, "No file was uploaded")
	ErrTooLarge        = model.NewDomainError(model.ErrCodeValidation, "File is too large")
	ErrUnsupportedType = model.NewDomainError(model.ErrCodeValidation, "File type not allowed, upload a JPG, PNG, GIF or WebP image")
)

// Store persists an object and returns its public URL.
type Store interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// Result describes a stored image.
type Result struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int    `json:"size"`
	Type     string `json:"type"`
}

// Uploader validates images and hands them to a Store.
type Uploader struct {
	store    Store
	maxBytes int64
	logger   zerolog.Logger
	now      func() time.Time
	random   func() string
}

// NewUploader creates an uploader that accepts images up to maxBytes.
func NewUploader(store Store, maxBytes int64, logger zerolog.Logger) *Uploader {
	return &Uploader{
		store:    store,
		maxBytes: maxBytes,
		logger:   logger.With().Str("component", "uploader").Logger(),
		now:      time.Now,
		random: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
		},
	}
}

// MaxBytes is the largest accepted image.
func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// Save checks the content type by sniffing the data, not by trusting the
// client, and stores the image under menu-images/{unixMillis}-{random}{ext}.
func (u *Uploader) Save(ctx context.Context, data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > u.maxBytes {
		return nil, ErrTooLarge
	}

	mtype := mimetype.Detect(data)
	contentType := mtype.String()
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if !allowedTypes[contentType] {
		u.logger.Warn().Str("detected", mtype.String()).Msg("rejected upload type")
		return nil, ErrUnsupportedType
	}

	key := fmt.Sprintf("%s/%d-%s%s", keyPrefix, u.now().UnixMilli(), u.random(), mtype.Extension())
	url, err := u.store.Put(ctx, key, contentType, data)
	if err != nil {
		u.logger.Error().Err(err).Str("key", key).Msg("failed to store upload")
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	u.logger.Info().Str("key", key).Int("size", len(data)).Str("type", contentType).Msg("image uploaded")

	return &Result{
		URL:      url,
		Filename: key,
		Size:     len(data),
		Type:     contentType,
	}, nil
}
