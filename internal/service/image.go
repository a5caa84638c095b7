package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Storage folders for uploaded images
const (
	RecipeImagesFolder = "recipe_images"
	AvatarsFolder      = "users_avatars"
)

const maxImageBytes = 10 << 20

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// ImageService decodes base64 data URIs and hands the bytes to an ImageStore
type ImageService struct {
	store ImageStore
}

// NewImageService creates a new ImageService instance
func NewImageService(store ImageStore) *ImageService {
	return &ImageService{store: store}
}

// DecodeDataURI parses "data:image/<ext>;base64,<payload>" and returns the
// decoded bytes with their sniffed content type.
func DecodeDataURI(dataURI string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(dataURI, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, "", validationError("image", "must be a base64 encoded data URI")
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > maxImageBytes {
		return nil, "", validationError("image", "must not exceed %d bytes", maxImageBytes)
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil || len(data) == 0 {
		return nil, "", validationError("image", "invalid base64 payload")
	}

	contentType := http.DetectContentType(data)
	if _, ok := imageExtensions[contentType]; !ok {
		return nil, "", validationError("image", "unsupported image type %s", contentType)
	}
	return data, contentType, nil
}

// Save stores a data URI under folder and returns the generated storage key
func (s *ImageService) Save(ctx context.Context, folder, dataURI string) (string, error) {
	data, contentType, err := DecodeDataURI(dataURI)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s/%s.%s", folder, uuid.New().String(), imageExtensions[contentType])
	if err := s.store.Save(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return key, nil
}

// Delete removes a stored image. Failures are logged, not returned.
func (s *ImageService) Delete(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		log.Warn("failed to delete image", "key", key, "error", err)
	}
}

// URL resolves a storage key, returning "" for an empty key
func (s *ImageService) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.store.URL(key)
}
