package service_test

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/service"
)

func TestDecodeDataURI(t *testing.T) {
	data, contentType, err := service.DecodeDataURI(pngDataURI)
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.True(t, strings.HasPrefix(string(data), "\x89PNG"))

	gif := "data:image/gif;base64," + base64.StdEncoding.EncodeToString([]byte("GIF89a\x01\x00\x01\x00"))
	_, contentType, err = service.DecodeDataURI(gif)
	require.NoError(t, err)
	assert.Equal(t, "image/gif", contentType)

	for name, uri := range map[string]string{
		"no comma":       "data:image/png;base64",
		"not an image":   "data:text/plain;base64,aGVsbG8=",
		"not base64":     "data:image/png;base64,@@@",
		"empty payload":  "data:image/png;base64,",
		"plain text":     "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("hello world")),
		"plain url":      "https://example.com/cat.png",
		"missing base64": "data:image/png," + base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n")),
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := service.DecodeDataURI(uri)
			assert.ErrorIs(t, err, service.ErrValidation)
		})
	}
}

func TestLocalStore(t *testing.T) {
	root := t.TempDir()
	store := service.NewLocalStore(root, "/media")
	images := service.NewImageService(store)
	ctx := context.Background()

	key, err := images.Save(ctx, service.RecipeImagesFolder, pngDataURI)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "recipe_images/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.FileExists(t, filepath.Join(root, key))
	assert.Equal(t, "/media/"+key, images.URL(key))
	assert.Equal(t, "", images.URL(""))

	images.Delete(ctx, key)
	assert.NoFileExists(t, filepath.Join(root, key))

	// keys cannot escape the media root
	require.NoError(t, store.Save(ctx, "../../escape.png", []byte("x"), "image/png"))
	assert.FileExists(t, filepath.Join(root, "escape.png"))
}
