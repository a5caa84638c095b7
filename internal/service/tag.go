package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

const tagListCacheKey = "tags:all"

// TagService serves the tag catalog. Tags change only through the CLI, so the
// full list is cached in process.
type TagService struct {
	db    *gorm.DB
	cache *gocache.Cache
}

func NewTagService(db *gorm.DB) *TagService {
	return &TagService{
		db:    db,
		cache: gocache.New(10*time.Minute, 20*time.Minute),
	}
}

func (s *TagService) List(ctx context.Context) ([]types.TagResponse, error) {
	if cached, ok := s.cache.Get(tagListCacheKey); ok {
		return cached.([]types.TagResponse), nil
	}

	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	resp := lo.Map(tags, func(t models.Tag, _ int) types.TagResponse { return tagResponse(&t) })
	s.cache.SetDefault(tagListCacheKey, resp)
	return resp, nil
}

func (s *TagService) Get(ctx context.Context, id uint) (*types.TagResponse, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("tag %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	resp := tagResponse(&tag)
	return &resp, nil
}

func (s *TagService) Create(ctx context.Context, name, slug string) (*types.TagResponse, error) {
	name, slug = strings.TrimSpace(name), strings.TrimSpace(slug)
	switch {
	case name == "" || len([]rune(name)) > 32:
		return nil, validationError("name", "must be between 1 and 32 characters")
	case slug == "" || len(slug) > 32:
		return nil, validationError("slug", "must be between 1 and 32 characters")
	case strings.Trim(slug, "abcdefghijklmnopqrstuvwxyz0123456789-_") != "":
		return nil, validationError("slug", "may contain only lowercase letters, digits, '-' and '_'")
	}

	tag := &models.Tag{Name: name, Slug: slug}
	if err := s.db.WithContext(ctx).Create(tag).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("tag %s: %w", slug, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	s.cache.Delete(tagListCacheKey)
	resp := tagResponse(tag)
	return &resp, nil
}
