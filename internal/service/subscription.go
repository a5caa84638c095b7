package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

type SubscriptionService struct {
	db        *gorm.DB
	presenter presenter
}

func NewSubscriptionService(db *gorm.DB, images *ImageService) *SubscriptionService {
	return &SubscriptionService{db: db, presenter: presenter{db: db, images: images}}
}

// Subscribe makes userID follow authorID. recipesLimit > 0 caps the recipe preview.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID, authorID uint, recipesLimit int) (*types.SubscriptionResponse, error) {
	if userID == authorID {
		return nil, invalidOperation("author", "cannot subscribe to yourself")
	}

	var author models.User
	if err := s.db.WithContext(ctx).First(&author, authorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", authorID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load author: %w", err)
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check subscription: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("already subscribed to %s: %w", author.Username, ErrAlreadyExists)
	}

	sub := &models.Subscription{UserID: userID, AuthorID: authorID}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(sub).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("already subscribed to %s: %w", author.Username, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	log.Debug("subscribed", "user_id", userID, "author_id", authorID)

	resp, err := s.describe(ctx, []models.User{author}, map[uint]bool{authorID: true}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &resp[0], nil
}

// Unsubscribe removes the subscription of userID to authorID
func (s *SubscriptionService) Unsubscribe(ctx context.Context, userID, authorID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", authorID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load author: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("user %d: %w", authorID, ErrNotFound)
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Subscription{})
	if res.Error != nil {
		return fmt.Errorf("failed to unsubscribe: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("not subscribed: %w", ErrNotFound)
	}
	return nil
}

// List returns the authors userID follows, ordered by author id
func (s *SubscriptionService) List(ctx context.Context, userID uint, page types.PageRequest, recipesLimit int) ([]types.SubscriptionResponse, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id IN (?)", s.db.Model(&models.Subscription{}).Select("author_id").Where("user_id = ?", userID)).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var authors []models.User
	if err := q.Order("id").Offset(page.Offset()).Limit(page.Limit).Find(&authors).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	subscribed := make(map[uint]bool, len(authors))
	for _, a := range authors {
		subscribed[a.ID] = true
	}
	resp, err := s.describe(ctx, authors, subscribed, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return resp, total, nil
}

// describe builds the author profile with recipe preview and count
func (s *SubscriptionService) describe(ctx context.Context, authors []models.User, subscribed map[uint]bool, recipesLimit int) ([]types.SubscriptionResponse, error) {
	out := make([]types.SubscriptionResponse, 0, len(authors))
	for i := range authors {
		author := &authors[i]

		q := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("author_id = ?", author.ID).Session(&gorm.Session{})

		var count int64
		if err := q.Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count recipes: %w", err)
		}

		var recipes []models.Recipe
		list := q.Order("pub_date DESC, id DESC")
		if recipesLimit > 0 {
			list = list.Limit(recipesLimit)
		}
		if err := list.Find(&recipes).Error; err != nil {
			return nil, fmt.Errorf("failed to load recipes: %w", err)
		}

		out = append(out, types.SubscriptionResponse{
			UserResponse: s.presenter.user(author, subscribed[author.ID]),
			Recipes: lo.Map(recipes, func(r models.Recipe, _ int) types.ShortRecipeResponse {
				return s.presenter.shortRecipe(&r)
			}),
			RecipesCount: count,
		})
	}
	return out, nil
}
