package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// RelationKind selects one of the per-user recipe collections
type RelationKind int

const (
	RelationFavorite RelationKind = iota
	RelationShoppingCart
)

func (k RelationKind) String() string {
	switch k {
	case RelationFavorite:
		return "favorites"
	case RelationShoppingCart:
		return "shopping cart"
	default:
		return fmt.Sprintf("RelationKind(%d)", int(k))
	}
}

// model returns the gorm model backing the collection, optionally filled in
func (k RelationKind) model(userID, recipeID uint) interface{} {
	switch k {
	case RelationShoppingCart:
		return &models.ShoppingCartEntry{UserID: userID, RecipeID: recipeID}
	default:
		return &models.Favorite{UserID: userID, RecipeID: recipeID}
	}
}

// MembershipService adds and removes recipes from a user's favorites or
// shopping cart. Both collections share one code path.
type MembershipService struct {
	db        *gorm.DB
	presenter presenter
}

func NewMembershipService(db *gorm.DB, images *ImageService) *MembershipService {
	return &MembershipService{db: db, presenter: presenter{db: db, images: images}}
}

// Add puts the recipe into the collection and returns its short form
func (s *MembershipService) Add(ctx context.Context, kind RelationKind, userID, recipeID uint) (*types.ShortRecipeResponse, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recipe %d: %w", recipeID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}

	exists, err := s.exists(ctx, kind, userID, recipeID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("recipe already added to %s: %w", kind, ErrAlreadyExists)
	}

	// the unique index settles a race between the check above and this insert
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(kind.model(userID, recipeID)).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("recipe already added to %s: %w", kind, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to add recipe to %s: %w", kind, err)
	}

	log.Debug("recipe added", "collection", kind.String(), "user_id", userID, "recipe_id", recipeID)
	short := s.presenter.shortRecipe(&recipe)
	return &short, nil
}

// Remove takes the recipe out of the collection
func (s *MembershipService) Remove(ctx context.Context, kind RelationKind, userID, recipeID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", recipeID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load recipe: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("recipe %d: %w", recipeID, ErrNotFound)
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(kind.model(0, 0))
	if res.Error != nil {
		return fmt.Errorf("failed to remove recipe from %s: %w", kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("recipe is not in %s: %w", kind, ErrNotFound)
	}

	log.Debug("recipe removed", "collection", kind.String(), "user_id", userID, "recipe_id", recipeID)
	return nil
}

func (s *MembershipService) exists(ctx context.Context, kind RelationKind, userID, recipeID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(kind.model(0, 0)).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", kind, err)
	}
	return count > 0, nil
}

// relationFlags reports which of recipeIDs are in the user's collection
func relationFlags(ctx context.Context, db *gorm.DB, kind RelationKind, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	flags := make(map[uint]bool, len(recipeIDs))
	if userID == 0 || len(recipeIDs) == 0 {
		return flags, nil
	}
	var ids []uint
	err := db.WithContext(ctx).Model(kind.model(0, 0)).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", kind, err)
	}
	for _, id := range ids {
		flags[id] = true
	}
	return flags, nil
}

// memberRecipeIDs is a subquery selecting the recipe ids in the user's collection
func memberRecipeIDs(db *gorm.DB, kind RelationKind, userID uint) *gorm.DB {
	return db.Model(kind.model(0, 0)).Select("recipe_id").Where("user_id = ?", userID)
}
