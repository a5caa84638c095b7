package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

const maxRecipeNameLength = 256

// RecipeLimits are the configurable lower bounds on recipe values
type RecipeLimits struct {
	MinCookingTime      int
	MinIngredientAmount int
}

type RecipeService struct {
	db        *gorm.DB
	images    *ImageService
	presenter presenter
	limits    RecipeLimits
	siteURL   string
}

func NewRecipeService(db *gorm.DB, images *ImageService, limits RecipeLimits, siteURL string) *RecipeService {
	if limits.MinCookingTime < 1 {
		limits.MinCookingTime = 1
	}
	if limits.MinIngredientAmount < 1 {
		limits.MinIngredientAmount = 1
	}
	return &RecipeService{
		db:        db,
		images:    images,
		presenter: presenter{db: db, images: images},
		limits:    limits,
		siteURL:   strings.TrimRight(siteURL, "/"),
	}
}

// List returns one page of recipes matching filter, newest first, with the
// total number of matches.
func (s *RecipeService) List(ctx context.Context, viewerID uint, filter types.RecipeFilter, page types.PageRequest) ([]types.RecipeResponse, int64, error) {
	slugs := lo.Uniq(filter.Tags)
	if len(slugs) > 0 {
		if err := s.requireTagSlugs(ctx, slugs); err != nil {
			return nil, 0, err
		}
	}

	// Nothing is favorited or in the cart of an anonymous viewer.
	if viewerID == 0 && (lo.FromPtr(filter.IsFavorited) || lo.FromPtr(filter.IsInShoppingCart)) {
		return []types.RecipeResponse{}, 0, nil
	}

	q := s.db.WithContext(ctx).Model(&models.Recipe{})

	if len(slugs) > 0 {
		tagged := s.db.Model(&models.RecipeTag{}).
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", slugs)
		q = q.Where("recipes.id IN (?)", tagged)
	}
	if filter.AuthorID != nil {
		q = q.Where("recipes.author_id = ?", *filter.AuthorID)
	}
	// false and absent both mean no restriction
	if lo.FromPtr(filter.IsFavorited) {
		q = q.Where("recipes.id IN (?)", memberRecipeIDs(s.db, RelationFavorite, viewerID))
	}
	if lo.FromPtr(filter.IsInShoppingCart) {
		q = q.Where("recipes.id IN (?)", memberRecipeIDs(s.db, RelationShoppingCart, viewerID))
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	var recipes []models.Recipe
	err := withRecipeDetails(q).
		Order("recipes.pub_date DESC, recipes.id DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}

	resp, err := s.presenter.recipes(ctx, viewerID, recipes)
	if err != nil {
		return nil, 0, err
	}
	return resp, total, nil
}

// requireTagSlugs rejects a tag filter naming a slug that does not exist.
func (s *RecipeService) requireTagSlugs(ctx context.Context, slugs []string) error {
	var known []string
	err := s.db.WithContext(ctx).Model(&models.Tag{}).
		Where("slug IN ?", slugs).
		Pluck("slug", &known).Error
	if err != nil {
		return fmt.Errorf("failed to look up tags: %w", err)
	}
	if missing, _ := lo.Difference(slugs, known); len(missing) > 0 {
		return validationError("tags", "unknown tag %q", missing[0])
	}
	return nil
}

func (s *RecipeService) Get(ctx context.Context, viewerID, id uint) (*types.RecipeResponse, error) {
	recipe, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.present(ctx, viewerID, recipe)
}

// Create validates the input and stores the recipe with its ingredient and
// tag links in one transaction.
func (s *RecipeService) Create(ctx context.Context, authorID uint, in *types.RecipeInput) (*types.RecipeResponse, error) {
	if err := s.validate(ctx, in, true); err != nil {
		return nil, err
	}

	imageKey, err := s.images.Save(ctx, RecipeImagesFolder, *in.Image)
	if err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		AuthorID:    authorID,
		Name:        strings.TrimSpace(*in.Name),
		Image:       imageKey,
		Text:        *in.Text,
		CookingTime: *in.CookingTime,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return fmt.Errorf("failed to create recipe: %w", err)
		}
		return replaceLinks(tx, recipe.ID, in)
	})
	if err != nil {
		s.images.Delete(ctx, imageKey)
		return nil, err
	}

	log.Info("recipe created", "recipe_id", recipe.ID, "author_id", authorID)
	return s.Get(ctx, authorID, recipe.ID)
}

// Update replaces the recipe's ingredients and tags wholesale and applies any
// scalar fields present in the input. Only the author may update.
func (s *RecipeService) Update(ctx context.Context, userID, id uint, in *types.RecipeInput) (*types.RecipeResponse, error) {
	recipe, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID != userID {
		return nil, fmt.Errorf("recipe %d: %w", id, ErrForbidden)
	}
	if err := s.validate(ctx, in, false); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Text != nil {
		updates["text"] = *in.Text
	}
	if in.CookingTime != nil {
		updates["cooking_time"] = *in.CookingTime
	}
	var newImage string
	if in.Image != nil {
		if newImage, err = s.images.Save(ctx, RecipeImagesFolder, *in.Image); err != nil {
			return nil, err
		}
		updates["image"] = newImage
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.Recipe{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update recipe: %w", err)
			}
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return fmt.Errorf("failed to clear recipe ingredients: %w", err)
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeTag{}).Error; err != nil {
			return fmt.Errorf("failed to clear recipe tags: %w", err)
		}
		return replaceLinks(tx, id, in)
	})
	if err != nil {
		s.images.Delete(ctx, newImage)
		return nil, err
	}
	if newImage != "" {
		s.images.Delete(ctx, recipe.Image)
	}

	log.Info("recipe updated", "recipe_id", id)
	return s.Get(ctx, userID, id)
}

// replaceLinks inserts the ingredient and tag rows of in for recipeID. The
// caller is responsible for removing the previous rows.
func replaceLinks(tx *gorm.DB, recipeID uint, in *types.RecipeInput) error {
	ingredients := lo.Map(in.Ingredients, func(a types.IngredientAmount, _ int) models.RecipeIngredient {
		return models.RecipeIngredient{RecipeID: recipeID, IngredientID: a.ID, Amount: a.Amount}
	})
	if err := tx.Omit(clause.Associations).Create(&ingredients).Error; err != nil {
		return fmt.Errorf("failed to link ingredients: %w", err)
	}

	tags := lo.Map(lo.Uniq(in.Tags), func(tagID uint, _ int) models.RecipeTag {
		return models.RecipeTag{RecipeID: recipeID, TagID: tagID}
	})
	if err := tx.Create(&tags).Error; err != nil {
		return fmt.Errorf("failed to link tags: %w", err)
	}
	return nil
}

// Delete removes the recipe and everything that references it. Only the
// author may delete.
func (s *RecipeService) Delete(ctx context.Context, userID, id uint) error {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("recipe %d: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to load recipe: %w", err)
	}
	if recipe.AuthorID != userID {
		return fmt.Errorf("recipe %d: %w", id, ErrForbidden)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.RecipeIngredient{},
			&models.RecipeTag{},
			&models.Favorite{},
			&models.ShoppingCartEntry{},
		} {
			if err := tx.Where("recipe_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Recipe{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	s.images.Delete(ctx, recipe.Image)
	log.Info("recipe deleted", "recipe_id", id)
	return nil
}

// ShortLink returns the short URL of an existing recipe
func (s *RecipeService) ShortLink(ctx context.Context, id uint) (string, error) {
	if err := s.ensureExists(ctx, id); err != nil {
		return "", err
	}
	return s.siteURL + "/s/" + strconv.FormatUint(uint64(id), 36), nil
}

// ResolveShortLink maps a short code back to a recipe id
func (s *RecipeService) ResolveShortLink(ctx context.Context, code string) (uint, error) {
	id, err := strconv.ParseUint(strings.ToLower(code), 36, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("short link %q: %w", code, ErrNotFound)
	}
	if err := s.ensureExists(ctx, uint(id)); err != nil {
		return 0, err
	}
	return uint(id), nil
}

// RecipeURL is the frontend page a short link redirects to
func (s *RecipeService) RecipeURL(id uint) string {
	return fmt.Sprintf("%s/recipes/%d", s.siteURL, id)
}

func (s *RecipeService) ensureExists(ctx context.Context, id uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load recipe: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("recipe %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *RecipeService) load(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := withRecipeDetails(s.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recipe %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	return &recipe, nil
}

func (s *RecipeService) present(ctx context.Context, viewerID uint, recipe *models.Recipe) (*types.RecipeResponse, error) {
	resp, err := s.presenter.recipes(ctx, viewerID, []models.Recipe{*recipe})
	if err != nil {
		return nil, err
	}
	return &resp[0], nil
}

// validate checks a create or update request before anything is written.
// Creation requires every scalar field; an update requires only the lists.
func (s *RecipeService) validate(ctx context.Context, in *types.RecipeInput, creating bool) error {
	if in == nil {
		return validationError("body", "request body is required")
	}

	if creating {
		switch {
		case in.Name == nil:
			return validationError("name", "this field is required")
		case in.Text == nil:
			return validationError("text", "this field is required")
		case in.CookingTime == nil:
			return validationError("cooking_time", "this field is required")
		case in.Image == nil:
			return validationError("image", "this field is required")
		}
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return validationError("name", "must not be blank")
		}
		if utf8.RuneCountInString(name) > maxRecipeNameLength {
			return validationError("name", "must be at most %d characters", maxRecipeNameLength)
		}
	}
	if in.Text != nil && strings.TrimSpace(*in.Text) == "" {
		return validationError("text", "must not be blank")
	}
	if in.Image != nil && strings.TrimSpace(*in.Image) == "" {
		return validationError("image", "must not be blank")
	}
	if in.CookingTime != nil && *in.CookingTime < s.limits.MinCookingTime {
		return invalidOperation("cooking_time", "must be at least %d", s.limits.MinCookingTime)
	}

	if err := s.validateTags(ctx, in.Tags); err != nil {
		return err
	}
	return s.validateIngredients(ctx, in.Ingredients)
}

func (s *RecipeService) validateTags(ctx context.Context, tagIDs []uint) error {
	if len(tagIDs) == 0 {
		return validationError("tags", "at least one tag is required")
	}
	if dups := lo.FindDuplicates(tagIDs); len(dups) > 0 {
		return validationError("tags", "duplicate tag %d", dups[0])
	}

	var found []uint
	if err := s.db.WithContext(ctx).Model(&models.Tag{}).Where("id IN ?", tagIDs).Pluck("id", &found).Error; err != nil {
		return fmt.Errorf("failed to check tags: %w", err)
	}
	if missing, _ := lo.Difference(tagIDs, found); len(missing) > 0 {
		return validationError("tags", "tag %d does not exist", missing[0])
	}
	return nil
}

func (s *RecipeService) validateIngredients(ctx context.Context, amounts []types.IngredientAmount) error {
	if len(amounts) == 0 {
		return validationError("ingredients", "at least one ingredient is required")
	}

	ids := lo.Map(amounts, func(a types.IngredientAmount, _ int) uint { return a.ID })
	if dups := lo.FindDuplicates(ids); len(dups) > 0 {
		return validationError("ingredients", "duplicate ingredient %d", dups[0])
	}
	for _, a := range amounts {
		if a.Amount < s.limits.MinIngredientAmount {
			return invalidOperation("ingredients", "amount of ingredient %d must be at least %d", a.ID, s.limits.MinIngredientAmount)
		}
	}

	var found []uint
	if err := s.db.WithContext(ctx).Model(&models.Ingredient{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return fmt.Errorf("failed to check ingredients: %w", err)
	}
	if missing, _ := lo.Difference(ids, found); len(missing) > 0 {
		return validationError("ingredients", "ingredient %d does not exist", missing[0])
	}
	return nil
}
