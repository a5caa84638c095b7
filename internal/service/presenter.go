package service

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// presenter turns models into the representations seen by a particular viewer.
// viewerID 0 is the anonymous viewer, for whom every flag is false.
type presenter struct {
	db     *gorm.DB
	images *ImageService
}

func (p presenter) subscribedTo(ctx context.Context, viewerID uint, authorIDs []uint) (map[uint]bool, error) {
	flags := make(map[uint]bool, len(authorIDs))
	if viewerID == 0 || len(authorIDs) == 0 {
		return flags, nil
	}
	var ids []uint
	err := p.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id IN ?", viewerID, lo.Uniq(authorIDs)).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	for _, id := range ids {
		flags[id] = true
	}
	return flags, nil
}

func (p presenter) user(u *models.User, subscribed bool) types.UserResponse {
	resp := types.UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
	if u.Avatar != "" {
		resp.Avatar = lo.ToPtr(p.images.URL(u.Avatar))
	}
	return resp
}

func (p presenter) users(ctx context.Context, viewerID uint, users []models.User) ([]types.UserResponse, error) {
	flags, err := p.subscribedTo(ctx, viewerID, lo.Map(users, func(u models.User, _ int) uint { return u.ID }))
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(u models.User, _ int) types.UserResponse {
		return p.user(&u, flags[u.ID])
	}), nil
}

func (p presenter) shortRecipe(r *models.Recipe) types.ShortRecipeResponse {
	return types.ShortRecipeResponse{
		ID:          r.ID,
		Name:        r.Name,
		Image:       p.images.URL(r.Image),
		CookingTime: r.CookingTime,
	}
}

// recipes expects Author, Tags and Ingredients.Ingredient to be preloaded
func (p presenter) recipes(ctx context.Context, viewerID uint, recipes []models.Recipe) ([]types.RecipeResponse, error) {
	recipeIDs := lo.Map(recipes, func(r models.Recipe, _ int) uint { return r.ID })

	favorited, err := relationFlags(ctx, p.db, RelationFavorite, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	inCart, err := relationFlags(ctx, p.db, RelationShoppingCart, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	subscribed, err := p.subscribedTo(ctx, viewerID, lo.Map(recipes, func(r models.Recipe, _ int) uint { return r.AuthorID }))
	if err != nil {
		return nil, err
	}

	out := make([]types.RecipeResponse, 0, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		out = append(out, types.RecipeResponse{
			ID: r.ID,
			Tags: lo.Map(r.Tags, func(t models.Tag, _ int) types.TagResponse {
				return tagResponse(&t)
			}),
			Author: p.user(&r.Author, subscribed[r.AuthorID]),
			Ingredients: lo.Map(r.Ingredients, func(ri models.RecipeIngredient, _ int) types.RecipeIngredientResponse {
				return types.RecipeIngredientResponse{
					ID:              ri.IngredientID,
					Name:            ri.Ingredient.Name,
					MeasurementUnit: ri.Ingredient.MeasurementUnit,
					Amount:          ri.Amount,
				}
			}),
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            p.images.URL(r.Image),
			Text:             r.Text,
			CookingTime:      r.CookingTime,
		})
	}
	return out, nil
}

func tagResponse(t *models.Tag) types.TagResponse {
	return types.TagResponse{ID: t.ID, Name: t.Name, Slug: t.Slug}
}

func ingredientResponse(i *models.Ingredient) types.IngredientResponse {
	return types.IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

// withRecipeDetails preloads everything presenter.recipes needs
func withRecipeDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id") }).
		Preload("Ingredients.Ingredient")
}
