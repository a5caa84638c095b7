package service_test

import (
	"testing"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

// a 1x1 transparent PNG
const pngDataURI = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func newImageService(t *testing.T) *service.ImageService {
	t.Helper()
	return service.NewImageService(service.NewLocalStore(t.TempDir(), "/media/"))
}

func newRecipeService(t *testing.T, db *gorm.DB) *service.RecipeService {
	t.Helper()
	return service.NewRecipeService(db, newImageService(t), service.RecipeLimits{
		MinCookingTime:      1,
		MinIngredientAmount: 1,
	}, "https://foodgram.example")
}

func recipeInput(name string, tags []uint, amounts ...types.IngredientAmount) *types.RecipeInput {
	return &types.RecipeInput{
		Ingredients: amounts,
		Tags:        tags,
		Image:       lo.ToPtr(pngDataURI),
		Name:        lo.ToPtr(name),
		Text:        lo.ToPtr("Whisk everything together."),
		CookingTime: lo.ToPtr(15),
	}
}

func firstPage() types.PageRequest {
	return types.PageRequest{Page: 1, Limit: 10}
}

func recipeIDs(recipes []types.RecipeResponse) []uint {
	return lo.Map(recipes, func(r types.RecipeResponse, _ int) uint { return r.ID })
}

// fixture is a small catalog shared by the recipe tests
type fixture struct {
	db        *gorm.DB
	alice     uint
	bob       uint
	flour     uint
	sugar     uint
	breakfast uint
	dinner    uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testhelpers.SetupTestDatabase(t)
	return &fixture{
		db:        db,
		alice:     testhelpers.CreateTestUser(t, db, "alice").ID,
		bob:       testhelpers.CreateTestUser(t, db, "bob").ID,
		flour:     testhelpers.CreateTestIngredient(t, db, "Flour", "g").ID,
		sugar:     testhelpers.CreateTestIngredient(t, db, "Sugar", "g").ID,
		breakfast: testhelpers.CreateTestTag(t, db, "Breakfast", "breakfast").ID,
		dinner:    testhelpers.CreateTestTag(t, db, "Dinner", "dinner").ID,
	}
}
