package testhelpers

import (
	"fmt"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
)

// TestPassword is the plain-text password of every user created by CreateTestUser.
const TestPassword = "s3cret-pass"

// CreateTestUser inserts a user whose email and username derive from name.
func CreateTestUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:        name + "@example.com",
		Username:     name,
		FirstName:    "First " + name,
		LastName:     "Last " + name,
		PasswordHash: string(hash),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return user
}

func CreateTestTag(t *testing.T, db *gorm.DB, name, slug string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Slug: slug}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("failed to create tag %s: %v", slug, err)
	}
	return tag
}

func CreateTestIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ing := &models.Ingredient{Name: name, MeasurementUnit: unit}
	if err := db.Create(ing).Error; err != nil {
		t.Fatalf("failed to create ingredient %s: %v", name, err)
	}
	return ing
}

// Amount pairs an ingredient with the quantity a recipe uses.
type Amount struct {
	Ingredient *models.Ingredient
	Amount     int
}

// CreateTestRecipe inserts a recipe with its ingredient and tag links directly,
// bypassing service validation.
func CreateTestRecipe(t *testing.T, db *gorm.DB, author *models.User, name string, amounts []Amount, tags ...*models.Tag) *models.Recipe {
	t.Helper()

	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        name,
		Image:       fmt.Sprintf("recipe_images/%s.png", name),
		Text:        "Mix and cook " + name,
		CookingTime: 10,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Ingredients", "Tags").Create(recipe).Error; err != nil {
			return err
		}
		for _, a := range amounts {
			ri := models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: a.Ingredient.ID, Amount: a.Amount}
			if err := tx.Omit("Ingredient").Create(&ri).Error; err != nil {
				return err
			}
		}
		for _, tag := range tags {
			if err := tx.Create(&models.RecipeTag{RecipeID: recipe.ID, TagID: tag.ID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to create recipe %s: %v", name, err)
	}
	return recipe
}

// Catalog is a small set of tags and ingredients for API level tests.
type Catalog struct {
	Flour     *models.Ingredient
	Sugar     *models.Ingredient
	Breakfast *models.Tag
	Dinner    *models.Tag
}

func SeedCatalog(t *testing.T, db *gorm.DB) *Catalog {
	t.Helper()
	return &Catalog{
		Flour:     CreateTestIngredient(t, db, "Flour", "g"),
		Sugar:     CreateTestIngredient(t, db, "Sugar", "g"),
		Breakfast: CreateTestTag(t, db, "Breakfast", "breakfast"),
		Dinner:    CreateTestTag(t, db, "Dinner", "dinner"),
	}
}
