package models

import (
	"fmt"

	"gorm.io/gorm"
)

// All returns every persisted model in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Tag{},
		&Ingredient{},
		&Recipe{},
		&RecipeIngredient{},
		&RecipeTag{},
		&Favorite{},
		&ShoppingCartEntry{},
		&Subscription{},
	}
}

// AutoMigrate creates or updates the schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&Recipe{}, "Tags", &RecipeTag{}); err != nil {
		return fmt.Errorf("failed to set up recipe_tags join table: %w", err)
	}
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}
	return nil
}
