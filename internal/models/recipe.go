package models

import (
	"time"
)

type Recipe struct {
	ID          uint               `gorm:"primarykey" json:"id"`
	AuthorID    uint               `gorm:"not null;index" json:"author_id"`
	Author      User               `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	Name        string             `gorm:"size:256;not null" json:"name"`
	Image       string             `gorm:"size:255;not null" json:"image"`
	Text        string             `gorm:"type:text;not null" json:"text"`
	CookingTime int                `gorm:"not null;check:chk_recipes_cooking_time,cooking_time >= 1" json:"cooking_time"`
	PubDate     time.Time          `gorm:"autoCreateTime;index" json:"pub_date"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"ingredients"`
	Tags        []Tag              `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE" json:"tags"`
}

// RecipeIngredient is the amount of one ingredient used by a recipe.
type RecipeIngredient struct {
	ID           uint       `gorm:"primarykey" json:"-"`
	RecipeID     uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient" json:"recipe_id"`
	IngredientID uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient;index" json:"ingredient_id"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE" json:"ingredient"`
	Amount       int        `gorm:"not null;check:chk_recipe_ingredients_amount,amount >= 1" json:"amount"`
}

// RecipeTag is the join row behind Recipe.Tags.
type RecipeTag struct {
	RecipeID uint `gorm:"primaryKey"`
	TagID    uint `gorm:"primaryKey;index"`
}

func (RecipeTag) TableName() string {
	return "recipe_tags"
}

type Favorite struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorite_user_recipe" json:"user_id"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_favorite_user_recipe;index" json:"recipe_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Recipe    Recipe    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type ShoppingCartEntry struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_shopping_cart_user_recipe" json:"user_id"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_shopping_cart_user_recipe;index" json:"recipe_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Recipe    Recipe    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
