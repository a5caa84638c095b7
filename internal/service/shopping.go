package service

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ShoppingItem is one aggregated line of a shopping list
type ShoppingItem struct {
	Name            string
	MeasurementUnit string
	Total           int64
}

type ShoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// Items sums ingredient amounts over every recipe in the user's cart, grouped
// by ingredient name and unit and ordered by name then unit.
func (s *ShoppingListService) Items(ctx context.Context, userID uint) ([]ShoppingItem, error) {
	var items []ShoppingItem
	err := s.db.WithContext(ctx).
		Table("recipe_ingredients AS ri").
		Select("i.name AS name, i.measurement_unit AS measurement_unit, SUM(ri.amount) AS total").
		Joins("JOIN ingredients AS i ON i.id = ri.ingredient_id").
		Joins("JOIN shopping_cart_entries AS sc ON sc.recipe_id = ri.recipe_id").
		Where("sc.user_id = ?", userID).
		Group("i.name, i.measurement_unit").
		Order("i.name, i.measurement_unit").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate shopping cart: %w", err)
	}
	return items, nil
}

// Build renders the user's shopping list as plain text
func (s *ShoppingListService) Build(ctx context.Context, userID uint) (string, error) {
	items, err := s.Items(ctx, userID)
	if err != nil {
		return "", err
	}
	return RenderShoppingList(items), nil
}

// RenderShoppingList writes one "<name>, <unit>, <total> \n" line per item.
// The trailing space before the newline is part of the format.
func RenderShoppingList(items []ShoppingItem) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "%s, %s, %d \n", item.Name, item.MeasurementUnit, item.Total)
	}
	return b.String()
}
