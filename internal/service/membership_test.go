package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func TestMembershipService(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := service.NewMembershipService(db, newImageService(t))
	ctx := context.Background()

	author := testhelpers.CreateTestUser(t, db, "author")
	reader := testhelpers.CreateTestUser(t, db, "reader")
	flour := testhelpers.CreateTestIngredient(t, db, "Flour", "g")
	recipe := testhelpers.CreateTestRecipe(t, db, author, "Bread", []testhelpers.Amount{{Ingredient: flour, Amount: 500}})

	for _, kind := range []service.RelationKind{service.RelationFavorite, service.RelationShoppingCart} {
		t.Run(kind.String(), func(t *testing.T) {
			short, err := svc.Add(ctx, kind, reader.ID, recipe.ID)
			require.NoError(t, err)
			assert.Equal(t, recipe.ID, short.ID)
			assert.Equal(t, "Bread", short.Name)
			assert.Equal(t, "/media/"+recipe.Image, short.Image)
			assert.Equal(t, recipe.CookingTime, short.CookingTime)

			_, err = svc.Add(ctx, kind, reader.ID, recipe.ID)
			assert.ErrorIs(t, err, service.ErrAlreadyExists)

			// the author's collection is independent of the reader's
			_, err = svc.Add(ctx, kind, author.ID, recipe.ID)
			require.NoError(t, err)

			require.NoError(t, svc.Remove(ctx, kind, reader.ID, recipe.ID))
			assert.ErrorIs(t, svc.Remove(ctx, kind, reader.ID, recipe.ID), service.ErrNotFound)

			_, err = svc.Add(ctx, kind, reader.ID, 9999)
			assert.ErrorIs(t, err, service.ErrNotFound)
			assert.ErrorIs(t, svc.Remove(ctx, kind, reader.ID, 9999), service.ErrNotFound)
		})
	}
}

func TestMembershipService_KindsAreSeparate(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := service.NewMembershipService(db, newImageService(t))
	ctx := context.Background()

	user := testhelpers.CreateTestUser(t, db, "cook")
	recipe := testhelpers.CreateTestRecipe(t, db, user, "Salad", nil)

	_, err := svc.Add(ctx, service.RelationFavorite, user.ID, recipe.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Remove(ctx, service.RelationShoppingCart, user.ID, recipe.ID), service.ErrNotFound)
	_, err = svc.Add(ctx, service.RelationShoppingCart, user.ID, recipe.ID)
	assert.NoError(t, err)
}
