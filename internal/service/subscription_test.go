package service_test

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

func TestSubscriptionService(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := service.NewSubscriptionService(db, newImageService(t))
	users := service.NewUserService(db, newImageService(t))
	ctx := context.Background()

	follower := testhelpers.CreateTestUser(t, db, "follower")
	chef := testhelpers.CreateTestUser(t, db, "chef")
	baker := testhelpers.CreateTestUser(t, db, "baker")
	for _, name := range []string{"Soup", "Stew", "Roast"} {
		testhelpers.CreateTestRecipe(t, db, chef, name, nil)
	}

	t.Run("cannot subscribe to yourself", func(t *testing.T) {
		_, err := svc.Subscribe(ctx, follower.ID, follower.ID, 0)
		assert.ErrorIs(t, err, service.ErrInvalidOperation)
	})

	t.Run("unknown author", func(t *testing.T) {
		_, err := svc.Subscribe(ctx, follower.ID, 9999, 0)
		assert.ErrorIs(t, err, service.ErrNotFound)
		assert.ErrorIs(t, svc.Unsubscribe(ctx, follower.ID, 9999), service.ErrNotFound)
	})

	t.Run("subscribe with a limited preview", func(t *testing.T) {
		sub, err := svc.Subscribe(ctx, follower.ID, chef.ID, 2)
		require.NoError(t, err)

		assert.Equal(t, chef.ID, sub.ID)
		assert.True(t, sub.IsSubscribed)
		assert.Equal(t, int64(3), sub.RecipesCount)
		assert.Equal(t, []string{"Roast", "Stew"}, lo.Map(sub.Recipes, func(r types.ShortRecipeResponse, _ int) string { return r.Name }))

		_, err = svc.Subscribe(ctx, follower.ID, chef.ID, 0)
		assert.ErrorIs(t, err, service.ErrAlreadyExists)

		profile, err := users.Get(ctx, follower.ID, chef.ID)
		require.NoError(t, err)
		assert.True(t, profile.IsSubscribed)

		profile, err = users.Get(ctx, baker.ID, chef.ID)
		require.NoError(t, err)
		assert.False(t, profile.IsSubscribed)
	})

	t.Run("list", func(t *testing.T) {
		_, err := svc.Subscribe(ctx, follower.ID, baker.ID, 0)
		require.NoError(t, err)

		subs, total, err := svc.List(ctx, follower.ID, firstPage(), 0)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, subs, 2)
		assert.Equal(t, chef.ID, subs[0].ID)
		assert.Len(t, subs[0].Recipes, 3)
		assert.Equal(t, baker.ID, subs[1].ID)
		assert.Empty(t, subs[1].Recipes)
		assert.Zero(t, subs[1].RecipesCount)

		subs, total, err = svc.List(ctx, chef.ID, firstPage(), 0)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, subs)
	})

	t.Run("unsubscribe", func(t *testing.T) {
		require.NoError(t, svc.Unsubscribe(ctx, follower.ID, chef.ID))
		assert.ErrorIs(t, svc.Unsubscribe(ctx, follower.ID, chef.ID), service.ErrNotFound)

		_, total, err := svc.List(ctx, follower.ID, firstPage(), 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})
}
