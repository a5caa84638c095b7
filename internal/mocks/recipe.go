package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// MockRecipeService is a mock implementation of the recipe service
type MockRecipeService struct {
	mock.Mock
}

func (m *MockRecipeService) List(ctx context.Context, viewerID uint, filter types.RecipeFilter, page types.PageRequest) ([]types.RecipeResponse, int64, error) {
	args := m.Called(ctx, viewerID, filter, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]types.RecipeResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockRecipeService) Get(ctx context.Context, viewerID, id uint) (*types.RecipeResponse, error) {
	args := m.Called(ctx, viewerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RecipeResponse), args.Error(1)
}

func (m *MockRecipeService) Create(ctx context.Context, authorID uint, in *types.RecipeInput) (*types.RecipeResponse, error) {
	args := m.Called(ctx, authorID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RecipeResponse), args.Error(1)
}

func (m *MockRecipeService) Update(ctx context.Context, userID, id uint, in *types.RecipeInput) (*types.RecipeResponse, error) {
	args := m.Called(ctx, userID, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RecipeResponse), args.Error(1)
}

func (m *MockRecipeService) Delete(ctx context.Context, userID, id uint) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockRecipeService) ShortLink(ctx context.Context, id uint) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockRecipeService) ResolveShortLink(ctx context.Context, code string) (uint, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockRecipeService) RecipeURL(id uint) string {
	return m.Called(id).String(0)
}

// MockMembershipService is a mock implementation of the favorite and cart toggles
type MockMembershipService struct {
	mock.Mock
}

func (m *MockMembershipService) Add(ctx context.Context, kind service.RelationKind, userID, recipeID uint) (*types.ShortRecipeResponse, error) {
	args := m.Called(ctx, kind, userID, recipeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ShortRecipeResponse), args.Error(1)
}

func (m *MockMembershipService) Remove(ctx context.Context, kind service.RelationKind, userID, recipeID uint) error {
	return m.Called(ctx, kind, userID, recipeID).Error(0)
}

type MockShoppingListService struct {
	mock.Mock
}

func (m *MockShoppingListService) Build(ctx context.Context, userID uint) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}
