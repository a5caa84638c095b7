package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/mocks"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

type recipeMocks struct {
	recipes     *mocks.MockRecipeService
	memberships *mocks.MockMembershipService
	shopping    *mocks.MockShoppingListService
	auth        *mocks.MockAuthService
}

func setupRecipeRouter(t *testing.T) (*gin.Engine, *recipeMocks) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := &recipeMocks{
		recipes:     new(mocks.MockRecipeService),
		memberships: new(mocks.MockMembershipService),
		shopping:    new(mocks.MockShoppingListService),
		auth:        new(mocks.MockAuthService),
	}
	m.auth.On("ValidateToken", mock.Anything, "reader-token").Return(&types.TokenClaims{UserID: 42}, nil)

	handler := api.NewRecipeHandler(m.recipes, m.memberships, m.shopping, m.auth, nil, api.Paginator{DefaultLimit: 6, MaxLimit: 100})
	router := gin.New()
	handler.RegisterRoutes(router.Group("/api"))
	router.GET("/s/:code", handler.ShortLinkRedirect)

	t.Cleanup(func() {
		m.recipes.AssertExpectations(t)
		m.memberships.AssertExpectations(t)
		m.shopping.AssertExpectations(t)
	})
	return router, m
}

func do(router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRecipeHandler_ListParsesFilters(t *testing.T) {
	router, m := setupRecipeRouter(t)

	want := types.RecipeFilter{
		Tags:        []string{"breakfast", "lunch", "dinner"},
		AuthorID:    lo.ToPtr(uint(3)),
		IsFavorited: lo.ToPtr(true),
	}
	results := make([]types.RecipeResponse, 2)
	m.recipes.On("List", mock.Anything, uint(42), want, types.PageRequest{Page: 2, Limit: 2}).
		Return(results, int64(7), nil)

	w := do(router, http.MethodGet, "/api/recipes?tags=breakfast,lunch&tags=dinner&author=3&is_favorited=1&page=2&limit=2", "reader-token", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page types.Page[types.RecipeResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(7), page.Count)
	assert.Len(t, page.Results, 2)
	require.NotNil(t, page.Next)
	assert.Contains(t, *page.Next, "page=3")
	require.NotNil(t, page.Previous)
	assert.Contains(t, *page.Previous, "page=1")
}

func TestRecipeHandler_ListRejectsBadQuery(t *testing.T) {
	router, _ := setupRecipeRouter(t)

	for _, query := range []string{"is_favorited=maybe", "is_in_shopping_cart=2", "author=me", "page=0", "limit=-1"} {
		t.Run(query, func(t *testing.T) {
			w := do(router, http.MethodGet, "/api/recipes?"+query, "", "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRecipeHandler_ErrorMapping(t *testing.T) {
	router, m := setupRecipeRouter(t)

	m.recipes.On("Get", mock.Anything, uint(0), uint(1)).Return(nil, fmt.Errorf("recipe 1: %w", service.ErrNotFound))
	m.recipes.On("Delete", mock.Anything, uint(42), uint(2)).Return(fmt.Errorf("recipe 2: %w", service.ErrForbidden))
	m.memberships.On("Add", mock.Anything, service.RelationFavorite, uint(42), uint(3)).
		Return(nil, fmt.Errorf("recipe already added: %w", service.ErrAlreadyExists))
	m.memberships.On("Remove", mock.Anything, service.RelationShoppingCart, uint(42), uint(4)).
		Return(fmt.Errorf("not in cart: %w", service.ErrNotFound))
	m.recipes.On("Update", mock.Anything, uint(42), uint(5), mock.Anything).
		Return(nil, &service.FieldError{Field: "ingredients", Message: "amount must be at least 1", Err: service.ErrInvalidOperation})
	m.recipes.On("Get", mock.Anything, uint(0), uint(6)).Return(nil, fmt.Errorf("database is on fire"))

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		status int
	}{
		{name: "missing recipe", method: http.MethodGet, path: "/api/recipes/1", status: http.StatusNotFound},
		{name: "non numeric id", method: http.MethodGet, path: "/api/recipes/abc", status: http.StatusNotFound},
		{name: "not the author", method: http.MethodDelete, path: "/api/recipes/2", token: "reader-token", status: http.StatusForbidden},
		{name: "duplicate favorite", method: http.MethodPost, path: "/api/recipes/3/favorite", token: "reader-token", status: http.StatusBadRequest},
		{name: "not in cart", method: http.MethodDelete, path: "/api/recipes/4/shopping_cart", token: "reader-token", status: http.StatusNotFound},
		{name: "invalid amount", method: http.MethodPatch, path: "/api/recipes/5", token: "reader-token", body: `{"ingredients":[{"id":1,"amount":0}],"tags":[1]}`, status: http.StatusBadRequest},
		{name: "anonymous write", method: http.MethodPost, path: "/api/recipes", body: `{}`, status: http.StatusUnauthorized},
		{name: "anonymous favorite", method: http.MethodPost, path: "/api/recipes/3/favorite", status: http.StatusUnauthorized},
		{name: "unexpected error", method: http.MethodGet, path: "/api/recipes/6", status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	t.Run("field errors name the field", func(t *testing.T) {
		w := do(router, http.MethodPatch, "/api/recipes/5", "reader-token", `{"ingredients":[{"id":1,"amount":0}],"tags":[1]}`)
		assert.JSONEq(t, `{"error":"amount must be at least 1","field":"ingredients"}`, w.Body.String())
	})

	t.Run("internal errors are not leaked", func(t *testing.T) {
		w := do(router, http.MethodGet, "/api/recipes/6", "", "")
		assert.NotContains(t, w.Body.String(), "fire")
	})
}

func TestRecipeHandler_Membership(t *testing.T) {
	router, m := setupRecipeRouter(t)

	short := &types.ShortRecipeResponse{ID: 9, Name: "Soup", Image: "/media/recipe_images/soup.png", CookingTime: 20}
	m.memberships.On("Add", mock.Anything, service.RelationShoppingCart, uint(42), uint(9)).Return(short, nil)
	m.memberships.On("Remove", mock.Anything, service.RelationFavorite, uint(42), uint(9)).Return(nil)

	w := do(router, http.MethodPost, "/api/recipes/9/shopping_cart", "reader-token", "")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":9,"name":"Soup","image":"/media/recipe_images/soup.png","cooking_time":20}`, w.Body.String())

	w = do(router, http.MethodDelete, "/api/recipes/9/favorite", "reader-token", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecipeHandler_DownloadShoppingCart(t *testing.T) {
	router, m := setupRecipeRouter(t)
	m.shopping.On("Build", mock.Anything, uint(42)).Return("Flour, g, 500 \n", nil)

	w := do(router, http.MethodGet, "/api/recipes/download_shopping_cart", "reader-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Flour, g, 500 \n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
}

func TestRecipeHandler_ShortLinks(t *testing.T) {
	router, m := setupRecipeRouter(t)
	m.recipes.On("ShortLink", mock.Anything, uint(35)).Return("https://foodgram.example/s/z", nil)
	m.recipes.On("ResolveShortLink", mock.Anything, "z").Return(uint(35), nil)
	m.recipes.On("RecipeURL", uint(35)).Return("https://foodgram.example/recipes/35")
	m.recipes.On("ResolveShortLink", mock.Anything, "nope").Return(uint(0), service.ErrNotFound)

	w := do(router, http.MethodGet, "/api/recipes/35/get-link", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"short-link":"https://foodgram.example/s/z"}`, w.Body.String())

	w = do(router, http.MethodGet, "/s/z", "", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://foodgram.example/recipes/35", w.Header().Get("Location"))

	w = do(router, http.MethodGet, "/s/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
