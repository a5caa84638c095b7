package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/server"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

const pngDataURI = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

type client struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func setupServer(t *testing.T) (*gin.Engine, *testhelpers.Catalog) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupTestDatabase(t)
	cfg := &config.Config{
		Env:                 config.Test,
		ServerHost:          "localhost",
		ServerPort:          "8000",
		SiteURL:             "https://foodgram.example",
		JWTSecret:           "test-secret",
		JWTExpiry:           time.Hour,
		PageSize:            6,
		MaxPageSize:         100,
		MinCookingTime:      1,
		MinIngredientAmount: 1,
		StorageDriver:       "local",
		MediaRoot:           t.TempDir(),
		MediaURL:            "/media/",
		CORSOrigins:         []string{"http://localhost:3000"},
		RateLimitRequests:   100,
		RateLimitWindow:     time.Minute,
	}
	srv := server.New(cfg, db, server.Options{})
	return srv.Router(), testhelpers.SeedCatalog(t, db)
}

func register(t *testing.T, router *gin.Engine, name string) *client {
	t.Helper()
	anon := &client{t: t, router: router}

	w := anon.do(http.MethodPost, "/api/users", map[string]string{
		"email":      name + "@example.com",
		"username":   name,
		"first_name": strings.ToUpper(name[:1]) + name[1:],
		"last_name":  "Tester",
		"password":   "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = anon.do(http.MethodPost, "/api/auth/token/login", map[string]string{
		"email":    name + "@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode[map[string]string](t, w)
	require.NotEmpty(t, login["auth_token"])

	return &client{t: t, router: router, token: login["auth_token"]}
}

func TestHealth(t *testing.T) {
	router, _ := setupServer(t)
	w := (&client{t: t, router: router}).do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecipeLifecycle(t *testing.T) {
	router, catalog := setupServer(t)
	anon := &client{t: t, router: router}
	alice := register(t, router, "alice")
	bob := register(t, router, "bob")

	recipeBody := map[string]any{
		"ingredients": []map[string]any{
			{"id": catalog.Flour.ID, "amount": 200},
			{"id": catalog.Sugar.ID, "amount": 50},
		},
		"tags":         []uint{catalog.Breakfast.ID},
		"image":        pngDataURI,
		"name":         "Pancakes",
		"text":         "Mix and fry.",
		"cooking_time": 20,
	}

	w := alice.do(http.MethodPost, "/api/recipes", recipeBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	recipe := decode[map[string]any](t, w)
	id := uint(recipe["id"].(float64))
	assert.Equal(t, "Pancakes", recipe["name"])
	assert.Len(t, recipe["ingredients"], 2)
	assert.True(t, strings.HasPrefix(recipe["image"].(string), "/media/recipe_images/"))

	// the uploaded image is served from the media root
	w = anon.do(http.MethodGet, recipe["image"].(string), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	recipePath := fmt.Sprintf("/api/recipes/%d", id)

	t.Run("anonymous read", func(t *testing.T) {
		w := anon.do(http.MethodGet, recipePath, nil)
		require.Equal(t, http.StatusOK, w.Code)
		got := decode[map[string]any](t, w)
		assert.Equal(t, false, got["is_favorited"])

		w = anon.do(http.MethodGet, "/api/recipes?is_favorited=1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 0, decode[map[string]any](t, w)["count"])
	})

	t.Run("only the author edits", func(t *testing.T) {
		patch := map[string]any{
			"ingredients": []map[string]any{{"id": catalog.Flour.ID, "amount": 300}},
			"tags":        []uint{catalog.Dinner.ID},
		}
		w := bob.do(http.MethodPatch, recipePath, patch)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = alice.do(http.MethodPatch, recipePath, map[string]any{
			"ingredients": []map[string]any{{"id": catalog.Flour.ID, "amount": 0}},
			"tags":        []uint{catalog.Dinner.ID},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = alice.do(http.MethodPatch, recipePath, patch)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		got := decode[map[string]any](t, w)
		assert.Equal(t, "Pancakes", got["name"])
		assert.Len(t, got["ingredients"], 1)
	})

	t.Run("favorites and cart", func(t *testing.T) {
		w := bob.do(http.MethodPost, recipePath+"/favorite", nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, http.StatusBadRequest, bob.do(http.MethodPost, recipePath+"/favorite", nil).Code)

		w = bob.do(http.MethodGet, "/api/recipes?is_favorited=1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 1, decode[map[string]any](t, w)["count"])

		w = alice.do(http.MethodGet, "/api/recipes?is_favorited=1", nil)
		assert.EqualValues(t, 0, decode[map[string]any](t, w)["count"])

		w = bob.do(http.MethodGet, "/api/recipes?is_favorited=0", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 1, decode[map[string]any](t, w)["count"])

		w = bob.do(http.MethodGet, "/api/recipes?tags=no-such-tag", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "tags", decode[map[string]any](t, w)["field"])

		require.Equal(t, http.StatusCreated, bob.do(http.MethodPost, recipePath+"/shopping_cart", nil).Code)
		w = bob.do(http.MethodGet, "/api/recipes/download_shopping_cart", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Flour, g, 300 \n", w.Body.String())

		assert.Equal(t, http.StatusNoContent, bob.do(http.MethodDelete, recipePath+"/shopping_cart", nil).Code)
		assert.Equal(t, http.StatusNotFound, bob.do(http.MethodDelete, recipePath+"/shopping_cart", nil).Code)

		w = bob.do(http.MethodGet, "/api/recipes/download_shopping_cart", nil)
		assert.Equal(t, "", w.Body.String())
	})

	t.Run("short link", func(t *testing.T) {
		w := anon.do(http.MethodGet, recipePath+"/get-link", nil)
		require.Equal(t, http.StatusOK, w.Code)
		link := decode[map[string]string](t, w)["short-link"]
		require.True(t, strings.HasPrefix(link, "https://foodgram.example/s/"), link)

		w = anon.do(http.MethodGet, strings.TrimPrefix(link, "https://foodgram.example"), nil)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, fmt.Sprintf("https://foodgram.example/recipes/%d", id), w.Header().Get("Location"))
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, bob.do(http.MethodDelete, recipePath, nil).Code)
		assert.Equal(t, http.StatusNoContent, alice.do(http.MethodDelete, recipePath, nil).Code)
		assert.Equal(t, http.StatusNotFound, anon.do(http.MethodGet, recipePath, nil).Code)
	})
}

func TestUsersAndSubscriptions(t *testing.T) {
	router, _ := setupServer(t)
	anon := &client{t: t, router: router}
	alice := register(t, router, "alice")
	bob := register(t, router, "bob")

	w := alice.do(http.MethodGet, "/api/users/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[map[string]any](t, w)
	assert.Equal(t, "alice", me["username"])
	assert.Nil(t, me["avatar"])
	aliceID := uint(me["id"].(float64))

	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/api/users/me", nil).Code)

	w = anon.do(http.MethodGet, "/api/users?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[map[string]any](t, w)
	assert.EqualValues(t, 2, page["count"])
	assert.NotNil(t, page["next"])

	t.Run("duplicate registration", func(t *testing.T) {
		w := anon.do(http.MethodPost, "/api/users", map[string]string{
			"email": "alice@example.com", "username": "alice2", "first_name": "A", "last_name": "B", "password": "correct-horse",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "email", decode[map[string]any](t, w)["field"])
	})

	t.Run("subscribe", func(t *testing.T) {
		path := fmt.Sprintf("/api/users/%d/subscribe", aliceID)
		w := bob.do(http.MethodPost, path, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		sub := decode[map[string]any](t, w)
		assert.Equal(t, true, sub["is_subscribed"])
		assert.EqualValues(t, 0, sub["recipes_count"])

		assert.Equal(t, http.StatusBadRequest, bob.do(http.MethodPost, path, nil).Code)
		assert.Equal(t, http.StatusBadRequest, alice.do(http.MethodPost, path, nil).Code)

		w = bob.do(http.MethodGet, fmt.Sprintf("/api/users/%d", aliceID), nil)
		assert.Equal(t, true, decode[map[string]any](t, w)["is_subscribed"])

		w = bob.do(http.MethodGet, "/api/users/subscriptions?recipes_limit=2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 1, decode[map[string]any](t, w)["count"])

		assert.Equal(t, http.StatusNoContent, bob.do(http.MethodDelete, path, nil).Code)
		assert.Equal(t, http.StatusNotFound, bob.do(http.MethodDelete, path, nil).Code)
	})

	t.Run("avatar", func(t *testing.T) {
		w := alice.do(http.MethodPut, "/api/users/me/avatar", map[string]string{"avatar": pngDataURI})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.True(t, strings.HasPrefix(decode[map[string]string](t, w)["avatar"], "/media/users_avatars/"))

		assert.Equal(t, http.StatusNoContent, alice.do(http.MethodDelete, "/api/users/me/avatar", nil).Code)
	})

	t.Run("set password and logout", func(t *testing.T) {
		w := alice.do(http.MethodPost, "/api/users/set_password", map[string]string{
			"current_password": "wrong-password", "new_password": "new-password-1",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = alice.do(http.MethodPost, "/api/users/set_password", map[string]string{
			"current_password": "correct-horse", "new_password": "new-password-1",
		})
		assert.Equal(t, http.StatusNoContent, w.Code)

		assert.Equal(t, http.StatusNoContent, alice.do(http.MethodPost, "/api/auth/token/logout", nil).Code)
		assert.Equal(t, http.StatusUnauthorized, alice.do(http.MethodGet, "/api/users/me", nil).Code)
	})
}

func TestCatalogEndpoints(t *testing.T) {
	router, catalog := setupServer(t)
	anon := &client{t: t, router: router}

	w := anon.do(http.MethodGet, "/api/tags", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 2)

	w = anon.do(http.MethodGet, fmt.Sprintf("/api/tags/%d", catalog.Dinner.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dinner", decode[map[string]any](t, w)["slug"])

	w = anon.do(http.MethodGet, "/api/ingredients?name=FL", nil)
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[[]map[string]any](t, w)
	require.Len(t, found, 1)
	assert.Equal(t, "Flour", found[0]["name"])

	assert.Equal(t, http.StatusNotFound, anon.do(http.MethodGet, "/api/ingredients/9999", nil).Code)
}
