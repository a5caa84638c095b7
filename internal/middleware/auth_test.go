package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/mocks"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

func setupAuthRouter(validator middleware.TokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	whoami := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": middleware.CurrentUserID(c)})
	}
	router.GET("/private", middleware.AuthMiddleware(validator), whoami)
	router.GET("/public", middleware.OptionalAuth(validator), whoami)
	return router
}

func TestAuthMiddleware(t *testing.T) {
	validator := new(mocks.MockAuthService)
	validator.On("ValidateToken", mock.Anything, "good").Return(&types.TokenClaims{UserID: 7}, nil)
	validator.On("ValidateToken", mock.Anything, "bad").Return(nil, service.ErrInvalidToken)
	router := setupAuthRouter(validator)

	tests := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{name: "private without header", path: "/private", status: http.StatusUnauthorized},
		{name: "private with bearer", path: "/private", header: "Bearer good", status: http.StatusOK, body: `{"user_id":7}`},
		{name: "private with token scheme", path: "/private", header: "Token good", status: http.StatusOK, body: `{"user_id":7}`},
		{name: "private with invalid token", path: "/private", header: "Bearer bad", status: http.StatusUnauthorized},
		{name: "private with unknown scheme", path: "/private", header: "Basic good", status: http.StatusUnauthorized},
		{name: "public anonymous", path: "/public", status: http.StatusOK, body: `{"user_id":0}`},
		{name: "public with token", path: "/public", header: "Token good", status: http.StatusOK, body: `{"user_id":7}`},
		{name: "public with invalid token", path: "/public", header: "Token bad", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, w.Body.String())
			}
		})
	}
}
