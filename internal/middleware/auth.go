package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/types"
)

// Context keys set by the auth middlewares
const (
	UserIDKey = "user_id"
	ClaimsKey = "claims"
)

// TokenValidator is an interface for validating JWT tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
}

// extractToken accepts "Bearer <token>" and "Token <token>"
func extractToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", false
	}
	switch strings.ToLower(parts[0]) {
	case "bearer", "token":
		return parts[1], true
	}
	return "", false
}

func authenticate(c *gin.Context, validator TokenValidator, header string) bool {
	token, ok := extractToken(header)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
		return false
	}

	claims, err := validator.ValidateToken(c.Request.Context(), token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return false
	}

	c.Set(UserIDKey, claims.UserID)
	c.Set(ClaimsKey, claims)
	return true
}

// AuthMiddleware rejects requests without a valid token
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication credentials were not provided"})
			return
		}
		if !authenticate(c, validator, authHeader) {
			return
		}
		c.Next()
	}
}

// OptionalAuth identifies the caller when a token is present and lets
// anonymous requests through. A malformed or invalid token is still rejected.
func OptionalAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" && !authenticate(c, validator, authHeader) {
			return
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated user's id, or 0 for anonymous callers
func CurrentUserID(c *gin.Context) uint {
	if v, ok := c.Get(UserIDKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// CurrentClaims returns the token claims of the authenticated user
func CurrentClaims(c *gin.Context) *types.TokenClaims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*types.TokenClaims); ok {
			return claims
		}
	}
	return nil
}
