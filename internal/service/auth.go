package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

var ErrInvalidToken = errors.New("invalid token")

type AuthService struct {
	db        *gorm.DB
	jwtSecret string
	expiry    time.Duration
	revoked   RevocationStore
}

func NewAuthService(db *gorm.DB, jwtSecret string, expiry time.Duration, revoked RevocationStore) *AuthService {
	if revoked == nil {
		revoked = NewMemoryRevocationStore()
	}
	return &AuthService{
		db:        db,
		jwtSecret: jwtSecret,
		expiry:    expiry,
		revoked:   revoked,
	}
}

// Login checks the email and password and issues a token
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.GenerateToken(&user)
}

// GenerateToken signs a token for user
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
		UserID:   user.ID,
		Username: user.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// ValidateToken parses the token and rejects revoked ones
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*types.TokenClaims, error) {
	claims := &types.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	if claims.ID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return nil, ErrInvalidToken
		}
	}

	return claims, nil
}

// Logout revokes the token the claims came from for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, claims *types.TokenClaims) error {
	if claims == nil || claims.ID == "" {
		return nil
	}
	ttl := s.expiry
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if err := s.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}
