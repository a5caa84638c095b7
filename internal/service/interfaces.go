package service

import (
	"context"
	"io"
	"time"

	"github.com/pageza/foodgram/backend/internal/types"
)

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, claims *types.TokenClaims) error
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
}

// IUserService defines the interface for account and profile operations
type IUserService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*types.UserCreatedResponse, error)
	List(ctx context.Context, viewerID uint, page types.PageRequest) ([]types.UserResponse, int64, error)
	Get(ctx context.Context, viewerID, id uint) (*types.UserResponse, error)
	SetPassword(ctx context.Context, userID uint, current, next string) error
	SetAvatar(ctx context.Context, userID uint, dataURI string) (string, error)
	DeleteAvatar(ctx context.Context, userID uint) error
}

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	List(ctx context.Context, viewerID uint, filter types.RecipeFilter, page types.PageRequest) ([]types.RecipeResponse, int64, error)
	Get(ctx context.Context, viewerID, id uint) (*types.RecipeResponse, error)
	Create(ctx context.Context, authorID uint, in *types.RecipeInput) (*types.RecipeResponse, error)
	Update(ctx context.Context, userID, id uint, in *types.RecipeInput) (*types.RecipeResponse, error)
	Delete(ctx context.Context, userID, id uint) error
	ShortLink(ctx context.Context, id uint) (string, error)
	ResolveShortLink(ctx context.Context, code string) (uint, error)
	RecipeURL(id uint) string
}

// IMembershipService toggles a user's favorite and shopping cart membership
type IMembershipService interface {
	Add(ctx context.Context, kind RelationKind, userID, recipeID uint) (*types.ShortRecipeResponse, error)
	Remove(ctx context.Context, kind RelationKind, userID, recipeID uint) error
}

type ISubscriptionService interface {
	Subscribe(ctx context.Context, userID, authorID uint, recipesLimit int) (*types.SubscriptionResponse, error)
	Unsubscribe(ctx context.Context, userID, authorID uint) error
	List(ctx context.Context, userID uint, page types.PageRequest, recipesLimit int) ([]types.SubscriptionResponse, int64, error)
}

type IShoppingListService interface {
	Build(ctx context.Context, userID uint) (string, error)
}

type ITagService interface {
	List(ctx context.Context) ([]types.TagResponse, error)
	Get(ctx context.Context, id uint) (*types.TagResponse, error)
	Create(ctx context.Context, name, slug string) (*types.TagResponse, error)
}

type IIngredientService interface {
	Search(ctx context.Context, prefix string) ([]types.IngredientResponse, error)
	Get(ctx context.Context, id uint) (*types.IngredientResponse, error)
	Import(ctx context.Context, r io.Reader) (int, error)
}

// RevocationStore remembers revoked token ids until the token would have expired anyway
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// ImageStore persists image bytes under a key and resolves keys to public URLs
type ImageStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}
