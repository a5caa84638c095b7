package types

// UserResponse is the public representation of a user as seen by a viewer
type UserResponse struct {
	ID           uint    `json:"id"`
	Email        string  `json:"email"`
	Username     string  `json:"username"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	IsSubscribed bool    `json:"is_subscribed"`
	Avatar       *string `json:"avatar"`
}

// UserCreatedResponse is returned by registration
type UserCreatedResponse struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type TagResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type IngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type RecipeIngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// RecipeResponse is the full read representation of a recipe
type RecipeResponse struct {
	ID               uint                       `json:"id"`
	Tags             []TagResponse              `json:"tags"`
	Author           UserResponse               `json:"author"`
	Ingredients      []RecipeIngredientResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
}

// ShortRecipeResponse is the compact form returned by favorites, the shopping
// cart and subscription listings
type ShortRecipeResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// SubscriptionResponse is an author profile with a preview of their recipes
type SubscriptionResponse struct {
	UserResponse
	Recipes      []ShortRecipeResponse `json:"recipes"`
	RecipesCount int64                 `json:"recipes_count"`
}

type AvatarResponse struct {
	Avatar string `json:"avatar"`
}

// Page is one page of a listing together with the total row count
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}
