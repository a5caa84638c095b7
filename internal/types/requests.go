package types

// RegisterRequest represents the user registration payload
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Username  string `json:"username" binding:"required,max=150"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Password  string `json:"password" binding:"required"`
}

// LoginRequest represents the token login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SetPasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type AvatarRequest struct {
	Avatar string `json:"avatar" binding:"required"`
}

// IngredientAmount is one ingredient line of a recipe write request
type IngredientAmount struct {
	ID     uint `json:"id"`
	Amount int  `json:"amount"`
}

// RecipeInput is the body of recipe create and update requests. Scalar fields
// are pointers so that a partial update can leave them unchanged; creation
// requires all of them.
type RecipeInput struct {
	Ingredients []IngredientAmount `json:"ingredients"`
	Tags        []uint             `json:"tags"`
	Image       *string            `json:"image"`
	Name        *string            `json:"name"`
	Text        *string            `json:"text"`
	CookingTime *int               `json:"cooking_time"`
}

// RecipeFilter narrows a recipe listing. Nil pointers mean "no constraint".
type RecipeFilter struct {
	Tags             []string
	AuthorID         *uint
	IsFavorited      *bool
	IsInShoppingCart *bool
}

// PageRequest selects a 1-based page of a listing
type PageRequest struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip
func (p PageRequest) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}
