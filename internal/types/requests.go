package types

// LoginRequest is the body of POST /api/auth/token/login/
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the body of POST /api/users/
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Username  string `json:"username" binding:"required,max=150,username"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,max=128"`
}

// SetPasswordRequest is the body of POST /api/users/set_password/
type SetPasswordRequest struct {
	NewPassword     string `json:"new_password" binding:"required,max=128"`
	CurrentPassword string `json:"current_password" binding:"required"`
}

// IngredientAmountRequest is one entry of a recipe's ingredient list.
type IngredientAmountRequest struct {
	ID     uint `json:"id" binding:"required"`
	Amount int  `json:"amount"`
}

// RecipeRequest is the JSON body of recipe create, PUT and PATCH. Pointer and
// slice fields stay nil when the client omits them.
type RecipeRequest struct {
	Name        *string                   `json:"name" binding:"omitempty,max=200"`
	Text        *string                   `json:"text"`
	Image       *string                   `json:"image"`
	CookingTime *int                      `json:"cooking_time"`
	Tags        []uint                    `json:"tags"`
	Ingredients []IngredientAmountRequest `json:"ingredients" binding:"omitempty,dive"`
}

// RecipeListQuery is the query string of GET /api/recipes/. The boolean
// filters accept 1/0 and true/false; false does not filter.
type RecipeListQuery struct {
	Tags             []string `form:"tags" binding:"omitempty,dive,slug"`
	Author           uint     `form:"author"`
	IsFavorited      string   `form:"is_favorited" binding:"omitempty,oneof=0 1 true false"`
	IsInShoppingCart *string  `form:"is_in_shopping_cart" binding:"omitempty,oneof=0 1 true false"`
}
