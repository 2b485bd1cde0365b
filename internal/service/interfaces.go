package service

import (
	"context"
	"io"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// IAuthService defines the interface for token operations
type IAuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
	Logout(ctx context.Context, claims *types.TokenClaims) error
}

// IUserService defines the interface for account operations
type IUserService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Get(ctx context.Context, id uint) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, int64, error)
	SetPassword(ctx context.Context, userID uint, current, next string) error
}

// IRecipeService defines the interface for recipe composition and queries
type IRecipeService interface {
	Create(ctx context.Context, authorID uint, in RecipeInput) (*models.Recipe, error)
	Update(ctx context.Context, recipeID uint, in RecipeInput, partial bool) (*models.Recipe, error)
	Delete(ctx context.Context, recipeID uint) error
	Get(ctx context.Context, recipeID uint) (*models.Recipe, error)
	List(ctx context.Context, f RecipeFilter) ([]models.Recipe, int64, error)
	Flags(ctx context.Context, viewerID uint, recipeIDs []uint) (RecipeFlags, error)
	AddFavorite(ctx context.Context, userID, recipeID uint) (*models.Recipe, error)
	RemoveFavorite(ctx context.Context, userID, recipeID uint) error
	AddToCart(ctx context.Context, userID, recipeID uint) (*models.Recipe, error)
	RemoveFromCart(ctx context.Context, userID, recipeID uint) error
	ShoppingList(ctx context.Context, userID uint) ([]ShoppingItem, error)
}

// ISubscriptionService defines the interface for follow operations
type ISubscriptionService interface {
	Subscribe(ctx context.Context, userID, authorID uint) (*models.User, error)
	Unsubscribe(ctx context.Context, userID, authorID uint) error
	List(ctx context.Context, userID uint, limit, offset int) ([]models.User, int64, error)
	SubscribedTo(ctx context.Context, userID uint, authorIDs []uint) (map[uint]bool, error)
	RecipesOf(ctx context.Context, authorID uint, limit int) ([]models.Recipe, error)
	RecipeCounts(ctx context.Context, authorIDs []uint) (map[uint]int64, error)
}

type ITagService interface {
	List(ctx context.Context) ([]models.Tag, error)
	Get(ctx context.Context, id uint) (*models.Tag, error)
	Create(ctx context.Context, name, slug, color string) (*models.Tag, error)
}

type IIngredientService interface {
	Search(ctx context.Context, prefix string) ([]models.Ingredient, error)
	Get(ctx context.Context, id uint) (*models.Ingredient, error)
	Import(ctx context.Context, r io.Reader) (int, error)
}

// IImageService stores validated uploads
type IImageService interface {
	Save(ctx context.Context, upload *Upload) (string, error)
	Delete(ctx context.Context, url string) error
}

var (
	_ IAuthService         = (*AuthService)(nil)
	_ IUserService         = (*UserService)(nil)
	_ IRecipeService       = (*RecipeService)(nil)
	_ ISubscriptionService = (*SubscriptionService)(nil)
	_ ITagService          = (*TagService)(nil)
	_ IIngredientService   = (*IngredientService)(nil)
	_ IImageService        = (*ImageService)(nil)
	_ TokenStore           = (*RedisTokenStore)(nil)
	_ TokenStore           = (*MemoryTokenStore)(nil)
	_ Store                = (*LocalStore)(nil)
	_ Store                = (*S3Store)(nil)
)
