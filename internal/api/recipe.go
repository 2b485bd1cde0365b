package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pageza/foodgram/backend/internal/access"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

type RecipeHandler struct {
	recipeService       service.IRecipeService
	subscriptionService service.ISubscriptionService
	imageService        service.IImageService
	authService         service.IAuthService
	creationLimiter     *middleware.RateLimiter
}

func NewRecipeHandler(
	recipeService service.IRecipeService,
	subscriptionService service.ISubscriptionService,
	imageService service.IImageService,
	authService service.IAuthService,
	creationLimiter *middleware.RateLimiter,
) *RecipeHandler {
	return &RecipeHandler{
		recipeService:       recipeService,
		subscriptionService: subscriptionService,
		imageService:        imageService,
		authService:         authService,
		creationLimiter:     creationLimiter,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	required := middleware.AuthMiddleware(h.authService)
	optional := middleware.OptionalAuth(h.authService)

	create := []gin.HandlerFunc{required}
	if h.creationLimiter != nil {
		create = append(create, h.creationLimiter.RateLimitMiddleware())
	}
	create = append(create, h.CreateRecipe)

	recipes := router.Group("/recipes")
	{
		recipes.GET("/", optional, h.ListRecipes)
		recipes.POST("/", create...)
		recipes.GET("/download_shopping_cart/", required, h.DownloadShoppingCart)
		recipes.GET("/:id/", optional, h.GetRecipe)
		recipes.PUT("/:id/", required, h.UpdateRecipe)
		recipes.PATCH("/:id/", required, h.UpdateRecipe)
		recipes.DELETE("/:id/", required, h.DeleteRecipe)
		recipes.POST("/:id/favorite/", required, h.AddFavorite)
		recipes.DELETE("/:id/favorite/", required, h.RemoveFavorite)
		recipes.POST("/:id/shopping_cart/", required, h.AddToCart)
		recipes.DELETE("/:id/shopping_cart/", required, h.RemoveFromCart)
	}
}

// ListRecipes pages through recipes, newest first, filtered by tags, author
// and the viewer's favorites or cart.
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	var query types.RecipeListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		_ = c.Error(err)
		return
	}

	maxLimit := maxPageSize
	if query.IsInShoppingCart != nil {
		maxLimit = maxCartPageSize
	}
	p, err := parsePage(c, maxLimit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	viewer := middleware.Actor(c)
	filter := service.RecipeFilter{
		ViewerID:    viewer.UserID,
		Tags:        query.Tags,
		AuthorID:    query.Author,
		IsFavorited: truthy(query.IsFavorited),
		Limit:       p.Limit,
		Offset:      p.Offset(),
	}
	if query.IsInShoppingCart != nil {
		filter.IsInShoppingCart = truthy(*query.IsInShoppingCart)
	}

	recipes, total, err := h.recipeService.List(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	results, err := h.recipeResponses(c.Request.Context(), viewer.UserID, recipes)
	if err != nil {
		_ = c.Error(err)
		return
	}

	page, err := newPage(c, p, total, results)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	recipe, err := h.recipeService.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.respondRecipe(c, http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	in, upload, err := bindRecipe(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	discard, err := h.attachImage(c.Request.Context(), &in, upload)
	if err != nil {
		_ = c.Error(err)
		return
	}

	recipe, err := h.recipeService.Create(c.Request.Context(), middleware.Actor(c).UserID, in)
	if err != nil {
		discard()
		_ = c.Error(err)
		return
	}
	metrics.RecipeCreated()
	h.respondRecipe(c, http.StatusCreated, recipe)
}

// UpdateRecipe serves both PUT, which requires every field, and PATCH.
func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	recipe, err := h.ownRecipe(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	in, upload, err := bindRecipe(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	discard, err := h.attachImage(c.Request.Context(), &in, upload)
	if err != nil {
		_ = c.Error(err)
		return
	}

	partial := c.Request.Method == http.MethodPatch
	updated, err := h.recipeService.Update(c.Request.Context(), recipe.ID, in, partial)
	if err != nil {
		discard()
		_ = c.Error(err)
		return
	}
	h.respondRecipe(c, http.StatusOK, updated)
}

// attachImage stores upload and points in at it. The returned func removes
// the stored image again when the recipe is rejected.
func (h *RecipeHandler) attachImage(ctx context.Context, in *service.RecipeInput, upload *service.Upload) (func(), error) {
	if upload == nil {
		return func() {}, nil
	}
	url, err := h.imageService.Save(ctx, upload)
	if err != nil {
		return nil, err
	}
	in.Image = &url
	return func() {
		if err := h.imageService.Delete(ctx, url); err != nil {
			logrus.WithError(err).WithField("url", url).Warn("Failed to remove image of rejected recipe")
		}
	}, nil
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	recipe, err := h.ownRecipe(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.recipeService.Delete(c.Request.Context(), recipe.ID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	h.addMember(c, h.recipeService.AddFavorite)
}

func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	h.removeMember(c, h.recipeService.RemoveFavorite)
}

func (h *RecipeHandler) AddToCart(c *gin.Context) {
	h.addMember(c, h.recipeService.AddToCart)
}

func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	h.removeMember(c, h.recipeService.RemoveFromCart)
}

// DownloadShoppingCart sends the aggregated ingredients of every recipe in
// the cart as a text attachment.
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	items, err := h.recipeService.ShoppingList(c.Request.Context(), middleware.Actor(c).UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	metrics.ShoppingListDownloaded()
	c.Header("Content-Disposition", `attachment; filename="shopping_list.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(service.RenderShoppingList(items)))
}

type addFunc func(ctx context.Context, userID, recipeID uint) (*models.Recipe, error)
type removeFunc func(ctx context.Context, userID, recipeID uint) error

func (h *RecipeHandler) addMember(c *gin.Context, add addFunc) {
	id, err := pathID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	recipe, err := add(c.Request.Context(), middleware.Actor(c).UserID, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, recipeShort(recipe))
}

func (h *RecipeHandler) removeMember(c *gin.Context, remove removeFunc) {
	id, err := pathID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := remove(c.Request.Context(), middleware.Actor(c).UserID, id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ownRecipe loads the :id recipe and checks the actor may modify it.
func (h *RecipeHandler) ownRecipe(c *gin.Context) (*models.Recipe, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, err
	}
	recipe, err := h.recipeService.Get(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if err := access.CanModifyRecipe(middleware.Actor(c), recipe); err != nil {
		return nil, err
	}
	return recipe, nil
}

func (h *RecipeHandler) respondRecipe(c *gin.Context, status int, recipe *models.Recipe) {
	results, err := h.recipeResponses(c.Request.Context(), middleware.Actor(c).UserID, []models.Recipe{*recipe})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(status, results[0])
}

// recipeResponses renders recipes with the viewer's favorite, cart and
// subscription flags.
func (h *RecipeHandler) recipeResponses(ctx context.Context, viewerID uint, recipes []models.Recipe) ([]types.RecipeResponse, error) {
	recipeIDs := make([]uint, len(recipes))
	authorIDs := make([]uint, 0, len(recipes))
	for i, r := range recipes {
		recipeIDs[i] = r.ID
		authorIDs = append(authorIDs, r.AuthorID)
	}

	flags, err := h.recipeService.Flags(ctx, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	subscribed, err := h.subscriptionService.SubscribedTo(ctx, viewerID, authorIDs)
	if err != nil {
		return nil, err
	}

	results := make([]types.RecipeResponse, len(recipes))
	for i := range recipes {
		results[i] = recipeResponse(&recipes[i], flags, subscribed)
	}
	return results, nil
}

func truthy(v string) bool {
	return v == "1" || v == "true"
}
