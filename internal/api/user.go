package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

type UserHandler struct {
	userService         service.IUserService
	subscriptionService service.ISubscriptionService
	authService         service.IAuthService
}

func NewUserHandler(userService service.IUserService, subscriptionService service.ISubscriptionService, authService service.IAuthService) *UserHandler {
	return &UserHandler{
		userService:         userService,
		subscriptionService: subscriptionService,
		authService:         authService,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	required := middleware.AuthMiddleware(h.authService)
	optional := middleware.OptionalAuth(h.authService)

	users := router.Group("/users")
	{
		users.POST("/", h.Register)
		users.GET("/", optional, h.ListUsers)
		users.GET("/me/", required, h.Me)
		users.POST("/set_password/", required, h.SetPassword)
		users.GET("/subscriptions/", required, h.ListSubscriptions)
		users.GET("/:id/", optional, h.GetUser)
		users.POST("/:id/subscribe/", required, h.Subscribe)
		users.DELETE("/:id/subscribe/", required, h.Unsubscribe)
	}
}

// Register creates an account.
func (h *UserHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	user, err := h.userService.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, types.CreatedUserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := parsePage(c, maxPageSize)
	if err != nil {
		_ = c.Error(err)
		return
	}

	users, total, err := h.userService.List(ctx, p.Limit, p.Offset())
	if err != nil {
		_ = c.Error(err)
		return
	}

	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	following, err := h.subscriptionService.SubscribedTo(ctx, middleware.Actor(c).UserID, ids)
	if err != nil {
		_ = c.Error(err)
		return
	}

	results := make([]types.UserResponse, len(users))
	for i := range users {
		results[i] = userResponse(&users[i], following[users[i].ID])
	}
	page, err := newPage(c, p, total, results)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := pathID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	user, err := h.userService.Get(ctx, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	following, err := h.subscriptionService.SubscribedTo(ctx, middleware.Actor(c).UserID, []uint{user.ID})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, userResponse(user, following[user.ID]))
}

// Me returns the requesting user.
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.userService.Get(c.Request.Context(), middleware.Actor(c).UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, userResponse(user, false))
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var req types.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	err := h.userService.SetPassword(c.Request.Context(), middleware.Actor(c).UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSubscriptions pages through the authors the user follows, each with
// up to ?recipes_limit= of their newest recipes.
func (h *UserHandler) ListSubscriptions(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := parsePage(c, maxPageSize)
	if err != nil {
		_ = c.Error(err)
		return
	}

	authors, total, err := h.subscriptionService.List(ctx, middleware.Actor(c).UserID, p.Limit, p.Offset())
	if err != nil {
		_ = c.Error(err)
		return
	}
	results, err := h.subscriptionResponses(ctx, authors, recipesLimit(c))
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

func (h *UserHandler) Subscribe(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := pathID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	author, err := h.subscriptionService.Subscribe(ctx, middleware.Actor(c).UserID, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	results, err := h.subscriptionResponses(ctx, []models.User{*author}, recipesLimit(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, results[0])
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.subscriptionService.Unsubscribe(c.Request.Context(), middleware.Actor(c).UserID, id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// subscriptionResponses renders followed authors with their recipe counts
// and newest recipes.
func (h *UserHandler) subscriptionResponses(ctx context.Context, authors []models.User, limit int) ([]types.SubscriptionResponse, error) {
	ids := make([]uint, len(authors))
	for i, a := range authors {
		ids[i] = a.ID
	}
	counts, err := h.subscriptionService.RecipeCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]types.SubscriptionResponse, len(authors))
	for i := range authors {
		recipes, err := h.subscriptionService.RecipesOf(ctx, authors[i].ID, limit)
		if err != nil {
			return nil, err
		}
		short := make([]types.RecipeShortResponse, len(recipes))
		for j := range recipes {
			short[j] = recipeShort(&recipes[j])
		}
		results[i] = types.SubscriptionResponse{
			UserResponse: userResponse(&authors[i], true),
			Recipes:      short,
			RecipesCount: counts[authors[i].ID],
		}
	}
	return results, nil
}

// recipesLimit reads ?recipes_limit=; anything but a positive integer means
// no limit.
func recipesLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("recipes_limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
