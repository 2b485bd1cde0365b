package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

type IngredientHandler struct {
	ingredientService service.IIngredientService
}

func NewIngredientHandler(ingredientService service.IIngredientService) *IngredientHandler {
	return &IngredientHandler{ingredientService: ingredientService}
}

func (h *IngredientHandler) RegisterRoutes(router *gin.RouterGroup) {
	ingredients := router.Group("/ingredients")
	{
		ingredients.GET("/", h.SearchIngredients)
		ingredients.GET("/:id/", h.GetIngredient)
	}
}

// SearchIngredients lists ingredients whose name starts with ?name=.
func (h *IngredientHandler) SearchIngredients(c *gin.Context) {
	ingredients, err := h.ingredientService.Search(c.Request.Context(), c.Query("name"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := make([]types.IngredientResponse, len(ingredients))
	for i := range ingredients {
		resp[i] = ingredientResponse(&ingredients[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *IngredientHandler) GetIngredient(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ingredient, err := h.ingredientService.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ingredientResponse(ingredient))
}
