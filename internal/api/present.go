package api

import (
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

func userResponse(u *models.User, subscribed bool) types.UserResponse {
	return types.UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

func tagResponse(t *models.Tag) types.TagResponse {
	return types.TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

func ingredientResponse(i *models.Ingredient) types.IngredientResponse {
	return types.IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

func recipeShort(r *models.Recipe) types.RecipeShortResponse {
	return types.RecipeShortResponse{ID: r.ID, Name: r.Name, Image: r.Image, CookingTime: r.CookingTime}
}

// recipeResponse renders a recipe loaded with its details. flags and
// subscribed are relative to the viewer.
func recipeResponse(r *models.Recipe, flags service.RecipeFlags, subscribed map[uint]bool) types.RecipeResponse {
	tags := make([]types.TagResponse, len(r.Tags))
	for i := range r.Tags {
		tags[i] = tagResponse(&r.Tags[i])
	}

	ingredients := make([]types.RecipeIngredientResponse, len(r.Ingredients))
	for i, ri := range r.Ingredients {
		ingredients[i] = types.RecipeIngredientResponse{
			ID:              ri.IngredientID,
			Name:            ri.Ingredient.Name,
			MeasurementUnit: ri.Ingredient.MeasurementUnit,
			Amount:          ri.Amount,
		}
	}

	return types.RecipeResponse{
		ID:               r.ID,
		Tags:             tags,
		Author:           userResponse(&r.Author, subscribed[r.AuthorID]),
		Ingredients:      ingredients,
		IsFavorited:      flags.Favorited[r.ID],
		IsInShoppingCart: flags.InCart[r.ID],
		Name:             r.Name,
		Image:            r.Image,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
}
