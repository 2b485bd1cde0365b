package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pageza/foodgram/backend/internal/models"
	"gorm.io/gorm/clause"
)

// ShoppingItem is one aggregated line of a shopping list.
type ShoppingItem struct {
	Name            string
	MeasurementUnit string
	Total           int
}

// AddFavorite bookmarks the recipe for the user and returns the recipe.
func (s *RecipeService) AddFavorite(ctx context.Context, userID, recipeID uint) (*models.Recipe, error) {
	return s.addMember(ctx, &models.Favorite{UserID: userID, RecipeID: recipeID}, userID, recipeID)
}

// RemoveFavorite deletes the bookmark; a missing bookmark is not an error.
func (s *RecipeService) RemoveFavorite(ctx context.Context, userID, recipeID uint) error {
	return s.removeMember(ctx, &models.Favorite{}, userID, recipeID)
}

// AddToCart puts the recipe in the user's shopping cart and returns the
// recipe.
func (s *RecipeService) AddToCart(ctx context.Context, userID, recipeID uint) (*models.Recipe, error) {
	return s.addMember(ctx, &models.Cart{UserID: userID, RecipeID: recipeID}, userID, recipeID)
}

// RemoveFromCart takes the recipe out of the cart; a missing entry is not an
// error.
func (s *RecipeService) RemoveFromCart(ctx context.Context, userID, recipeID uint) error {
	return s.removeMember(ctx, &models.Cart{}, userID, recipeID)
}

// addMember inserts row, a favorite or cart entry for (userID, recipeID),
// rejecting a pair that already exists.
func (s *RecipeService) addMember(ctx context.Context, row interface{}, userID, recipeID uint) (*models.Recipe, error) {
	db := s.db.WithContext(ctx)
	var recipe models.Recipe
	if err := db.First(&recipe, recipeID).Error; err != nil {
		return nil, notFound(err)
	}

	taken, err := exists(db, row, "user_id = ? AND recipe_id = ?", userID, recipeID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, NewValidationError(NonFieldErrors, "already exists")
	}

	if err := db.Omit(clause.Associations).Create(row).Error; err != nil {
		return nil, duplicate(err, NonFieldErrors)
	}
	return &recipe, nil
}

func (s *RecipeService) removeMember(ctx context.Context, model interface{}, userID, recipeID uint) error {
	db := s.db.WithContext(ctx)
	var recipe models.Recipe
	if err := db.Select("id").First(&recipe, recipeID).Error; err != nil {
		return notFound(err)
	}
	return db.Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(model).Error
}

// ShoppingList sums ingredient amounts over every recipe in the user's cart,
// grouped by ingredient name and unit and ordered by name then unit.
func (s *RecipeService) ShoppingList(ctx context.Context, userID uint) ([]ShoppingItem, error) {
	var items []ShoppingItem
	err := s.db.WithContext(ctx).
		Table("carts").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total").
		Joins("JOIN recipe_ingredients ON recipe_ingredients.recipe_id = carts.recipe_id").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("carts.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name, ingredients.measurement_unit").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// RenderShoppingList formats items one per line as "name (unit) - total".
func RenderShoppingList(items []ShoppingItem) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "%s (%s) - %d\n", item.Name, item.MeasurementUnit, item.Total)
	}
	return b.String()
}
