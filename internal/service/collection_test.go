package service_test

import (
	"context"
	"testing"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFavoriteTwice(t *testing.T) {
	f := setupRecipes(t)
	ctx := context.Background()
	recipe := testhelpers.CreateRecipe(t, f.db, f.author, "soup", nil, nil)

	got, err := f.svc.AddFavorite(ctx, f.other.ID, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, recipe.ID, got.ID)
	assert.Equal(t, "soup", got.Name)

	_, err = f.svc.AddFavorite(ctx, f.other.ID, recipe.ID)
	assert.Equal(t, []string{"already exists"}, fieldErrors(t, err)[service.NonFieldErrors])

	var count int64
	f.db.Model(&models.Favorite{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestAddToCartUnknownRecipe(t *testing.T) {
	f := setupRecipes(t)

	_, err := f.svc.AddToCart(context.Background(), f.other.ID, 404)
	assert.ErrorIs(t, err, service.ErrNotFound)
	_, err = f.svc.AddFavorite(context.Background(), f.other.ID, 404)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestRemoveMembership(t *testing.T) {
	f := setupRecipes(t)
	ctx := context.Background()
	recipe := testhelpers.CreateRecipe(t, f.db, f.author, "soup", nil, nil)

	// Removing something never added succeeds.
	require.NoError(t, f.svc.RemoveFavorite(ctx, f.other.ID, recipe.ID))
	require.NoError(t, f.svc.RemoveFromCart(ctx, f.other.ID, recipe.ID))

	_, err := f.svc.AddToCart(ctx, f.other.ID, recipe.ID)
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, f.author.ID, recipe.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.RemoveFromCart(ctx, f.other.ID, recipe.ID))

	var rows []models.Cart
	require.NoError(t, f.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, f.author.ID, rows[0].UserID)

	assert.ErrorIs(t, f.svc.RemoveFromCart(ctx, f.other.ID, 999), service.ErrNotFound)
	assert.ErrorIs(t, f.svc.RemoveFavorite(ctx, f.other.ID, 999), service.ErrNotFound)
}

func TestShoppingListAggregates(t *testing.T) {
	f := setupRecipes(t)
	ctx := context.Background()
	eggs := testhelpers.CreateIngredient(t, f.db, "eggs", "pcs")
	flourKg := testhelpers.CreateIngredient(t, f.db, "flour", "kg")

	one := testhelpers.CreateRecipe(t, f.db, f.author, "one", nil, map[*models.Ingredient]int{f.flour: 2, eggs: 1})
	two := testhelpers.CreateRecipe(t, f.db, f.author, "two", nil, map[*models.Ingredient]int{f.flour: 3, flourKg: 1})
	notInCart := testhelpers.CreateRecipe(t, f.db, f.author, "three", nil, map[*models.Ingredient]int{f.sugar: 9})

	_, err := f.svc.AddToCart(ctx, f.other.ID, one.ID)
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, f.other.ID, two.ID)
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, f.author.ID, notInCart.ID)
	require.NoError(t, err)

	items, err := f.svc.ShoppingList(ctx, f.other.ID)
	require.NoError(t, err)
	assert.Equal(t, []service.ShoppingItem{
		{Name: "eggs", MeasurementUnit: "pcs", Total: 1},
		{Name: "flour", MeasurementUnit: "g", Total: 5},
		{Name: "flour", MeasurementUnit: "kg", Total: 1},
	}, items)

	assert.Equal(t, "eggs (pcs) - 1\nflour (g) - 5\nflour (kg) - 1\n", service.RenderShoppingList(items))
}

func TestShoppingListEmptyCart(t *testing.T) {
	f := setupRecipes(t)

	items, err := f.svc.ShoppingList(context.Background(), f.other.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, "", service.RenderShoppingList(items))
}
