package service_test

import (
	"context"
	"testing"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

type recipeFixture struct {
	db               *gorm.DB
	svc              *service.RecipeService
	author           *models.User
	other            *models.User
	breakfast, lunch *models.Tag
	flour, sugar     *models.Ingredient
}

func setupRecipes(t *testing.T) *recipeFixture {
	db := testhelpers.SetupSQLite(t)
	return &recipeFixture{
		db:        db,
		svc:       service.NewRecipeService(db),
		author:    testhelpers.CreateUser(t, db, "author"),
		other:     testhelpers.CreateUser(t, db, "other"),
		breakfast: testhelpers.CreateTag(t, db, "breakfast", 1),
		lunch:     testhelpers.CreateTag(t, db, "lunch", 2),
		flour:     testhelpers.CreateIngredient(t, db, "flour", "g"),
		sugar:     testhelpers.CreateIngredient(t, db, "sugar", "g"),
	}
}

func (f *recipeFixture) input(text string) service.RecipeInput {
	return service.RecipeInput{
		Name:        strPtr("Pancakes"),
		Text:        strPtr(text),
		Image:       strPtr("/media/recipes/x/temp.png"),
		CookingTime: intPtr(20),
		Tags:        []uint{f.breakfast.ID},
		Ingredients: []service.IngredientAmount{{IngredientID: f.flour.ID, Amount: 200}},
	}
}

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}

func TestCreateRecipe(t *testing.T) {
	f := setupRecipes(t)
	ctx := context.Background()

	in := f.input("Mix and fry")
	in.Ingredients = append(in.Ingredients, service.IngredientAmount{IngredientID: f.sugar.ID, Amount: 30})

	recipe, err := f.svc.Create(ctx, f.author.ID, in)
	require.NoError(t, err)

	assert.Equal(t, "Pancakes", recipe.Name)
	assert.Equal(t, f.author.ID, recipe.Author.ID)
	assert.False(t, recipe.PubDate.IsZero())
	require.Len(t, recipe.Tags, 1)
	assert.Equal(t, "breakfast", recipe.Tags[0].Slug)
	require.Len(t, recipe.Ingredients, 2)
	assert.Equal(t, "flour", recipe.Ingredients[0].Ingredient.Name)
	assert.Equal(t, 200, recipe.Ingredients[0].Amount)
	assert.Equal(t, 30, recipe.Ingredients[1].Amount)
}

func TestCreateRecipeDeduplicatesTags(t *testing.T) {
	f := setupRecipes(t)

	in := f.input("Mix and fry")
	in.Tags = []uint{f.lunch.ID, f.breakfast.ID, f.lunch.ID, f.breakfast.ID}

	recipe, err := f.svc.Create(context.Background(), f.author.ID, in)
	require.NoError(t, err)

	var ids []uint
	for _, tag := range recipe.Tags {
		ids = append(ids, tag.ID)
	}
	assert.ElementsMatch(t, []uint{f.breakfast.ID, f.lunch.ID}, ids)

	var links int64
	f.db.Model(&models.RecipeTag{}).Where("recipe_id = ?", recipe.ID).Count(&links)
	assert.Equal(t, int64(2), links)
}

func TestCreateRecipeAmountBounds(t *testing.T) {
	cases := []struct {
		amount int
		valid  bool
	}{
		{-5, false},
		{0, false},
		{1, true},
		{500, true},
		{999, true},
		{1000, false},
		{5000, false},
	}

	f := setupRecipes(t)
	for i, tc := range cases {
		in := f.input("text " + string(rune('a'+i)))
		in.Ingredients = []service.IngredientAmount{{IngredientID: f.flour.ID, Amount: tc.amount}}

		_, err := f.svc.Create(context.Background(), f.author.ID, in)
		if tc.valid {
			assert.NoError(t, err, "amount %d", tc.amount)
			continue
		}
		fields := fieldErrors(t, err)
		require.Len(t, fields["ingredients"], 1, "amount %d", tc.amount)
		assert.Contains(t, fields["ingredients"][0], "ingredient #1")
	}
}

func TestCreateRecipeRequiresTags(t *testing.T) {
	f := setupRecipes(t)

	for _, tags := range [][]uint{nil, {}} {
		in := f.input("Mix and fry")
		in.Tags = tags
		_, err := f.svc.Create(context.Background(), f.author.ID, in)
		assert.Equal(t, []string{"tags required"}, fieldErrors(t, err)["tags"])
	}

	var count int64
	f.db.Model(&models.Recipe{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateRecipeAcceptsEmptyIngredients(t *testing.T) {
	f := setupRecipes(t)

	in := f.input("Just water")
	in.Ingredients = []service.IngredientAmount{}
	recipe, err := f.svc.Create(context.Background(), f.author.ID, in)
	require.NoError(t, err)
	assert.Empty(t, recipe.Ingredients)
}

func TestCreateRecipeReportsEveryProblem(t *testing.T) {
	f := setupRecipes(t)
	_, err := f.svc.Create(context.Background(), f.author.ID, f.input("Mix and fry"))
	require.NoError(t, err)

	in := service.RecipeInput{
		Name:        strPtr(" "),
		Text:        strPtr("Mix and fry"),
		CookingTime: intPtr(0),
		Tags:        []uint{f.breakfast.ID, 9999},
		Ingredients: []service.IngredientAmount{
			{IngredientID: f.flour.ID, Amount: 10},
			{IngredientID: f.flour.ID, Amount: 20},
			{IngredientID: 4242, Amount: 1},
		},
	}
	_, err = f.svc.Create(context.Background(), f.author.ID, in)
	fields := fieldErrors(t, err)

	assert.Contains(t, fields, "name")
	assert.Equal(t, []string{"recipe with this text already exists"}, fields["text"])
	assert.Equal(t, []string{"this field is required"}, fields["image"])
	assert.Contains(t, fields, "cooking_time")
	assert.Equal(t, []string{"invalid pk 9999: object does not exist"}, fields["tags"])
	assert.Len(t, fields["ingredients"], 2)
}

func TestUpdateRecipeReplacesIngredients(t *testing.T) {
	f := setupRecipes(t)
	ctx := context.Background()

	recipe, err := f.svc.Create(ctx, f.author.ID, f.input("Mix and fry"))
	require.NoError(t, err)

	in := f.input("Mix and bake")
	in.Tags = []uint{f.lunch.ID}
	in.Ingredients = []service.IngredientAmount{{IngredientID: f.sugar.ID, Amount: 7}}

	updated, err := f.svc.Update(ctx, recipe.ID, in, false)
	require.NoError(t, err)

	assert.Equal(t, "Mix and bake", updated.Text)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, f.lunch.ID, updated.Tags[0].ID)

	var rows []models.RecipeIngredient
	require.NoError(t, f.db.Where("recipe_id = ?", recipe.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, f.sugar.ID, rows[0].IngredientID)
	assert.Equal(t, 7, rows[0].Amount)
}

func TestPartialUpdateKeepsOmittedFields(t *testing.T) {
	f := setupRecipes(t)
	ctx := context.Background()

	recipe, err := f.svc.Create(ctx, f.author.ID, f.input("Mix and fry"))
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, recipe.ID, service.RecipeInput{CookingTime: intPtr(45)}, true)
	require.NoError(t, err)

	assert.Equal(t, 45, updated.CookingTime)
	assert.Equal(t, "Pancakes", updated.Name)
	assert.Equal(t, "Mix and fry", updated.Text)
	assert.Len(t, updated.Tags, 1)
	assert.Len(t, updated.Ingredients, 1)
	assert.Equal(t, recipe.PubDate.Unix(), updated.PubDate.Unix())
}

func TestPartialUpdateRejectsEmptyTags(t *testing.T) {
	f := setupRecipes(t)
	ctx := context.Background()

	recipe, err := f.svc.Create(ctx, f.author.ID, f.input("Mix and fry"))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, recipe.ID, service.RecipeInput{Tags: []uint{}}, true)
	assert.Equal(t, []string{"tags required"}, fieldErrors(t, err)["tags"])
}

func TestFullUpdateRequiresEveryField(t *testing.T) {
	f := setupRecipes(t)
	ctx := context.Background()

	recipe, err := f.svc.Create(ctx, f.author.ID, f.input("Mix and fry"))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, recipe.ID, service.RecipeInput{Name: strPtr("Waffles")}, false)
	fields := fieldErrors(t, err)
	for _, field := range []string{"text", "image", "cooking_time", "ingredients"} {
		assert.Contains(t, fields, field)
	}

	unchanged, err := f.svc.Get(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", unchanged.Name)
}

func TestUpdateRecipeKeepsOwnText(t *testing.T) {
	f := setupRecipes(t)
	ctx := context.Background()

	recipe, err := f.svc.Create(ctx, f.author.ID, f.input("Mix and fry"))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, recipe.ID, service.RecipeInput{Text: strPtr("Mix and fry")}, true)
	assert.NoError(t, err)
}

func TestUpdateMissingRecipe(t *testing.T) {
	f := setupRecipes(t)
	_, err := f.svc.Update(context.Background(), 12345, f.input("x"), false)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestDeleteRecipeRemovesDependents(t *testing.T) {
	f := setupRecipes(t)
	ctx := context.Background()

	recipe, err := f.svc.Create(ctx, f.author.ID, f.input("Mix and fry"))
	require.NoError(t, err)
	_, err = f.svc.AddFavorite(ctx, f.other.ID, recipe.ID)
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, f.other.ID, recipe.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, recipe.ID))

	for _, model := range []interface{}{&models.Recipe{}, &models.RecipeTag{}, &models.RecipeIngredient{}, &models.Favorite{}, &models.Cart{}} {
		var count int64
		f.db.Model(model).Count(&count)
		assert.Zero(t, count, "%T", model)
	}

	assert.ErrorIs(t, f.svc.Delete(ctx, recipe.ID), service.ErrNotFound)
}

func TestListRecipesFilters(t *testing.T) {
	f := setupRecipes(t)
	ctx := context.Background()
	db := f.db

	a := testhelpers.CreateRecipe(t, db, f.author, "a", []*models.Tag{f.breakfast}, nil)
	b := testhelpers.CreateRecipe(t, db, f.author, "b", []*models.Tag{f.breakfast, f.lunch}, nil)
	c := testhelpers.CreateRecipe(t, db, f.other, "c", []*models.Tag{f.lunch}, nil)
	testhelpers.CreateRecipe(t, db, f.other, "d", nil, nil)

	ids := func(recipes []models.Recipe) []uint {
		out := make([]uint, len(recipes))
		for i, r := range recipes {
			out[i] = r.ID
		}
		return out
	}

	all, total, err := f.svc.List(ctx, service.RecipeFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, all, 4)

	tagged, total, err := f.svc.List(ctx, service.RecipeFilter{Tags: []string{"breakfast", "lunch"}, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.ElementsMatch(t, []uint{a.ID, b.ID, c.ID}, ids(tagged))

	byAuthor, _, err := f.svc.List(ctx, service.RecipeFilter{AuthorID: f.other.ID, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)

	_, err = f.svc.AddFavorite(ctx, f.other.ID, b.ID)
	require.NoError(t, err)
	favorited, total, err := f.svc.List(ctx, service.RecipeFilter{ViewerID: f.other.ID, IsFavorited: true, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, []uint{b.ID}, ids(favorited))

	anonymous, total, err := f.svc.List(ctx, service.RecipeFilter{IsInShoppingCart: true, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, anonymous)

	page, total, err := f.svc.List(ctx, service.RecipeFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, page, 2)
}

func TestListRecipesNewestFirst(t *testing.T) {
	f := setupRecipes(t)
	first := testhelpers.CreateRecipe(t, f.db, f.author, "first", nil, nil)
	second := testhelpers.CreateRecipe(t, f.db, f.author, "second", nil, nil)

	recipes, _, err := f.svc.List(context.Background(), service.RecipeFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Equal(t, second.ID, recipes[0].ID)
	assert.Equal(t, first.ID, recipes[1].ID)
}

func TestRecipeFlags(t *testing.T) {
	f := setupRecipes(t)
	ctx := context.Background()
	a := testhelpers.CreateRecipe(t, f.db, f.author, "a", nil, nil)
	b := testhelpers.CreateRecipe(t, f.db, f.author, "b", nil, nil)

	_, err := f.svc.AddFavorite(ctx, f.other.ID, a.ID)
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, f.other.ID, b.ID)
	require.NoError(t, err)

	flags, err := f.svc.Flags(ctx, f.other.ID, []uint{a.ID, b.ID})
	require.NoError(t, err)
	assert.True(t, flags.Favorited[a.ID])
	assert.False(t, flags.Favorited[b.ID])
	assert.True(t, flags.InCart[b.ID])
	assert.False(t, flags.InCart[a.ID])

	anonymous, err := f.svc.Flags(ctx, 0, []uint{a.ID, b.ID})
	require.NoError(t, err)
	assert.Empty(t, anonymous.Favorited)
	assert.Empty(t, anonymous.InCart)
}
