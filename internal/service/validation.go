package service

import (
	"strings"

	"github.com/pageza/foodgram/backend/internal/models"
	"gorm.io/gorm"
)

const maxRecipeNameLength = 200

// validateRecipe checks every supplied field of in and, unless partial, that
// every field was supplied. It returns the de-duplicated tag ids in order of
// first occurrence.
func validateRecipe(tx *gorm.DB, in RecipeInput, partial bool, recipeID uint) ([]uint, error) {
	verr := &ValidationError{}
	required := func(field string) {
		if !partial {
			verr.Add(field, "this field is required")
		}
	}

	switch {
	case in.Name == nil:
		required("name")
	case strings.TrimSpace(*in.Name) == "":
		verr.Add("name", "this field may not be blank")
	case len([]rune(strings.TrimSpace(*in.Name))) > maxRecipeNameLength:
		verr.Addf("name", "ensure this field has no more than %d characters", maxRecipeNameLength)
	}

	switch {
	case in.Text == nil:
		required("text")
	case strings.TrimSpace(*in.Text) == "":
		verr.Add("text", "this field may not be blank")
	default:
		taken, err := exists(tx, &models.Recipe{}, "text = ? AND id <> ?", *in.Text, recipeID)
		if err != nil {
			return nil, err
		}
		if taken {
			verr.Add("text", "recipe with this text already exists")
		}
	}

	switch {
	case in.Image == nil:
		required("image")
	case *in.Image == "":
		verr.Add("image", "no file was submitted")
	}

	switch {
	case in.CookingTime == nil:
		required("cooking_time")
	case *in.CookingTime < models.MinCookingTime || *in.CookingTime > models.MaxCookingTime:
		verr.Addf("cooking_time", "ensure this value is between %d and %d", models.MinCookingTime, models.MaxCookingTime)
	}

	var tags []uint
	switch {
	case in.Tags == nil && partial:
	case len(in.Tags) == 0:
		verr.Add("tags", "tags required")
	default:
		tags = uniqueIDs(in.Tags)
		missing, err := missingIDs(tx, &models.Tag{}, tags)
		if err != nil {
			return nil, err
		}
		for _, id := range missing {
			verr.Addf("tags", "invalid pk %d: object does not exist", id)
		}
	}

	switch {
	case in.Ingredients == nil:
		required("ingredients")
	default:
		if err := validateIngredients(tx, in.Ingredients, verr); err != nil {
			return nil, err
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return tags, nil
}

// validateIngredients checks amounts, repeated ingredients and that every
// ingredient exists. An empty list is valid.
func validateIngredients(tx *gorm.DB, items []IngredientAmount, verr *ValidationError) error {
	seen := make(map[uint]int, len(items))
	ids := make([]uint, 0, len(items))
	for i, item := range items {
		if item.Amount <= models.MinAmount || item.Amount >= models.MaxAmount {
			verr.Addf("ingredients", "ingredient #%d (id %d): amount must be greater than %d and less than %d",
				i+1, item.IngredientID, models.MinAmount, models.MaxAmount)
		}
		if first, dup := seen[item.IngredientID]; dup {
			verr.Addf("ingredients", "ingredient #%d (id %d): repeats ingredient #%d", i+1, item.IngredientID, first+1)
			continue
		}
		seen[item.IngredientID] = i
		ids = append(ids, item.IngredientID)
	}

	missing, err := missingIDs(tx, &models.Ingredient{}, ids)
	if err != nil {
		return err
	}
	for _, id := range missing {
		verr.Addf("ingredients", "ingredient #%d (id %d): object does not exist", seen[id]+1, id)
	}
	return nil
}

// uniqueIDs drops repeated ids, keeping the first occurrence.
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
