package service

import (
	"context"
	"strings"

	"github.com/pageza/foodgram/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IngredientAmount is one (ingredient, amount) pair of a recipe.
type IngredientAmount struct {
	IngredientID uint
	Amount       int
}

// RecipeInput carries the writable recipe fields. A nil field was not
// supplied by the client.
type RecipeInput struct {
	Name        *string
	Text        *string
	Image       *string
	CookingTime *int
	Tags        []uint
	Ingredients []IngredientAmount
}

// RecipeFilter selects a page of recipes. ViewerID 0 is an anonymous viewer.
type RecipeFilter struct {
	ViewerID         uint
	Tags             []string
	AuthorID         uint
	IsFavorited      bool
	IsInShoppingCart bool
	Limit            int
	Offset           int
}

// RecipeFlags holds the viewer-relative membership of a set of recipes.
type RecipeFlags struct {
	Favorited map[uint]bool
	InCart    map[uint]bool
}

// RecipeService composes recipes with their tags and ingredients and
// answers the read-side queries over them.
type RecipeService struct {
	db *gorm.DB
}

func NewRecipeService(db *gorm.DB) *RecipeService {
	return &RecipeService{db: db}
}

// Create validates in and stores the recipe, its tag links and its
// ingredient rows in one transaction.
func (s *RecipeService) Create(ctx context.Context, authorID uint, in RecipeInput) (*models.Recipe, error) {
	var recipeID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := validateRecipe(tx, in, false, 0)
		if err != nil {
			return err
		}

		recipe := models.Recipe{
			AuthorID:    authorID,
			Name:        strings.TrimSpace(*in.Name),
			Text:        *in.Text,
			Image:       *in.Image,
			CookingTime: *in.CookingTime,
		}
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return duplicate(err, "text")
		}
		recipeID = recipe.ID

		if err := replaceTags(tx, recipe.ID, tags); err != nil {
			return err
		}
		return replaceIngredients(tx, recipe.ID, in.Ingredients)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, recipeID)
}

// Update applies in to the recipe. With partial set, omitted fields keep
// their values; otherwise every field is required. Supplied tags replace the
// tag set and supplied ingredients replace every ingredient row.
func (s *RecipeService) Update(ctx context.Context, recipeID uint, in RecipeInput, partial bool) (*models.Recipe, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipe models.Recipe
		if err := tx.First(&recipe, recipeID).Error; err != nil {
			return notFound(err)
		}

		tags, err := validateRecipe(tx, in, partial, recipeID)
		if err != nil {
			return err
		}

		changes := map[string]interface{}{}
		if in.Name != nil {
			changes["name"] = strings.TrimSpace(*in.Name)
		}
		if in.Text != nil {
			changes["text"] = *in.Text
		}
		if in.Image != nil {
			changes["image"] = *in.Image
		}
		if in.CookingTime != nil {
			changes["cooking_time"] = *in.CookingTime
		}
		if len(changes) > 0 {
			if err := tx.Model(&recipe).Updates(changes).Error; err != nil {
				return duplicate(err, "text")
			}
		}

		if in.Tags != nil {
			if err := replaceTags(tx, recipeID, tags); err != nil {
				return err
			}
		}
		if in.Ingredients != nil {
			return replaceIngredients(tx, recipeID, in.Ingredients)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, recipeID)
}

// Delete removes the recipe with its tag links, ingredient rows, favorites
// and cart entries.
func (s *RecipeService) Delete(ctx context.Context, recipeID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, dependent := range []interface{}{&models.RecipeTag{}, &models.RecipeIngredient{}, &models.Favorite{}, &models.Cart{}} {
			if err := tx.Where("recipe_id = ?", recipeID).Delete(dependent).Error; err != nil {
				return err
			}
		}

		res := tx.Delete(&models.Recipe{}, recipeID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Get loads a recipe with its author, tags and ingredients.
func (s *RecipeService) Get(ctx context.Context, recipeID uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := withDetails(s.db.WithContext(ctx)).First(&recipe, recipeID).Error; err != nil {
		return nil, notFound(err)
	}
	return &recipe, nil
}

// List returns one page of recipes matching f, newest first, and the total
// number of matches.
func (s *RecipeService) List(ctx context.Context, f RecipeFilter) ([]models.Recipe, int64, error) {
	if f.ViewerID == 0 && (f.IsFavorited || f.IsInShoppingCart) {
		return []models.Recipe{}, 0, nil
	}

	filtered := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Recipe{})
		if len(f.Tags) > 0 {
			tagged := s.db.Model(&models.RecipeTag{}).
				Select("recipe_tags.recipe_id").
				Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
				Where("tags.slug IN ?", f.Tags)
			q = q.Where("recipes.id IN (?)", tagged)
		}
		if f.AuthorID != 0 {
			q = q.Where("recipes.author_id = ?", f.AuthorID)
		}
		if f.IsFavorited {
			q = q.Where("recipes.id IN (?)", s.db.Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", f.ViewerID))
		}
		if f.IsInShoppingCart {
			q = q.Where("recipes.id IN (?)", s.db.Model(&models.Cart{}).Select("recipe_id").Where("user_id = ?", f.ViewerID))
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}

	var recipes []models.Recipe
	err := withDetails(filtered()).
		Order("recipes.pub_date DESC").
		Order("recipes.id DESC").
		Limit(limit).
		Offset(f.Offset).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

// Flags reports which of recipeIDs the viewer has favorited or put in the
// cart. Anonymous viewers get empty sets.
func (s *RecipeService) Flags(ctx context.Context, viewerID uint, recipeIDs []uint) (RecipeFlags, error) {
	flags := RecipeFlags{Favorited: map[uint]bool{}, InCart: map[uint]bool{}}
	if viewerID == 0 || len(recipeIDs) == 0 {
		return flags, nil
	}

	db := s.db.WithContext(ctx)
	var err error
	if flags.Favorited, err = memberIDs(db, &models.Favorite{}, viewerID, recipeIDs); err != nil {
		return RecipeFlags{}, err
	}
	if flags.InCart, err = memberIDs(db, &models.Cart{}, viewerID, recipeIDs); err != nil {
		return RecipeFlags{}, err
	}
	return flags, nil
}

// memberIDs returns which of recipeIDs have a (userID, recipe) row in
// model's table.
func memberIDs(db *gorm.DB, model interface{}, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	var ids []uint
	err := db.Model(model).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, err
	}

	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// withDetails preloads everything the recipe representation needs.
func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id") }).
		Preload("Ingredients.Ingredient")
}

func replaceTags(tx *gorm.DB, recipeID uint, tagIDs []uint) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeTag{}).Error; err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}

	links := make([]models.RecipeTag, len(tagIDs))
	for i, id := range tagIDs {
		links[i] = models.RecipeTag{RecipeID: recipeID, TagID: id}
	}
	return tx.Create(&links).Error
}

func replaceIngredients(tx *gorm.DB, recipeID uint, items []IngredientAmount) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	rows := make([]models.RecipeIngredient, len(items))
	for i, item := range items {
		rows[i] = models.RecipeIngredient{RecipeID: recipeID, IngredientID: item.IngredientID, Amount: item.Amount}
	}
	if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
		return duplicate(err, "ingredients")
	}
	return nil
}

// missingIDs returns the ids with no row in model's table, in input order.
func missingIDs(tx *gorm.DB, model interface{}, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var found []uint
	if err := tx.Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	present := make(map[uint]bool, len(found))
	for _, id := range found {
		present[id] = true
	}

	var missing []uint
	for _, id := range ids {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
