package testhelpers

import (
	"fmt"
	"testing"

	"github.com/pageza/foodgram/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TestPassword is the password of every user made by CreateUser.
const TestPassword = "s3cret-pass"

var testPasswordHash, _ = bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)

// CreateUser stores a user called username with TestPassword.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: string(testPasswordHash),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

// CreateTag stores a tag whose name, slug and color derive from slug and n.
func CreateTag(t *testing.T, db *gorm.DB, slug string, n int) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: "Tag " + slug, Slug: slug, Color: fmt.Sprintf("#%06X", n)}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("failed to create tag %s: %v", slug, err)
	}
	return tag
}

func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ingredient := &models.Ingredient{Name: name, MeasurementUnit: unit}
	if err := db.Create(ingredient).Error; err != nil {
		t.Fatalf("failed to create ingredient %s: %v", name, err)
	}
	return ingredient
}

// CreateRecipe stores a recipe with the given tags and ingredient amounts
// directly, without going through validation.
func CreateRecipe(t *testing.T, db *gorm.DB, author *models.User, name string, tags []*models.Tag, amounts map[*models.Ingredient]int) *models.Recipe {
	t.Helper()
	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        name,
		Text:        "How to make " + name,
		Image:       "/media/recipes/" + name + ".png",
		CookingTime: 15,
	}
	if err := db.Omit(clause.Associations).Create(recipe).Error; err != nil {
		t.Fatalf("failed to create recipe %s: %v", name, err)
	}
	for _, tag := range tags {
		if err := db.Create(&models.RecipeTag{RecipeID: recipe.ID, TagID: tag.ID}).Error; err != nil {
			t.Fatalf("failed to tag recipe %s: %v", name, err)
		}
	}
	for ingredient, amount := range amounts {
		row := &models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: ingredient.ID, Amount: amount}
		if err := db.Omit(clause.Associations).Create(row).Error; err != nil {
			t.Fatalf("failed to add ingredient to recipe %s: %v", name, err)
		}
	}
	return recipe
}
