package models

import (
	"time"
)

const (
	MinCookingTime = 1
	MaxCookingTime = 32767

	// Amounts are exclusive on both ends.
	MinAmount = 0
	MaxAmount = 1000
)

type Recipe struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	AuthorID    uint               `gorm:"not null;index" json:"author_id"`
	Author      User               `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	Name        string             `gorm:"size:200;not null" json:"name"`
	Text        string             `gorm:"type:text;not null" json:"text"`
	Image       string             `gorm:"size:255;not null" json:"image"`
	CookingTime int                `gorm:"not null;check:chk_recipe_cooking_time,cooking_time >= 1 AND cooking_time <= 32767" json:"cooking_time"`
	PubDate     time.Time          `gorm:"not null;index;autoCreateTime" json:"pub_date"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Tags        []Tag              `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE" json:"tags"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"ingredients"`
}

// RecipeTag is the join row between recipes and tags.
type RecipeTag struct {
	RecipeID uint `gorm:"primaryKey"`
	TagID    uint `gorm:"primaryKey;index"`
}

type RecipeIngredient struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RecipeID     uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient_pair" json:"recipe_id"`
	IngredientID uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient_pair;index" json:"ingredient_id"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE" json:"ingredient"`
	Amount       int        `gorm:"not null;check:chk_recipe_ingredient_amount,amount > 0 AND amount < 1000" json:"amount"`
}

// Favorite bookmarks a recipe for a user.
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorite_pair" json:"user_id"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_favorite_pair;index" json:"recipe_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Recipe    *Recipe   `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Cart is one recipe in a user's shopping cart.
type Cart struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_pair" json:"user_id"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_cart_pair;index" json:"recipe_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Recipe    *Recipe   `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// All lists every model in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Ingredient{},
		&Tag{},
		&Recipe{},
		&RecipeTag{},
		&RecipeIngredient{},
		&Favorite{},
		&Cart{},
		&Subscription{},
	}
}
