package models

import (
	"strings"

	"gorm.io/gorm"
)

// Ingredient is shared reference data; recipes point at it through
// RecipeIngredient.
type Ingredient struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"size:200;not null;index" json:"name"`
	MeasurementUnit string `gorm:"size:200;not null" json:"measurement_unit"`
}

type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:200;uniqueIndex;not null" json:"name"`
	Slug  string `gorm:"size:200;uniqueIndex;not null" json:"slug"`
	Color string `gorm:"size:7;uniqueIndex;not null" json:"color"`
}

// BeforeSave keeps the stored color uppercase whatever path wrote it.
func (t *Tag) BeforeSave(tx *gorm.DB) error {
	t.Color = strings.ToUpper(t.Color)
	return nil
}
