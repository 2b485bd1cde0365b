package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pageza/foodgram/backend/internal/models"
	"gorm.io/gorm"
)

const ingredientBatchSize = 500

type IngredientService struct {
	db *gorm.DB
}

func NewIngredientService(db *gorm.DB) *IngredientService {
	return &IngredientService{db: db}
}

// Search returns ingredients whose name starts with prefix, ignoring case.
// An empty prefix returns every ingredient.
func (s *IngredientService) Search(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	query := s.db.WithContext(ctx).Order("name").Order("id")
	if prefix != "" {
		query = query.Where("LOWER(name) LIKE ? ESCAPE '!'", escapeLike(strings.ToLower(prefix))+"%")
	}

	var ingredients []models.Ingredient
	if err := query.Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}

func (s *IngredientService) Get(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &ingredient, nil
}

// Import reads a JSON array of {"name", "measurement_unit"} objects and
// inserts them in batches inside one transaction. It returns the number of
// ingredients stored.
func (s *IngredientService) Import(ctx context.Context, r io.Reader) (int, error) {
	var rows []struct {
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
	}
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return 0, fmt.Errorf("failed to decode ingredients: %w", err)
	}

	ingredients := make([]models.Ingredient, 0, len(rows))
	for i, row := range rows {
		name := strings.TrimSpace(row.Name)
		unit := strings.TrimSpace(row.MeasurementUnit)
		if name == "" || unit == "" {
			return 0, fmt.Errorf("ingredient %d: name and measurement_unit are required", i)
		}
		ingredients = append(ingredients, models.Ingredient{Name: name, MeasurementUnit: unit})
	}
	if len(ingredients) == 0 {
		return 0, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&ingredients, ingredientBatchSize).Error
	})
	if err != nil {
		return 0, err
	}
	return len(ingredients), nil
}

// escapeLike escapes LIKE wildcards using ! as the escape character.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
