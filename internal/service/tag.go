package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/pageza/foodgram/backend/internal/models"
	"gorm.io/gorm"
)

var (
	colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	slugPattern  = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// NormalizeColor validates a #RGB or #RRGGBB color and returns it as
// uppercase #RRGGBB.
func NormalizeColor(color string) (string, bool) {
	color = strings.TrimSpace(color)
	if !colorPattern.MatchString(color) {
		return "", false
	}
	if len(color) == 4 {
		color = string([]byte{'#', color[1], color[1], color[2], color[2], color[3], color[3]})
	}
	return strings.ToUpper(color), true
}

// ValidSlug reports whether s is a slug of letters, digits, - and _.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

type TagService struct {
	db *gorm.DB
}

func NewTagService(db *gorm.DB) *TagService {
	return &TagService{db: db}
}

func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *TagService) Get(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &tag, nil
}

// Create stores a new tag after validating and normalizing its fields.
func (s *TagService) Create(ctx context.Context, name, slug, color string) (*models.Tag, error) {
	verr := &ValidationError{}

	name = strings.TrimSpace(name)
	if name == "" {
		verr.Add("name", "this field is required")
	} else if len([]rune(name)) > 200 {
		verr.Add("name", "ensure this field has no more than 200 characters")
	}
	if !ValidSlug(slug) || len(slug) > 200 {
		verr.Add("slug", "enter a valid slug consisting of letters, numbers, underscores or hyphens")
	}
	normalized, ok := NormalizeColor(color)
	if !ok {
		verr.Add("color", "enter a valid hex color, e.g. #49B64E")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	for field, value := range map[string]string{"name": name, "slug": slug, "color": normalized} {
		taken, err := exists(db, &models.Tag{}, field+" = ?", value)
		if err != nil {
			return nil, err
		}
		if taken {
			verr.Addf(field, "tag with this %s already exists", field)
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	tag := &models.Tag{Name: name, Slug: slug, Color: normalized}
	if err := db.Create(tag).Error; err != nil {
		return nil, duplicate(err, NonFieldErrors)
	}
	return tag, nil
}
