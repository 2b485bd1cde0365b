package service

import (
	"context"

	"github.com/pageza/foodgram/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

// Subscribe makes userID follow authorID and returns the author.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID, authorID uint) (*models.User, error) {
	db := s.db.WithContext(ctx)

	var author models.User
	if err := db.First(&author, authorID).Error; err != nil {
		return nil, notFound(err)
	}
	if userID == authorID {
		return nil, NewValidationError(NonFieldErrors, "cannot subscribe to yourself")
	}

	taken, err := exists(db, &models.Subscription{}, "user_id = ? AND author_id = ?", userID, authorID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, NewValidationError(NonFieldErrors, "already exists")
	}

	sub := models.Subscription{UserID: userID, AuthorID: authorID}
	if err := db.Omit(clause.Associations).Create(&sub).Error; err != nil {
		return nil, duplicate(err, NonFieldErrors)
	}
	return &author, nil
}

// Unsubscribe removes the follow; a missing subscription is not an error.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, userID, authorID uint) error {
	db := s.db.WithContext(ctx)

	var author models.User
	if err := db.Select("id").First(&author, authorID).Error; err != nil {
		return notFound(err)
	}
	return db.Where("user_id = ? AND author_id = ?", userID, authorID).Delete(&models.Subscription{}).Error
}

// List returns one page of the authors userID follows, in subscription
// order, and their total number.
func (s *SubscriptionService) List(ctx context.Context, userID uint, limit, offset int) ([]models.User, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Subscription{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var authors []models.User
	err := db.Model(&models.User{}).
		Joins("JOIN subscriptions ON subscriptions.author_id = users.id").
		Where("subscriptions.user_id = ?", userID).
		Order("subscriptions.id").
		Limit(limit).
		Offset(offset).
		Find(&authors).Error
	if err != nil {
		return nil, 0, err
	}
	return authors, total, nil
}

// SubscribedTo returns which of authorIDs userID follows. Anonymous viewers
// follow nobody.
func (s *SubscriptionService) SubscribedTo(ctx context.Context, userID uint, authorIDs []uint) (map[uint]bool, error) {
	set := map[uint]bool{}
	if userID == 0 || len(authorIDs) == 0 {
		return set, nil
	}

	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id IN ?", userID, authorIDs).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// RecipesOf returns the author's newest recipes. limit <= 0 returns all.
func (s *SubscriptionService) RecipesOf(ctx context.Context, authorID uint, limit int) ([]models.Recipe, error) {
	if limit <= 0 {
		limit = -1
	}

	var recipes []models.Recipe
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("pub_date DESC").
		Order("id DESC").
		Limit(limit).
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}
	return recipes, nil
}

// RecipeCounts returns the number of recipes of each author.
func (s *SubscriptionService) RecipeCounts(ctx context.Context, authorIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(authorIDs))
	if len(authorIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		AuthorID uint
		Total    int64
	}
	err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", authorIDs).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.AuthorID] = row.Total
	}
	return counts, nil
}
