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

func TestSubscribe(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	svc := service.NewSubscriptionService(db)
	ctx := context.Background()
	reader := testhelpers.CreateUser(t, db, "reader")
	chef := testhelpers.CreateUser(t, db, "chef")

	author, err := svc.Subscribe(ctx, reader.ID, chef.ID)
	require.NoError(t, err)
	assert.Equal(t, "chef", author.Username)

	_, err = svc.Subscribe(ctx, reader.ID, chef.ID)
	assert.Equal(t, []string{"already exists"}, fieldErrors(t, err)[service.NonFieldErrors])

	_, err = svc.Subscribe(ctx, reader.ID, reader.ID)
	assert.Equal(t, []string{"cannot subscribe to yourself"}, fieldErrors(t, err)[service.NonFieldErrors])

	_, err = svc.Subscribe(ctx, reader.ID, 999)
	assert.ErrorIs(t, err, service.ErrNotFound)

	var count int64
	db.Model(&models.Subscription{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUnsubscribe(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	svc := service.NewSubscriptionService(db)
	ctx := context.Background()
	reader := testhelpers.CreateUser(t, db, "reader")
	chef := testhelpers.CreateUser(t, db, "chef")

	require.NoError(t, svc.Unsubscribe(ctx, reader.ID, chef.ID))

	_, err := svc.Subscribe(ctx, reader.ID, chef.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Unsubscribe(ctx, reader.ID, chef.ID))

	following, err := svc.SubscribedTo(ctx, reader.ID, []uint{chef.ID})
	require.NoError(t, err)
	assert.False(t, following[chef.ID])

	assert.ErrorIs(t, svc.Unsubscribe(ctx, reader.ID, 999), service.ErrNotFound)
}

func TestListSubscriptions(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	svc := service.NewSubscriptionService(db)
	ctx := context.Background()
	reader := testhelpers.CreateUser(t, db, "reader")
	first := testhelpers.CreateUser(t, db, "first")
	second := testhelpers.CreateUser(t, db, "second")
	third := testhelpers.CreateUser(t, db, "third")

	for _, author := range []*models.User{second, first, third} {
		_, err := svc.Subscribe(ctx, reader.ID, author.ID)
		require.NoError(t, err)
	}

	authors, total, err := svc.List(ctx, reader.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, authors, 2)
	assert.Equal(t, "second", authors[0].Username)
	assert.Equal(t, "first", authors[1].Username)

	rest, _, err := svc.List(ctx, reader.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "third", rest[0].Username)

	following, err := svc.SubscribedTo(ctx, reader.ID, []uint{first.ID, reader.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{first.ID: true}, following)

	anonymous, err := svc.SubscribedTo(ctx, 0, []uint{first.ID})
	require.NoError(t, err)
	assert.Empty(t, anonymous)
}

func TestAuthorRecipes(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	svc := service.NewSubscriptionService(db)
	ctx := context.Background()
	chef := testhelpers.CreateUser(t, db, "chef")
	idle := testhelpers.CreateUser(t, db, "idle")

	testhelpers.CreateRecipe(t, db, chef, "a", nil, nil)
	testhelpers.CreateRecipe(t, db, chef, "b", nil, nil)
	newest := testhelpers.CreateRecipe(t, db, chef, "c", nil, nil)

	limited, err := svc.RecipesOf(ctx, chef.ID, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, newest.ID, limited[0].ID)

	all, err := svc.RecipesOf(ctx, chef.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	counts, err := svc.RecipeCounts(ctx, []uint{chef.ID, idle.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[chef.ID])
	assert.Zero(t, counts[idle.ID])
}
