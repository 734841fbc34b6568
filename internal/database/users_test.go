package database

import (
	"context"
	"testing"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := &models.User{Name: "Alice", Email: "alice@example.com"}
	require.NoError(t, db.CreateUser(ctx, user))
	require.NotZero(t, user.ID)

	got, err := db.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, "alice@example.com", got.Email)

	got.Name = "Alice B"
	require.NoError(t, db.UpdateUser(ctx, got))

	updated, err := db.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", updated.Name)

	require.NoError(t, db.DeleteUser(ctx, user.ID))
	_, err = db.GetUser(ctx, user.ID)
	assert.True(t, domain.IsNotFound(err))
}

func TestUserNotFound(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.GetUser(ctx, 5)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.EqualError(t, err, "user with id 5 not found")

	assert.True(t, domain.IsNotFound(db.UpdateUser(ctx, &models.User{ID: 5, Name: "x", Email: "x@example.com"})))
	assert.True(t, domain.IsNotFound(db.DeleteUser(ctx, 5)))
}

func TestDuplicateEmailRejected(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateUser(ctx, &models.User{Name: "Alice", Email: "alice@example.com"}))
	err := db.CreateUser(ctx, &models.User{Name: "Imposter", Email: "alice@example.com"})
	assert.Error(t, err)
}
