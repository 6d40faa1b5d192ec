package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Conceptual-Machines/midigen-api/internal/apperr"
	"github.com/Conceptual-Machines/midigen-api/internal/models"
	"github.com/Conceptual-Machines/midigen-api/internal/music"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Needs a real postgres; run with DATABASE_URL set
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := Connect(url)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func createUser(t *testing.T, repo *UserRepository) *models.User {
	t.Helper()
	u := &models.User{Email: uuid.NewString() + "@example.com", Name: "Test"}
	require.NoError(t, u.HashPassword("password123"))
	require.NoError(t, repo.Create(context.Background(), u))
	t.Cleanup(func() { _ = repo.Delete(context.Background(), u.ID) })
	return u
}

func TestConnect_RequiresURL(t *testing.T) {
	_, err := Connect("")
	assert.Error(t, err)
}

func TestUserRepository(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	u := createUser(t, repo)

	got, err := repo.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	dup := &models.User{Email: u.Email, Password: "x"}
	assert.Equal(t, apperr.Conflict, apperr.KindOf(repo.Create(ctx, dup)))

	_, err = repo.Get(ctx, "not-a-uuid")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestGenerationRepository(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	repo := NewGenerationRepository(db)
	u := createUser(t, users)

	notes := []music.Note{{Pitch: "C4", StartTime: 0, Duration: 0.5, Velocity: 0.8}}
	first := &models.Generation{UserID: u.ID, Name: "first", Instrument: "piano", Notes: notes, FileID: "k1"}
	require.NoError(t, repo.Create(ctx, first))
	time.Sleep(10 * time.Millisecond)
	second := &models.Generation{UserID: u.ID, Name: "second", Instrument: "piano", Notes: notes, FileID: "k2"}
	require.NoError(t, repo.Create(ctx, second))
	t.Cleanup(func() {
		_ = repo.Delete(ctx, first.ID)
		_ = repo.Delete(ctx, second.ID)
	})

	got, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, notes, got.Notes)

	list, err := repo.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Name)

	name := "renamed"
	updated, err := repo.UpdateMetadata(ctx, first.ID, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)

	require.NoError(t, repo.Delete(ctx, first.ID))
	_, err = repo.Get(ctx, first.ID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.Equal(t, apperr.NotFound, apperr.KindOf(repo.Delete(ctx, first.ID)))
}
