package images

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/errors"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "images.db")+"?_busy_timeout=5000&_txlock=immediate"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewRepository(db)
}

var book7 = entities.OwnerRef{ID: 7, Kind: entities.OwnerKindBook}

func TestUpsert_CreatesThenReplaces(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	img, previous, err := repo.Upsert(ctx, book7, "a_cover.jpg", "LKO2?U%2Tw=w")
	require.NoError(t, err)
	assert.Empty(t, previous)
	assert.Equal(t, "a_cover.jpg", img.Filename)
	assert.Equal(t, "books", img.ImageableType)

	img2, previous, err := repo.Upsert(ctx, book7, "b_cover.jpg", "")
	require.NoError(t, err)
	assert.Equal(t, "a_cover.jpg", previous)
	assert.Equal(t, img.ID, img2.ID)
	assert.Equal(t, "b_cover.jpg", img2.Filename)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUpsert_SameFilenameReportsNoPrevious(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	_, _, err := repo.Upsert(ctx, book7, "a.jpg", "")
	require.NoError(t, err)
	_, previous, err := repo.Upsert(ctx, book7, "a.jpg", "")
	require.NoError(t, err)
	assert.Empty(t, previous)
}

func TestUpsert_OwnersAreIndependent(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	_, _, err := repo.Upsert(ctx, book7, "book.jpg", "")
	require.NoError(t, err)
	_, previous, err := repo.Upsert(ctx, entities.OwnerRef{ID: 7, Kind: entities.OwnerKindAuthor}, "author.jpg", "")
	require.NoError(t, err)
	assert.Empty(t, previous)

	count, _ := repo.Count(ctx)
	assert.Equal(t, int64(2), count)
}

func TestUpsert_RejectsUnknownKind(t *testing.T) {
	repo := setupTestDB(t)

	_, _, err := repo.Upsert(context.Background(), entities.OwnerRef{ID: 1, Kind: "shelves"}, "x.jpg", "")

	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestUpsert_ConcurrentSingleRow(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, _ = repo.Upsert(ctx, book7, fmt.Sprintf("%d.jpg", i), "")
		}(i)
	}
	wg.Wait()

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDelete(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	_, _, err := repo.Upsert(ctx, book7, "a.jpg", "")
	require.NoError(t, err)

	name, err := repo.Delete(ctx, book7)
	require.NoError(t, err)
	assert.Equal(t, "a.jpg", name)

	_, err = repo.Find(ctx, book7)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = repo.Delete(ctx, book7)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestReferencedFilenames(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	_, _, _ = repo.Upsert(ctx, book7, "a.jpg", "")
	_, _, _ = repo.Upsert(ctx, entities.OwnerRef{ID: 1, Kind: entities.OwnerKindUser}, "u.jpg", "")

	names, err := repo.ReferencedFilenames(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "a.jpg")
	assert.Contains(t, names, "u.jpg")
	assert.Len(t, names, 2)
}
