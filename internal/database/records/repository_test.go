package records

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/errors"
	"github.com/mrlokans/librarian/internal/query"
	"github.com/mrlokans/librarian/internal/schema"
)

var (
	authorDef = Definition{
		Schema: schema.Schema{Entity: "author", Fields: []schema.Field{
			{Name: "name", Kind: schema.KindString, Required: true},
		}},
		Search:   query.SearchSpec{Table: "authors", Fields: []string{"name"}},
		Preloads: []string{"Image"},
	}
	simpleDef = func(entity string) Definition {
		return Definition{Schema: schema.Schema{Entity: entity, Fields: []schema.Field{
			{Name: "name", Kind: schema.KindString, Required: true},
		}}}
	}
	bookDef = Definition{
		Schema: schema.Schema{Entity: "book", Fields: []schema.Field{
			{Name: "title", Kind: schema.KindString, Required: true},
			{Name: "isbn", Kind: schema.KindString, Required: true},
			{Name: "publisher", Kind: schema.KindString},
			{Name: "date_published", Kind: schema.KindDate},
			{Name: "author_id", Kind: schema.KindRef, Required: true, Ref: "authors"},
			{Name: "category_id", Kind: schema.KindRef, Required: true, Ref: "categories"},
			{Name: "shelf_id", Kind: schema.KindRef, Required: true, Ref: "shelves"},
		}},
		Search: query.SearchSpec{
			Table:   "books",
			Fields:  []string{"title", "isbn"},
			Related: []query.Relation{{Table: "authors", ForeignKey: "author_id", Field: "name"}},
		},
		Preloads: []string{"Author", "Category", "Shelf", "Image"},
	}
	userDef = Definition{
		Schema: schema.Schema{Entity: "user", Fields: []schema.Field{
			{Name: "name", Kind: schema.KindString, Required: true},
			{Name: "email", Kind: schema.KindString, Required: true, Rules: "email"},
			{Name: "password", Kind: schema.KindString, Secret: true,
				Normalize: func(v string) (string, error) { return "hashed:" + v, nil }},
			{Name: "role_id", Kind: schema.KindRef, Required: true, Ref: "roles"},
		}},
	}
)

type fixture struct {
	db       *gorm.DB
	books    *Repository[entities.Book]
	authors  *Repository[entities.Author]
	authorID string
	category string
	shelf    string
}

func setupTestDB(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(database.Dialector(filepath.Join(t.TempDir(), "records.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	ctx := context.Background()
	authors := NewRepository[entities.Author](db, authorDef)
	author, err := authors.Create(ctx, map[string]string{"name": "Frank Herbert"})
	require.NoError(t, err)

	cat, err := NewRepository[entities.Category](db, simpleDef("category")).Create(ctx, map[string]string{"name": "Sci-Fi"})
	require.NoError(t, err)
	shelf, err := NewRepository[entities.Shelf](db, simpleDef("shelf")).Create(ctx, map[string]string{"name": "A1"})
	require.NoError(t, err)

	return &fixture{
		db:       db,
		books:    NewRepository[entities.Book](db, bookDef),
		authors:  authors,
		authorID: fmt.Sprint(author.ID),
		category: fmt.Sprint(cat.ID),
		shelf:    fmt.Sprint(shelf.ID),
	}
}

func (f *fixture) bookInput(title string) map[string]string {
	return map[string]string{
		"title":       title,
		"isbn":        "9780441013593",
		"author_id":   f.authorID,
		"category_id": f.category,
		"shelf_id":    f.shelf,
	}
}

func TestCreate_WritesOnlyAllowListedFields(t *testing.T) {
	f := setupTestDB(t)
	input := f.bookInput("Dune")
	input["id"] = "4242"
	input["created_at"] = "1990-01-01"
	input["publisher"] = "Chilton"

	book, err := f.books.Create(context.Background(), input)
	require.NoError(t, err)

	assert.NotEqual(t, uint(4242), book.ID)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Chilton", book.Publisher)
	assert.WithinDuration(t, time.Now(), book.CreatedAt, time.Minute)
}

func TestCreate_LoadsRelations(t *testing.T) {
	f := setupTestDB(t)

	book, err := f.books.Create(context.Background(), f.bookInput("Dune"))
	require.NoError(t, err)

	require.NotNil(t, book.Author)
	assert.Equal(t, "Frank Herbert", book.Author.Name)
	require.NotNil(t, book.Category)
	assert.Equal(t, "Sci-Fi", book.Category.Name)
	require.NotNil(t, book.Shelf)
	assert.Nil(t, book.Image)
}

func TestCreate_MissingReference(t *testing.T) {
	f := setupTestDB(t)
	input := f.bookInput("Dune")
	input["author_id"] = "999"

	_, err := f.books.Create(context.Background(), input)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Equal(t, "does not exist", errors.FieldErrors(err)["author_id"])

	count, err := f.books.Count(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreate_ValidationWritesNothing(t *testing.T) {
	f := setupTestDB(t)

	_, err := f.books.Create(context.Background(), map[string]string{"title": "Dune"})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	count, _ := f.books.Count(context.Background(), nil)
	assert.Zero(t, count)
}

func TestCreate_UniqueViolationIsFieldError(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, f.db.Create(&entities.Role{RoleName: entities.RoleMember}).Error)
	var role entities.Role
	require.NoError(t, f.db.First(&role).Error)

	users := NewRepository[entities.User](f.db, userDef)
	input := map[string]string{"name": "Ann", "email": "ann@example.com", "role_id": fmt.Sprint(role.ID)}
	_, err := users.Create(ctx, input)
	require.NoError(t, err)

	_, err = users.Create(ctx, input)
	require.Error(t, err)
	assert.Equal(t, "is already taken", errors.FieldErrors(err)["email"])
}

func TestGet_NotFound(t *testing.T) {
	f := setupTestDB(t)

	_, err := f.books.Get(context.Background(), 12345)

	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestUpdate_OnlyPresentFields(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	input := f.bookInput("Dune")
	input["publisher"] = "Chilton"
	book, err := f.books.Create(ctx, input)
	require.NoError(t, err)

	updated, err := f.books.Update(ctx, book.ID, map[string]string{"title": "Dune Messiah", "id": "77"})
	require.NoError(t, err)

	assert.Equal(t, book.ID, updated.ID)
	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Equal(t, "Chilton", updated.Publisher)
	assert.Equal(t, "9780441013593", updated.ISBN)
}

func TestUpdate_ClearsOptionalDate(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	input := f.bookInput("Dune")
	input["date_published"] = "1965-08-01"
	book, err := f.books.Create(ctx, input)
	require.NoError(t, err)
	require.NotNil(t, book.DatePublished)

	updated, err := f.books.Update(ctx, book.ID, map[string]string{"date_published": ""})
	require.NoError(t, err)
	assert.Nil(t, updated.DatePublished)
}

func TestUpdate_BlankPasswordKeepsStoredHash(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, f.db.Create(&entities.Role{RoleName: entities.RoleMember}).Error)
	var role entities.Role
	require.NoError(t, f.db.First(&role).Error)

	users := NewRepository[entities.User](f.db, userDef)
	user, err := users.Create(ctx, map[string]string{
		"name": "Ann", "email": "ann@example.com", "password": "supersecret1", "role_id": fmt.Sprint(role.ID),
	})
	require.NoError(t, err)

	updated, err := users.Update(ctx, user.ID, map[string]string{"name": "Ann B", "password": ""})
	require.NoError(t, err)
	assert.Equal(t, "Ann B", updated.Name)

	var stored entities.User
	require.NoError(t, f.db.First(&stored, user.ID).Error)
	assert.Equal(t, "hashed:supersecret1", stored.Password)

	_, err = users.Update(ctx, user.ID, map[string]string{"password": "newsecret22"})
	require.NoError(t, err)
	require.NoError(t, f.db.First(&stored, user.ID).Error)
	assert.Equal(t, "hashed:newsecret22", stored.Password)
}

func TestUpdate_Errors(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	_, err := f.books.Update(ctx, 999, map[string]string{"title": "x"})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	book, err := f.books.Create(ctx, f.bookInput("Dune"))
	require.NoError(t, err)

	_, err = f.books.Update(ctx, book.ID, map[string]string{"shelf_id": "999"})
	assert.Equal(t, "does not exist", errors.FieldErrors(err)["shelf_id"])

	_, err = f.books.Update(ctx, book.ID, map[string]string{"title": " "})
	assert.Equal(t, "is required", errors.FieldErrors(err)["title"])
}

func TestDelete(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	book, err := f.books.Create(ctx, f.bookInput("Dune"))
	require.NoError(t, err)

	require.NoError(t, f.books.Delete(ctx, book.ID))

	exists, err := f.books.Exists(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.True(t, errors.Is(f.books.Delete(ctx, book.ID), errors.ErrNotFound))
}

func TestList_FilterOrderAndWindow(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	for i := 1; i <= 7; i++ {
		_, err := f.books.Create(ctx, f.bookInput(fmt.Sprintf("Book %d", i)))
		require.NoError(t, err)
	}

	items, total, err := f.books.List(ctx, ListOptions{
		Filter: query.Build("book", bookDef.Search),
		Order:  query.NewestFirst("books"),
		Offset: 5,
		Limit:  5,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), total)
	require.Len(t, items, 2)
	assert.Equal(t, "Book 2", items[0].Title)
	assert.Equal(t, "Book 1", items[1].Title)
	assert.NotNil(t, items[0].Author)
}

func TestList_SearchThroughRelation(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	_, err := f.books.Create(ctx, f.bookInput("Dune"))
	require.NoError(t, err)

	items, total, err := f.books.List(ctx, ListOptions{Filter: query.Build("HERBERT", bookDef.Search)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Dune", items[0].Title)

	items, total, err = f.books.List(ctx, ListOptions{Filter: query.Build("tolkien", bookDef.Search)})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestValues(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	book, err := f.books.Create(ctx, f.bookInput("Dune"))
	require.NoError(t, err)

	values := f.books.Values(ctx, book)

	assert.Equal(t, "Dune", values["title"])
	assert.Equal(t, book.AuthorID, values["author_id"])
	assert.NotContains(t, values, "id")
	assert.Equal(t, book.ID, f.books.ID(ctx, book))
}
