// Package librarytest builds a migrated, seeded catalog on a temporary SQLite
// file for tests in other packages.
package librarytest

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

type Fixture struct {
	DB      *database.Database
	Catalog *library.Catalog

	AuthorID   uint
	CategoryID uint
	ShelfID    uint
	AdminRole  uint
	MemberRole uint
}

// New opens a fresh database and seeds one author, category and shelf.
func New(t testing.TB) *Fixture {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "library.db"), database.Options{LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &Fixture{
		DB: db,
		Catalog: library.NewCatalog(db.DB, library.Options{
			PageSize:     5,
			HashPassword: auth.PasswordHasher(bcrypt.MinCost),
		}),
	}

	author := entities.Author{Name: "Frank Herbert"}
	require.NoError(t, db.DB.Create(&author).Error)
	category := entities.Category{Name: "Science Fiction"}
	require.NoError(t, db.DB.Create(&category).Error)
	shelf := entities.Shelf{Name: "A1", Location: "First floor"}
	require.NoError(t, db.DB.Create(&shelf).Error)

	admin, err := db.GetRoleByName(entities.RoleAdmin)
	require.NoError(t, err)
	member, err := db.GetRoleByName(entities.RoleMember)
	require.NoError(t, err)

	f.AuthorID, f.CategoryID, f.ShelfID = author.ID, category.ID, shelf.ID
	f.AdminRole, f.MemberRole = admin.ID, member.ID
	return f
}

// BookInput returns valid create input for a book.
func (f *Fixture) BookInput(title, isbn string) map[string]string {
	return map[string]string{
		"title":       title,
		"isbn":        isbn,
		"author_id":   strconv.FormatUint(uint64(f.AuthorID), 10),
		"category_id": strconv.FormatUint(uint64(f.CategoryID), 10),
		"shelf_id":    strconv.FormatUint(uint64(f.ShelfID), 10),
	}
}

// CountBooks returns the number of book rows.
func (f *Fixture) CountBooks(t testing.TB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.DB.DB.Model(&entities.Book{}).Count(&n).Error)
	return n
}
