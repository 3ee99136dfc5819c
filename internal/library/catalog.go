// Package library assembles the record stores of the library catalog.
//
// Each resource pairs a records.Repository with its listing, import and
// export services. Catalog holds one Resource per exposed table and is the
// single place that knows which tables the admin API serves.
package library

import (
	"context"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/database/records"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/exporters"
	"github.com/mrlokans/librarian/internal/importers"
	"github.com/mrlokans/librarian/internal/listing"
	"github.com/mrlokans/librarian/internal/parsers"
	"github.com/mrlokans/librarian/internal/query"
)

// Resource names double as route segments and table names.
const (
	ResourceBooks      = "books"
	ResourceAuthors    = "authors"
	ResourceCategories = "categories"
	ResourceShelves    = "shelves"
	ResourceUsers      = "users"
	ResourceBorrowings = "borrowings"
	ResourceReturnings = "returnings"
)

// Resource bundles the services for one record type.
type Resource[T any] struct {
	Name     string
	Records  *records.Repository[T]
	Listing  *listing.Service[T]
	Importer *importers.Importer[T]
	Exporter *exporters.Exporter[T]
}

func newResource[T any](db *gorm.DB, name string, def records.Definition, pageSize int, exportName string) *Resource[T] {
	repo := records.NewRepository[T](db, def)
	return &Resource[T]{
		Name:     name,
		Records:  repo,
		Listing:  listing.NewService[T](repo, pageSize),
		Importer: importers.NewImporter[T](repo),
		Exporter: exporters.NewExporter[T](repo, exportName),
	}
}

// Entity is the singular name used in messages, e.g. "book".
func (r *Resource[T]) Entity() string {
	return r.Records.Definition().Schema.Entity
}

func (r *Resource[T]) Import(ctx context.Context, src io.Reader, filename string) (*importers.Result, error) {
	return r.Importer.Import(ctx, src, filename)
}

func (r *Resource[T]) Export(ctx context.Context, w io.Writer, format parsers.Format) (*exporters.Result, error) {
	return r.Exporter.Export(ctx, w, format)
}

func (r *Resource[T]) Filename(format parsers.Format) string {
	return r.Exporter.Filename(format)
}

func (r *Resource[T]) Count(ctx context.Context) (int64, error) {
	return r.Records.Count(ctx, nil)
}

// Transfer is the type-erased import/export surface of a Resource.
type Transfer interface {
	Entity() string
	Import(ctx context.Context, src io.Reader, filename string) (*importers.Result, error)
	Export(ctx context.Context, w io.Writer, format parsers.Format) (*exporters.Result, error)
	Filename(format parsers.Format) string
	Count(ctx context.Context) (int64, error)
}

type Options struct {
	PageSize int
	// HashPassword stores user passwords. Required.
	HashPassword func(string) (string, error)
}

type Catalog struct {
	Books      *Resource[entities.Book]
	Authors    *Resource[entities.Author]
	Categories *Resource[entities.Category]
	Shelves    *Resource[entities.Shelf]
	Users      *Resource[entities.User]
	Borrowings *Resource[entities.Borrowing]
	Returnings *Resource[entities.Returning]

	BorrowRequests       *records.Repository[entities.BorrowRequest]
	BorrowRequestListing *listing.Service[entities.BorrowRequest]

	transfers map[string]Transfer
	order     []string
}

func NewCatalog(db *gorm.DB, opts Options) *Catalog {
	size := opts.PageSize
	c := &Catalog{
		Books:      newResource[entities.Book](db, ResourceBooks, BookDefinition(), size, "booklist"),
		Authors:    newResource[entities.Author](db, ResourceAuthors, AuthorDefinition(), size, "authorlist"),
		Categories: newResource[entities.Category](db, ResourceCategories, CategoryDefinition(), size, "categorylist"),
		Shelves:    newResource[entities.Shelf](db, ResourceShelves, ShelfDefinition(), size, "shelflist"),
		Users:      newResource[entities.User](db, ResourceUsers, UserDefinition(opts.HashPassword), size, "userlist"),
		Borrowings: newResource[entities.Borrowing](db, ResourceBorrowings, BorrowingDefinition(), size, "borrowinglist"),
		Returnings: newResource[entities.Returning](db, ResourceReturnings, ReturningDefinition(), size, "returninglist"),
	}
	c.BorrowRequests = records.NewRepository[entities.BorrowRequest](db, BorrowRequestDefinition())
	c.BorrowRequestListing = listing.NewService[entities.BorrowRequest](c.BorrowRequests, size)

	c.transfers = make(map[string]Transfer)
	for _, t := range []struct {
		name string
		t    Transfer
	}{
		{ResourceBooks, c.Books},
		{ResourceAuthors, c.Authors},
		{ResourceCategories, c.Categories},
		{ResourceShelves, c.Shelves},
		{ResourceUsers, c.Users},
		{ResourceBorrowings, c.Borrowings},
		{ResourceReturnings, c.Returnings},
	} {
		c.transfers[t.name] = t.t
		c.order = append(c.order, t.name)
	}
	return c
}

// Resources lists the resource names in catalog order.
func (c *Catalog) Resources() []string {
	return append([]string(nil), c.order...)
}

// Transfer returns the import/export surface for a resource name.
func (c *Catalog) Transfer(name string) (Transfer, bool) {
	t, ok := c.transfers[name]
	return t, ok
}

// Counts returns the number of records per resource.
func (c *Catalog) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(c.order)+1)
	for _, name := range c.order {
		n, err := c.transfers[name].Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		counts[name] = n
	}
	n, err := c.BorrowRequests.Count(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("count borrow_requests: %w", err)
	}
	counts["borrow_requests"] = n
	return counts, nil
}

// Members lists users whose role is member.
func (c *Catalog) Members(ctx context.Context, search string, page int) (listing.Page[entities.User], error) {
	return c.Users.Listing.ListPage(ctx, listing.Request{
		Search: search,
		Page:   page,
		Scopes: []query.Predicate{MemberScope()},
	})
}
