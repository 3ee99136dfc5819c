package library

import (
	"github.com/mrlokans/librarian/internal/database/records"
	"github.com/mrlokans/librarian/internal/query"
	"github.com/mrlokans/librarian/internal/schema"
)

var (
	usersByName  = query.Relation{Table: "users", ForeignKey: "user_id", Field: "name"}
	booksByTitle = query.Relation{Table: "books", ForeignKey: "book_id", Field: "title"}
	rolesByName  = query.Relation{Table: "roles", ForeignKey: "role_id", Field: "role_name"}
)

// BookDefinition is the book catalog entry. Books are searched by title and
// isbn, and by the name of their author or category.
func BookDefinition() records.Definition {
	return records.Definition{
		Schema: schema.Schema{Entity: "book", Fields: []schema.Field{
			{Name: "title", Kind: schema.KindString, Required: true, Rules: "max=512"},
			{Name: "isbn", Kind: schema.KindString, Required: true, Rules: "max=20"},
			{Name: "publisher", Kind: schema.KindString, Rules: "max=256"},
			{Name: "date_published", Kind: schema.KindDate},
			{Name: "author_id", Kind: schema.KindRef, Required: true, Ref: "authors"},
			{Name: "category_id", Kind: schema.KindRef, Required: true, Ref: "categories"},
			{Name: "shelf_id", Kind: schema.KindRef, Required: true, Ref: "shelves"},
		}},
		Search: query.SearchSpec{
			Table:  "books",
			Fields: []string{"title", "isbn"},
			Related: []query.Relation{
				{Table: "authors", ForeignKey: "author_id", Field: "name"},
				{Table: "categories", ForeignKey: "category_id", Field: "name"},
			},
		},
		Preloads: []string{"Author", "Category", "Shelf", "Image"},
	}
}

func AuthorDefinition() records.Definition {
	return records.Definition{
		Schema: schema.Schema{Entity: "author", Fields: []schema.Field{
			{Name: "name", Kind: schema.KindString, Required: true, Rules: "max=256"},
		}},
		Search:   query.SearchSpec{Table: "authors", Fields: []string{"name"}},
		Preloads: []string{"Image"},
	}
}

func CategoryDefinition() records.Definition {
	return records.Definition{
		Schema: schema.Schema{Entity: "category", Fields: []schema.Field{
			{Name: "name", Kind: schema.KindString, Required: true, Rules: "max=256"},
		}},
		Search: query.SearchSpec{Table: "categories", Fields: []string{"name"}},
	}
}

func ShelfDefinition() records.Definition {
	return records.Definition{
		Schema: schema.Schema{Entity: "shelf", Fields: []schema.Field{
			{Name: "name", Kind: schema.KindString, Required: true, Rules: "max=100"},
			{Name: "location", Kind: schema.KindString, Rules: "max=256"},
		}},
		Search: query.SearchSpec{Table: "shelves", Fields: []string{"name", "location"}},
	}
}

// UserDefinition describes users. hashPassword turns the submitted password
// into the stored value; the password column is never exported.
func UserDefinition(hashPassword func(string) (string, error)) records.Definition {
	return records.Definition{
		Schema: schema.Schema{Entity: "user", Fields: []schema.Field{
			{Name: "name", Kind: schema.KindString, Required: true, Rules: "max=256"},
			{Name: "email", Kind: schema.KindString, Required: true, Rules: "email,max=255"},
			{Name: "phone", Kind: schema.KindString, Rules: "max=32"},
			{Name: "password", Kind: schema.KindString, Secret: true, Normalize: hashPassword},
			{Name: "role_id", Kind: schema.KindRef, Required: true, Ref: "roles"},
		}},
		Search: query.SearchSpec{
			Table:   "users",
			Fields:  []string{"name", "email"},
			Related: []query.Relation{rolesByName},
		},
		Preloads: []string{"Role", "Image"},
	}
}

func BorrowingDefinition() records.Definition {
	return records.Definition{
		Schema: schema.Schema{Entity: "borrowing", Fields: []schema.Field{
			{Name: "user_id", Kind: schema.KindRef, Required: true, Ref: "users"},
			{Name: "book_id", Kind: schema.KindRef, Required: true, Ref: "books"},
			{Name: "date_borrowed", Kind: schema.KindDate, Required: true},
			{Name: "due_date", Kind: schema.KindDate, Required: true},
		}},
		Search: query.SearchSpec{
			Table:   "borrowings",
			Related: []query.Relation{usersByName, booksByTitle},
		},
		Preloads: []string{"User", "Book"},
	}
}

func ReturningDefinition() records.Definition {
	return records.Definition{
		Schema: schema.Schema{Entity: "returning", Fields: []schema.Field{
			{Name: "borrow_id", Kind: schema.KindRef, Required: true, Ref: "borrowings"},
			{Name: "user_id", Kind: schema.KindRef, Required: true, Ref: "users"},
			{Name: "book_id", Kind: schema.KindRef, Required: true, Ref: "books"},
			{Name: "date_returned", Kind: schema.KindDate, Required: true},
			{Name: "due_date", Kind: schema.KindDate, Required: true},
			{Name: "fine", Kind: schema.KindDecimal, Rules: "gte=0"},
		}},
		Search: query.SearchSpec{
			Table:   "returnings",
			Related: []query.Relation{usersByName, booksByTitle},
		},
		Preloads: []string{"User", "Book"},
	}
}

// BorrowRequestDefinition covers requests created by the client application.
// The admin side only lists and deletes them.
func BorrowRequestDefinition() records.Definition {
	return records.Definition{
		Schema: schema.Schema{Entity: "borrow request", Fields: []schema.Field{
			{Name: "user_id", Kind: schema.KindRef, Required: true, Ref: "users"},
			{Name: "book_id", Kind: schema.KindRef, Required: true, Ref: "books"},
		}},
		Search: query.SearchSpec{
			Table:   "borrow_requests",
			Related: []query.Relation{usersByName, booksByTitle},
		},
		Preloads: []string{"User", "Book"},
	}
}

// MemberScope restricts a user listing to users whose role is member.
func MemberScope() query.Predicate {
	return query.RelatedEquals("users", rolesByName, "member")
}
