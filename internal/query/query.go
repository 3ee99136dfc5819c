// Package query builds the search predicates used by list pages and exports.
//
// A search term is matched case-insensitively as a substring against the
// record's own searchable columns and against columns of directly related
// records. Case folding is Unicode-aware and relies on the SQL function
// registered by database.Dialector. An empty term matches everything.
package query

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/database"
)

// Predicate narrows a GORM query.
type Predicate func(*gorm.DB) *gorm.DB

// Relation is a many-to-one link searched through a foreign key.
type Relation struct {
	Table      string // related table, e.g. "authors"
	ForeignKey string // column on the searched table, e.g. "author_id"
	Field      string // searched column on the related table, e.g. "name"
}

// SearchSpec lists where a search term is looked for.
type SearchSpec struct {
	Table   string
	Fields  []string
	Related []Relation
}

const likeEscape = `\`

var likeReplacer = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Pattern turns a raw term into a LIKE pattern with wildcards escaped.
func Pattern(term string) string {
	return "%" + likeReplacer.Replace(term) + "%"
}

// Build returns the search predicate for term. A blank term matches all rows.
// A spec without any searchable column matches nothing for a non-blank term.
func Build(term string, spec SearchSpec) Predicate {
	term = strings.TrimSpace(term)
	if term == "" {
		return All
	}

	pattern := Pattern(strings.ToLower(term))
	clauses := make([]string, 0, len(spec.Fields)+len(spec.Related))
	args := make([]any, 0, cap(clauses))

	for _, f := range spec.Fields {
		clauses = append(clauses, fmt.Sprintf("%s(%s) LIKE ? ESCAPE '%s'", database.LowerFunc, qualify(spec.Table, f), likeEscape))
		args = append(args, pattern)
	}
	for _, rel := range spec.Related {
		clauses = append(clauses, fmt.Sprintf(
			"%s IN (SELECT id FROM %s WHERE %s(%s) LIKE ? ESCAPE '%s')",
			qualify(spec.Table, rel.ForeignKey), rel.Table, database.LowerFunc, qualify(rel.Table, rel.Field), likeEscape,
		))
		args = append(args, pattern)
	}

	if len(clauses) == 0 {
		return None
	}

	where := "(" + strings.Join(clauses, " OR ") + ")"
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(where, args...)
	}
}

// All is the identity predicate.
func All(db *gorm.DB) *gorm.DB { return db }

// None matches no rows.
func None(db *gorm.DB) *gorm.DB { return db.Where("1 = 0") }

// ByID orders rows by ascending primary key.
func ByID(table string) Predicate {
	order := qualify(table, "id") + " ASC"
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(order)
	}
}

// NewestFirst orders by creation time, newest first, with id as a tiebreaker.
func NewestFirst(table string) Predicate {
	order := fmt.Sprintf("%s DESC, %s DESC", qualify(table, "created_at"), qualify(table, "id"))
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(order)
	}
}

// RelatedEquals restricts rows to those whose related record has field = value.
// Used for fixed scopes such as "users whose role is member".
func RelatedEquals(table string, rel Relation, value any) Predicate {
	where := fmt.Sprintf("%s IN (SELECT id FROM %s WHERE %s = ?)",
		qualify(table, rel.ForeignKey), rel.Table, qualify(rel.Table, rel.Field))
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(where, value)
	}
}

// And applies every predicate in order.
func And(preds ...Predicate) Predicate {
	return func(db *gorm.DB) *gorm.DB {
		for _, p := range preds {
			if p != nil {
				db = p(db)
			}
		}
		return db
	}
}

func qualify(table, column string) string {
	if table == "" {
		return column
	}
	return table + "." + column
}
