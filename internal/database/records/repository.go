// Package records provides a generic repository for catalog tables.
//
// Every write goes through a schema.Schema, so only allow-listed columns are
// assigned and foreign keys are checked inside the same transaction as the
// write. Reads eager-load the relations named in the Definition.
//
// # Usage
//
//	books := records.NewRepository[entities.Book](db, library.BookDefinition)
//	book, err := books.Create(ctx, map[string]string{"title": "Dune", ...})
//	page, total, err := books.List(ctx, records.ListOptions{Filter: pred, Limit: 5})
package records

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormschema "gorm.io/gorm/schema"

	"github.com/mrlokans/librarian/internal/errors"
	"github.com/mrlokans/librarian/internal/query"
	"github.com/mrlokans/librarian/internal/schema"
)

// Definition describes one record type.
type Definition struct {
	Schema   schema.Schema
	Search   query.SearchSpec
	Preloads []string
}

// ListOptions narrows and pages a List call. A zero Limit returns every row.
type ListOptions struct {
	Filter query.Predicate
	Order  query.Predicate
	Offset int
	Limit  int
}

// Repository handles allow-listed CRUD for one entity type.
type Repository[T any] struct {
	db    *gorm.DB
	def   Definition
	model *gormschema.Schema
}

// NewRepository creates a repository for T. It panics if T is not a valid GORM model,
// which can only happen through a programming error.
func NewRepository[T any](db *gorm.DB, def Definition) *Repository[T] {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err != nil {
		panic(fmt.Sprintf("records: parse model %T: %v", *new(T), err))
	}
	return &Repository[T]{db: db, def: def, model: stmt.Schema}
}

func (r *Repository[T]) Definition() Definition {
	return r.def
}

// Table returns the underlying table name.
func (r *Repository[T]) Table() string {
	return r.model.Table
}

func (r *Repository[T]) entity() string {
	if r.def.Schema.Entity != "" {
		return r.def.Schema.Entity
	}
	return r.model.Table
}

func (r *Repository[T]) withPreloads(db *gorm.DB) *gorm.DB {
	for _, p := range r.def.Preloads {
		db = db.Preload(p)
	}
	return db
}

// Get returns one record with its relations loaded.
func (r *Repository[T]) Get(ctx context.Context, id uint) (*T, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *Repository[T]) get(db *gorm.DB, id uint) (*T, error) {
	var rec T
	err := r.withPreloads(db).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFoundf("%s %d not found", r.entity(), id)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", r.entity(), id, err)
	}
	return &rec, nil
}

// Exists reports whether a row with id exists.
func (r *Repository[T]) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Count returns the number of rows matching filter. A nil filter counts all rows.
func (r *Repository[T]) Count(ctx context.Context, filter query.Predicate) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Scopes(orAll(filter)).Count(&count).Error
	return count, err
}

// List returns a window of rows matching opts and the total number of matches.
func (r *Repository[T]) List(ctx context.Context, opts ListOptions) ([]T, int64, error) {
	filter := orAll(opts.Filter)

	total, err := r.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.entity(), err)
	}

	items := make([]T, 0)
	q := r.withPreloads(r.db.WithContext(ctx).Model(new(T))).Scopes(filter, orAll(opts.Order))
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", r.entity(), err)
	}
	return items, total, nil
}

// Create projects input through the schema and inserts a new row.
func (r *Repository[T]) Create(ctx context.Context, input map[string]string) (*T, error) {
	values, err := r.def.Schema.Project(input, schema.ModeCreate)
	if err != nil {
		return nil, err
	}

	var id uint
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.checkRefs(tx, values); err != nil {
			return err
		}

		var rec T
		if err := r.assign(ctx, &rec, values); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&rec).Error; err != nil {
			return r.translate(err, "create")
		}
		id = r.idOf(ctx, &rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, id)
}

// Update applies the present, allow-listed fields of input to an existing row.
func (r *Repository[T]) Update(ctx context.Context, id uint, input map[string]string) (*T, error) {
	values, err := r.def.Schema.Project(input, schema.ModeUpdate)
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec T
		if err := tx.First(&rec, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.NotFoundf("%s %d not found", r.entity(), id)
			}
			return err
		}

		if len(values) == 0 {
			return nil
		}
		if err := r.checkRefs(tx, values); err != nil {
			return err
		}
		if err := tx.Model(&rec).Omit(clause.Associations).Updates(map[string]any(values)).Error; err != nil {
			return r.translate(err, "update")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, id)
}

// Delete removes a row by id.
func (r *Repository[T]) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(new(T), id)
	if result.Error != nil {
		return fmt.Errorf("delete %s %d: %w", r.entity(), id, result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NotFoundf("%s %d not found", r.entity(), id)
	}
	return nil
}

// Values returns the allow-listed column values of rec keyed by column name.
func (r *Repository[T]) Values(ctx context.Context, rec *T) map[string]any {
	rv := reflect.ValueOf(rec).Elem()
	out := make(map[string]any, len(r.def.Schema.Fields))
	for _, f := range r.def.Schema.Fields {
		field := r.model.LookUpField(f.Name)
		if field == nil {
			continue
		}
		v, _ := field.ValueOf(ctx, rv)
		out[f.Name] = v
	}
	return out
}

// ID returns the primary key of rec.
func (r *Repository[T]) ID(ctx context.Context, rec *T) uint {
	return r.idOf(ctx, rec)
}

func (r *Repository[T]) idOf(ctx context.Context, rec *T) uint {
	pk := r.model.PrioritizedPrimaryField
	if pk == nil {
		return 0
	}
	v, _ := pk.ValueOf(ctx, reflect.ValueOf(rec).Elem())
	switch id := v.(type) {
	case uint:
		return id
	case uint64:
		return uint(id)
	case int64:
		return uint(id)
	case int:
		return uint(id)
	}
	return 0
}

func (r *Repository[T]) assign(ctx context.Context, rec *T, values schema.Values) error {
	rv := reflect.ValueOf(rec).Elem()
	for col, v := range values {
		field := r.model.LookUpField(col)
		if field == nil {
			return fmt.Errorf("%s has no column %q", r.model.Table, col)
		}
		if err := field.Set(ctx, rv, v); err != nil {
			return fmt.Errorf("assign %s.%s: %w", r.model.Table, col, err)
		}
	}
	return nil
}

func (r *Repository[T]) checkRefs(tx *gorm.DB, values schema.Values) error {
	problems := make(map[string]string)
	for _, f := range r.def.Schema.Refs() {
		v, ok := values[f.Name]
		if !ok || v == nil {
			continue
		}
		var count int64
		if err := tx.Table(f.Ref).Where("id = ?", v).Count(&count).Error; err != nil {
			return fmt.Errorf("check %s reference: %w", f.Name, err)
		}
		if count == 0 {
			problems[f.Name] = "does not exist"
		}
	}
	if len(problems) > 0 {
		return errors.ValidationWithDetails(fmt.Sprintf("invalid %s", r.entity()), problems)
	}
	return nil
}

const uniqueViolation = "UNIQUE constraint failed: "

// translate turns unique constraint failures into field validation errors.
func (r *Repository[T]) translate(err error, op string) error {
	msg := err.Error()
	if i := strings.Index(msg, uniqueViolation); i >= 0 || errors.Is(err, gorm.ErrDuplicatedKey) {
		field := "record"
		if i >= 0 {
			cols := strings.Split(msg[i+len(uniqueViolation):], ",")
			if parts := strings.SplitN(strings.TrimSpace(cols[0]), ".", 2); len(parts) == 2 {
				field = parts[1]
			}
		}
		return errors.ValidationWithDetails(fmt.Sprintf("invalid %s", r.entity()), map[string]string{field: "is already taken"})
	}
	return fmt.Errorf("%s %s: %w", op, r.entity(), err)
}

func orAll(p query.Predicate) query.Predicate {
	if p == nil {
		return query.All
	}
	return p
}
