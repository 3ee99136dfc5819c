// Package listing answers "list records" requests: search, newest-first order,
// eager-loaded relations and fixed-size pages.
package listing

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/mrlokans/librarian/internal/database/records"
	"github.com/mrlokans/librarian/internal/query"
)

const (
	DefaultPageSize = 5

	// Query parameter names preserved across page links.
	SearchParam = "search_query"
	PageParam   = "page"
)

// Store is the part of records.Repository the listing service needs.
type Store[T any] interface {
	List(ctx context.Context, opts records.ListOptions) ([]T, int64, error)
	Definition() records.Definition
	Table() string
}

// Request is one listing request.
type Request struct {
	Search string
	Page   int
	// Scopes are fixed filters applied in addition to the search, e.g. "role is member".
	Scopes []query.Predicate
}

// Page is one slice of a listing plus what is needed to link to its neighbours.
type Page[T any] struct {
	Items      []T    `json:"data"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
	HasNext    bool   `json:"has_next"`
	HasPrev    bool   `json:"has_prev"`
	Search     string `json:"search_query,omitempty"`
}

// Offset is the index of the first item on this page within the full result.
func (p Page[T]) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Query returns the query string for page n, preserving the search term.
func (p Page[T]) Query(n int) string {
	v := url.Values{}
	if p.Search != "" {
		v.Set(SearchParam, p.Search)
	}
	v.Set(PageParam, strconv.Itoa(n))
	return v.Encode()
}

// NextQuery returns the next page's query string, or "" on the last page.
func (p Page[T]) NextQuery() string {
	if !p.HasNext {
		return ""
	}
	return p.Query(p.Page + 1)
}

// PrevQuery returns the previous page's query string, or "" on the first page.
func (p Page[T]) PrevQuery() string {
	if !p.HasPrev {
		return ""
	}
	return p.Query(p.Page - 1)
}

type Service[T any] struct {
	store    Store[T]
	pageSize int
}

// NewService creates a listing service. A pageSize below 1 uses DefaultPageSize.
func NewService[T any](store Store[T], pageSize int) *Service[T] {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Service[T]{store: store, pageSize: pageSize}
}

func (s *Service[T]) PageSize() int {
	return s.pageSize
}

// ListPage returns page req.Page of the records matching req.Search, newest first.
// Pages below 1 are treated as page 1. A page past the end is returned empty.
// Pages are capped so the row offset cannot overflow.
func (s *Service[T]) ListPage(ctx context.Context, req Request) (Page[T], error) {
	page := min(max(req.Page, 1), math.MaxInt/s.pageSize)
	search := strings.TrimSpace(req.Search)

	def := s.store.Definition()
	filter := query.And(append([]query.Predicate{query.Build(search, def.Search)}, req.Scopes...)...)

	items, total, err := s.store.List(ctx, records.ListOptions{
		Filter: filter,
		Order:  query.NewestFirst(s.store.Table()),
		Offset: (page - 1) * s.pageSize,
		Limit:  s.pageSize,
	})
	if err != nil {
		return Page[T]{}, err
	}

	totalPages := int((total + int64(s.pageSize) - 1) / int64(s.pageSize))

	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   s.pageSize,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
		Search:     search,
	}, nil
}

// ParsePage reads a page number, falling back to 1 for anything unusable.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
