package importers

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/mrlokans/librarian/internal/database/records"
	"github.com/mrlokans/librarian/internal/errors"
	"github.com/mrlokans/librarian/internal/metrics"
	"github.com/mrlokans/librarian/internal/parsers"
	"github.com/mrlokans/librarian/internal/schema"
)

// Store is the part of records.Repository an import writes through.
type Store[T any] interface {
	Create(ctx context.Context, input map[string]string) (*T, error)
	Definition() records.Definition
}

// RowError describes one skipped row.
type RowError struct {
	Line    int               `json:"line"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Result contains the outcome of an import.
type Result struct {
	BatchID   string     `json:"batch_id"`
	Entity    string     `json:"entity"`
	Format    string     `json:"format"`
	TotalRows int        `json:"total_rows"`
	Imported  int        `json:"imported"`
	Skipped   int        `json:"skipped"`
	Errors    []RowError `json:"errors,omitempty"`
}

type Importer[T any] struct {
	store Store[T]
}

func NewImporter[T any](store Store[T]) *Importer[T] {
	return &Importer[T]{store: store}
}

// Entity returns the schema entity name this importer writes.
func (i *Importer[T]) Entity() string {
	return i.store.Definition().Schema.Entity
}

// Import reads a csv, xlsx or xls file and creates one record per data row.
func (i *Importer[T]) Import(ctx context.Context, r io.Reader, filename string) (*Result, error) {
	format, err := parsers.DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	rows, err := parsers.ReadRows(format, r)
	if err != nil {
		return nil, err
	}

	sch := i.store.Definition().Schema
	result := &Result{
		BatchID: uuid.NewString(),
		Entity:  sch.Entity,
		Format:  string(format),
		Errors:  []RowError{},
	}

	headerAt := -1
	for idx, row := range rows {
		if !parsers.IsBlank(row) {
			headerAt = idx
			break
		}
	}
	if headerAt < 0 {
		return result, nil
	}

	columns := mapHeader(sch, rows[headerAt])
	if len(columns) == 0 {
		return nil, errors.Formatf("no recognised columns in header: expected some of %s", strings.Join(sch.Columns(), ", "))
	}

	for idx := headerAt + 1; idx < len(rows); idx++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		row := rows[idx]
		if parsers.IsBlank(row) {
			continue
		}
		result.TotalRows++
		line := idx + 1

		input := rowInput(sch, columns, row, format.Spreadsheet())
		if _, err := i.store.Create(ctx, input); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, rowError(line, err))
			metrics.ImportRows.WithLabelValues(sch.Entity, "skipped").Inc()
			continue
		}
		result.Imported++
		metrics.ImportRows.WithLabelValues(sch.Entity, "imported").Inc()
	}

	log.Printf("[IMPORT] %s batch %s from %s: %d imported, %d skipped", sch.Entity, result.BatchID, format, result.Imported, result.Skipped)
	return result, nil
}

// mapHeader returns cell index → schema column for every recognised header cell.
// When a column appears twice the first occurrence wins.
func mapHeader(sch schema.Schema, header []string) map[int]string {
	columns := make(map[int]string)
	seen := make(map[string]bool)
	for idx, cell := range header {
		name := parsers.NormalizeHeader(cell)
		if _, ok := sch.Field(name); !ok || seen[name] {
			continue
		}
		seen[name] = true
		columns[idx] = name
	}
	return columns
}

func rowInput(sch schema.Schema, columns map[int]string, row []string, spreadsheet bool) map[string]string {
	input := make(map[string]string, len(columns))
	for idx, name := range columns {
		if idx >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[idx])
		if value == "" {
			continue
		}
		if f, _ := sch.Field(name); f.Kind == schema.KindDate && spreadsheet {
			value = excelDate(value)
		}
		input[name] = value
	}
	return input
}

// excelDate converts an unformatted Excel date serial such as "45292" into
// YYYY-MM-DD. Anything else is returned unchanged.
func excelDate(value string) string {
	if _, err := schema.ParseDate(value); err == nil {
		return value
	}
	serial, err := strconv.ParseFloat(value, 64)
	if err != nil || serial <= 0 {
		return value
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return value
	}
	return t.Format("2006-01-02")
}

func rowError(line int, err error) RowError {
	re := RowError{Line: line, Message: err.Error(), Fields: errors.FieldErrors(err)}
	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		re.Message = domainErr.Message
	}
	if len(re.Fields) > 0 {
		parts := make([]string, 0, len(re.Fields))
		for field, msg := range re.Fields {
			parts = append(parts, fmt.Sprintf("%s %s", field, msg))
		}
		sort.Strings(parts)
		re.Message = fmt.Sprintf("line %d: %s", line, strings.Join(parts, "; "))
	}
	return re
}
