// Package exporters writes a whole record collection as a CSV or XLSX file.
//
// Columns are the schema's exportable fields in declaration order, so an export
// can be imported back through the importers package unchanged.
package exporters

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mrlokans/librarian/internal/database/records"
	"github.com/mrlokans/librarian/internal/errors"
	"github.com/mrlokans/librarian/internal/metrics"
	"github.com/mrlokans/librarian/internal/parsers"
	"github.com/mrlokans/librarian/internal/query"
	"github.com/mrlokans/librarian/internal/schema"
)

// Store is the part of records.Repository an export reads from.
type Store[T any] interface {
	List(ctx context.Context, opts records.ListOptions) ([]T, int64, error)
	Values(ctx context.Context, rec *T) map[string]any
	Definition() records.Definition
	Table() string
}

// Result summarises a finished export.
type Result struct {
	Entity  string `json:"entity"`
	Format  string `json:"format"`
	Records int    `json:"records"`
}

type Exporter[T any] struct {
	store    Store[T]
	baseName string
}

// NewExporter creates an exporter whose files are named baseName plus the format
// extension, e.g. "booklist.csv".
func NewExporter[T any](store Store[T], baseName string) *Exporter[T] {
	if baseName == "" {
		baseName = store.Table()
	}
	return &Exporter[T]{store: store, baseName: baseName}
}

// Filename returns the download name for format.
func (e *Exporter[T]) Filename(format parsers.Format) string {
	return e.baseName + format.Ext()
}

// Export writes every record, oldest first, to w.
func (e *Exporter[T]) Export(ctx context.Context, w io.Writer, format parsers.Format) (*Result, error) {
	if format == "" {
		format = parsers.FormatCSV
	}
	if format != parsers.FormatCSV && format != parsers.FormatXLSX {
		return nil, errors.Formatf("cannot export as %s: expected csv or xlsx", format)
	}

	items, _, err := e.store.List(ctx, records.ListOptions{Order: query.ByID(e.store.Table())})
	if err != nil {
		return nil, fmt.Errorf("load %s for export: %w", e.store.Table(), err)
	}

	fields := e.store.Definition().Schema.ExportFields()
	table := make([][]string, 0, len(items)+1)
	header := make([]string, 0, len(fields))
	for _, f := range fields {
		header = append(header, f.Name)
	}
	table = append(table, header)

	for i := range items {
		values := e.store.Values(ctx, &items[i])
		row := make([]string, 0, len(fields))
		for _, f := range fields {
			row = append(row, schema.FormatValue(f.Kind, values[f.Name]))
		}
		table = append(table, row)
	}

	switch format {
	case parsers.FormatXLSX:
		err = writeXLSX(w, table)
	default:
		err = writeCSV(w, table)
	}
	if err != nil {
		return nil, fmt.Errorf("write %s export: %w", format, err)
	}

	entity := e.store.Definition().Schema.Entity
	metrics.Exports.WithLabelValues(entity, string(format)).Inc()
	return &Result{Entity: entity, Format: string(format), Records: len(items)}, nil
}

func writeCSV(w io.Writer, table [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(table); err != nil {
		return err
	}
	return cw.Error()
}

func writeXLSX(w io.Writer, table [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range table {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return f.Write(w)
}
