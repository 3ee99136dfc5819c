// Package importers loads tabular files into a record store.
//
// # Flow
//
//	file (csv/xlsx/xls) → parsers.ReadRows → header mapping → Store.Create per row → Result
//
// The format is chosen from the filename extension before anything is read, so an
// unsupported file never touches the store. The first non-blank row is the header;
// headers are matched case-insensitively against the schema's columns and unknown
// columns are ignored.
//
// Rows that fail validation are skipped and reported in Result.Errors with their
// 1-based line number. The batch only stops early when the context is cancelled.
//
// # Example Usage
//
//	importer := importers.NewImporter[entities.Book](books)
//	result, err := importer.Import(ctx, file, "books.xlsx")
//	// result.Imported, result.Skipped, result.Errors
package importers
