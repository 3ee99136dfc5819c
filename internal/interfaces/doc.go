// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Record Store
//
//   - records.Repository[T]: allow-listed CRUD over one table (internal/database/records)
//   - listing.Store, importers.Store, exporters.Store: the slices of it each service needs
//   - library.Transfer: type-erased import and export for a catalog resource
//
// ## Attachments
//
//   - attachments.ImageStore: image rows keyed by owner (internal/database/images)
//   - storage.BlobStore: image file bytes (internal/storage)
//   - entities.Owner: records that may carry one image
//
// ## Background Work
//
//   - tasks.OrphanSweeper, tasks.SweepReporter, tasks.AuditEventCleaner
//   - scheduler.Enqueuer, http.TaskQueue: satisfied by tasks.Client
//
// # Adding a New Catalog Resource
//
//  1. Add the GORM model to internal/entities and to database.Models.
//
//  2. Describe its writable fields and search in internal/library/definitions.go:
//
//     func ReviewDefinition() records.Definition {
//         return records.Definition{
//             Schema: schema.Schema{Entity: "review", Fields: []schema.Field{
//                 {Name: "body", Kind: schema.KindString, Required: true},
//                 {Name: "book_id", Kind: schema.KindRef, Required: true, Ref: "books"},
//             }},
//             Search: query.SearchSpec{Table: "reviews", Fields: []string{"body"}},
//         }
//     }
//
//  3. Add a Resource to library.Catalog. Routes, import and export follow.
//
//  4. To accept an image, implement entities.Owner on the model.
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go.
package interfaces
