// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, role seeding
//	├── records/         # Generic allow-listed CRUD for every catalog table
//	├── images/          # Polymorphic image rows, one per owner
//	└── audit/           # Audit log
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./librarian.db")
//
//	books := records.NewRepository[entities.Book](db.DB, library.BookDefinition())
//	book, err := books.Get(ctx, 123)
//
//	imgs := images.NewRepository(db.DB)
//	img, previous, err := imgs.Upsert(ctx, book.OwnerRef(), "abc_cover.jpg", hash)
//
// # Adding a New Table
//
//  1. Add the entity to internal/entities with an explicit TableName
//  2. Register it in Models so AutoMigrate picks it up
//  3. Describe its writable fields with a schema.Schema
//  4. Build a records.Repository for it in internal/library
package database
