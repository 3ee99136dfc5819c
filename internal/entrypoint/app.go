package entrypoint

import (
	"fmt"
	"log"

	"github.com/mrlokans/librarian/internal/attachments"
	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	dbaudit "github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/database/images"
	"github.com/mrlokans/librarian/internal/library"
	"github.com/mrlokans/librarian/internal/storage"
)

// App holds the services shared by the server and the CLI commands.
type App struct {
	DB      *database.Database
	Catalog *library.Catalog
	Images  *attachments.Manager
	Sweeper *attachments.Sweeper
	Audit   *audit.Service
	Reports *audit.Reports
}

// NewApp opens the database and storage and assembles the catalog.
func NewApp(cfg *config.Config) (*App, error) {
	db, err := database.NewDatabase(cfg.Database.Path, database.Options{LogLevel: cfg.Database.LogLevel})
	if err != nil {
		return nil, err
	}

	blobs, err := storage.NewFileSystem(cfg.Storage.Dir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Printf("Image storage initialized at %s", cfg.Storage.Dir)

	imageRows := images.NewRepository(db.DB)

	return &App{
		DB: db,
		Catalog: library.NewCatalog(db.DB, library.Options{
			PageSize:     cfg.Listing.PageSize,
			HashPassword: auth.PasswordHasher(cfg.Session.BcryptCost),
		}),
		Images: attachments.NewManager(imageRows, blobs, attachments.Config{
			MaxUploadBytes: cfg.Storage.MaxUploadBytes,
			MaxPixels:      cfg.Storage.MaxImagePixels,
			PublicPath:     cfg.Storage.PublicPath,
		}),
		Sweeper: attachments.NewSweeper(imageRows, blobs, cfg.Sweep.GracePeriod),
		Audit:   audit.NewService(dbaudit.NewRepository(db.DB)),
		Reports: audit.NewReports(cfg.Audit.ReportDir),
	}, nil
}

// Close flushes pending audit events and closes the database.
func (a *App) Close() error {
	a.Audit.Wait()
	return a.DB.Close()
}
