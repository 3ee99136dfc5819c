package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/entrypoint"
	"github.com/mrlokans/librarian/internal/library"
)

// openApp applies the database flag on top of the environment configuration.
func openApp(cfg *config.Config, dbPath string) (*entrypoint.App, error) {
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	cfg.Database.LogLevel = "silent"
	return entrypoint.NewApp(cfg)
}

func transferFor(app *entrypoint.App, resource string) (library.Transfer, error) {
	t, ok := app.Catalog.Transfer(resource)
	if !ok {
		return nil, fmt.Errorf("unknown resource %q (one of: %s)", resource, strings.Join(app.Catalog.Resources(), ", "))
	}
	return t, nil
}

func resourceNames() string {
	return strings.Join([]string{
		library.ResourceBooks,
		library.ResourceAuthors,
		library.ResourceCategories,
		library.ResourceShelves,
		library.ResourceUsers,
		library.ResourceBorrowings,
		library.ResourceReturnings,
	}, ", ")
}

func usageHeader(command, summary string) {
	fmt.Fprintf(os.Stderr, "Usage: %s %s [options]\n\n", os.Args[0], command)
	fmt.Fprintf(os.Stderr, "%s\n\n", summary)
	fmt.Fprintf(os.Stderr, "Options:\n")
}
