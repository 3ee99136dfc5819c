package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/importers"
)

// ImportCommand loads a spreadsheet into one catalog resource.
type ImportCommand struct {
	Resource     string
	File         string
	DatabasePath string
	Verbose      bool

	cfg *config.Config
	out io.Writer
}

func NewImportCommand(cfg *config.Config) *ImportCommand {
	return &ImportCommand{cfg: cfg, out: os.Stdout}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	fs.StringVar(&cmd.Resource, "resource", "", "Resource to import into: "+resourceNames()+" (required)")
	fs.StringVar(&cmd.File, "file", "", "Path to a .csv, .xls or .xlsx file (required)")
	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the database file (default: DATABASE_PATH)")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Print every skipped row")

	fs.Usage = func() {
		usageHeader("import", "Import records from a spreadsheet. Invalid rows are skipped and reported.")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import -resource books -file ./booklist.xlsx\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import -resource authors -file ./authors.csv -verbose\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Resource == "" || cmd.File == "" {
		fs.Usage()
		return fmt.Errorf("resource and file are required")
	}

	return nil
}

func (cmd *ImportCommand) Run() error {
	f, err := os.Open(cmd.File)
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	app, err := openApp(cmd.cfg, cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer app.Close()

	t, err := transferFor(app, cmd.Resource)
	if err != nil {
		return err
	}

	result, err := t.Import(context.Background(), f, filepath.Base(cmd.File))
	if err != nil {
		app.Audit.LogImport(cmd.Resource, batchID(result), 0, 0, "cli", err)
		return err
	}
	app.Audit.LogImport(cmd.Resource, result.BatchID, result.Imported, result.Skipped, "cli", nil)

	fmt.Fprintf(cmd.out, "Stored %s successfully: %d imported, %d skipped (batch %s)\n",
		cmd.Resource, result.Imported, result.Skipped, result.BatchID)

	if result.Skipped == 0 {
		return nil
	}
	if cmd.Verbose {
		for _, rowErr := range result.Errors {
			fmt.Fprintf(cmd.out, "  line %d: %s\n", rowErr.Line, rowErr.Message)
		}
	}
	report, err := app.Reports.Save(result.BatchID, result)
	if err != nil {
		return fmt.Errorf("failed to save import report: %w", err)
	}
	fmt.Fprintf(cmd.out, "Report: %s\n", filepath.Join(app.Reports.Dir, report))
	return nil
}

func batchID(r *importers.Result) string {
	if r == nil {
		return ""
	}
	return r.BatchID
}
