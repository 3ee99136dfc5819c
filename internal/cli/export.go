package cli

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/parsers"
)

// ExportCommand writes one catalog resource to a spreadsheet.
type ExportCommand struct {
	Resource     string
	Format       string
	OutputDir    string
	DatabasePath string

	cfg *config.Config
	out io.Writer
}

func NewExportCommand(cfg *config.Config) *ExportCommand {
	return &ExportCommand{cfg: cfg, out: os.Stdout}
}

func (cmd *ExportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)

	fs.StringVar(&cmd.Resource, "resource", "", "Resource to export: "+resourceNames()+" (required)")
	fs.StringVar(&cmd.Format, "format", string(parsers.FormatCSV), "Output format: csv or xlsx")
	fs.StringVar(&cmd.OutputDir, "output", ".", "Directory the export file is written to")
	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the database file (default: DATABASE_PATH)")

	fs.Usage = func() {
		usageHeader("export", "Export every record of a resource, e.g. books to booklist.csv.")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s export -resource books\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s export -resource shelves -format xlsx -output ./exports\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Resource == "" {
		fs.Usage()
		return fmt.Errorf("resource is required")
	}

	return nil
}

// Run writes the export and returns the path of the written file.
func (cmd *ExportCommand) Run() (string, error) {
	format, err := parsers.ParseFormat(cmd.Format)
	if err != nil {
		return "", err
	}

	app, err := openApp(cmd.cfg, cmd.DatabasePath)
	if err != nil {
		return "", err
	}
	defer app.Close()

	t, err := transferFor(app, cmd.Resource)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	result, err := t.Export(context.Background(), &buf, format)
	if err != nil {
		app.Audit.LogExport(cmd.Resource, string(format), 0, "cli", err)
		return "", err
	}

	if err := os.MkdirAll(cmd.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(cmd.OutputDir, t.Filename(format))
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	app.Audit.LogExport(cmd.Resource, result.Format, result.Records, "cli", nil)

	fmt.Fprintf(cmd.out, "Exported %d %s to %s\n", result.Records, cmd.Resource, path)
	return path, nil
}
