package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/tasks"
)

// SweepImagesCommand removes stored images that no record points at.
type SweepImagesCommand struct {
	DatabasePath string
	StorageDir   string

	cfg *config.Config
	out io.Writer
}

func NewSweepImagesCommand(cfg *config.Config) *SweepImagesCommand {
	return &SweepImagesCommand{cfg: cfg, out: os.Stdout}
}

func (cmd *SweepImagesCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sweep-images", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the database file (default: DATABASE_PATH)")
	fs.StringVar(&cmd.StorageDir, "storage", "", "Image storage directory (default: STORAGE_DIR)")

	fs.Usage = func() {
		usageHeader("sweep-images", "Delete image files older than SWEEP_GRACE_PERIOD that no record references.")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *SweepImagesCommand) Run() error {
	if cmd.StorageDir != "" {
		cmd.cfg.Storage.Dir = cmd.StorageDir
	}
	app, err := openApp(cmd.cfg, cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := tasks.RunSweep(context.Background(), app.Sweeper, app.Audit, "cli")
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.out, "Scanned %d files: %d orphaned, %d removed, %d failed\n",
		result.Scanned, result.Orphaned, result.Removed, result.Failed)
	return nil
}
