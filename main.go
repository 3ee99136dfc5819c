package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/librarian/internal/cli"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "import":
		cmd := cli.NewImportCommand(config.NewConfig())
		exitOnError(cmd.ParseFlags(args))
		exitOnError(cmd.Run())

	case "export":
		cmd := cli.NewExportCommand(config.NewConfig())
		exitOnError(cmd.ParseFlags(args))
		_, err := cmd.Run()
		exitOnError(err)

	case "sweep-images":
		cmd := cli.NewSweepImagesCommand(config.NewConfig())
		exitOnError(cmd.ParseFlags(args))
		exitOnError(cmd.Run())

	case "generate-secret":
		exitOnError(cli.NewGenerateSecretCommand().Run())

	case "version", "--version", "-v":
		fmt.Printf("librarian %s (commit: %s)\n", Version, Commit)

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve            Start the HTTP server (default)\n")
	fmt.Fprintf(os.Stderr, "  import           Import records from a csv, xls or xlsx file\n")
	fmt.Fprintf(os.Stderr, "  export           Export a resource to csv or xlsx\n")
	fmt.Fprintf(os.Stderr, "  sweep-images     Remove image files no record references\n")
	fmt.Fprintf(os.Stderr, "  generate-secret  Print a random value for CSRF_SECRET\n")
	fmt.Fprintf(os.Stderr, "  version          Print version information\n")
	fmt.Fprintf(os.Stderr, "  help             Show this help\n\n")
	fmt.Fprintf(os.Stderr, "Run '%s <command> -h' for command options.\n", os.Args[0])
}
