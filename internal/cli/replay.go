package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/weread-sync/internal/config"
	"github.com/mrlokans/weread-sync/internal/database"
	"github.com/mrlokans/weread-sync/internal/exporters"
	"github.com/mrlokans/weread-sync/internal/importers"
)

// ReplayCommand imports snapshots kept by an earlier sync without calling WeRead.
type ReplayCommand struct {
	Input        string
	DatabasePath string
	OutputDir    string

	Out io.Writer
}

func NewReplayCommand() *ReplayCommand {
	return &ReplayCommand{Out: os.Stdout}
}

func (cmd *ReplayCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)

	fs.StringVar(&cmd.Input, "input", "", "Snapshot file, or a run directory of snapshot files (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.StringVar(&cmd.OutputDir, "output", "", "Markdown output directory, empty disables markdown")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s replay [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import the raw snapshots a sync kept in AUDIT_DIR/<run id>/.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s replay -input ./audit/0b5c.../ -output ./markdown\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Input == "" {
		fs.Usage()
		return fmt.Errorf("input is required")
	}
	return nil
}

func (cmd *ReplayCommand) Run() error {
	snapshots, err := importers.LoadSnapshots(cmd.Input)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Out, "📦 Loaded %d snapshots from %s\n", len(snapshots), cmd.Input)

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	pipeline := importers.NewPipeline(exporters.NewDatabaseMarkdownExporter(db, cmd.OutputDir))
	result, err := pipeline.ImportSnapshots(snapshots)
	if err != nil {
		return fmt.Errorf("failed to import snapshots: %w", err)
	}

	fmt.Fprintf(cmd.Out, "✅ Imported %d books with %d highlights (%d books failed)\n",
		result.BooksProcessed, result.HighlightsProcessed, result.BooksFailed)
	return nil
}
