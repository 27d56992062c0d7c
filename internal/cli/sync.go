package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mrlokans/weread-sync/internal/config"
	"github.com/mrlokans/weread-sync/internal/entrypoint"
	"github.com/mrlokans/weread-sync/internal/services"
	"github.com/mrlokans/weread-sync/internal/settingsstore"
)

// SyncCommand runs one WeRead sync from the command line.
type SyncCommand struct {
	DatabasePath string
	OutputDir    string
	AuditDir     string
	BookIDs      string
	Limit        int
	SkipProgress bool

	Out io.Writer
}

// NewSyncCommand creates a new SyncCommand
func NewSyncCommand() *SyncCommand {
	return &SyncCommand{Out: os.Stdout}
}

// ParseFlags parses command line flags
func (cmd *SyncCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the database file (default: DATABASE_PATH)")
	fs.StringVar(&cmd.OutputDir, "output", "", "Markdown output directory (default: OUTPUT_DIR, empty disables markdown)")
	fs.StringVar(&cmd.AuditDir, "dump", "", "Keep raw per-book snapshots in this directory (default: AUDIT_DIR)")
	fs.StringVar(&cmd.BookIDs, "books", "", "Comma separated WeRead book ids to sync (default: WEREAD_BOOK_IDS, or all)")
	fs.IntVar(&cmd.Limit, "limit", 0, "Sync at most this many books, 0 means all")
	fs.BoolVar(&cmd.SkipProgress, "skip-progress", false, "Do not fetch reading progress")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Pull notebooks, highlights, reviews and reading progress from WeRead.\n\n")
		fmt.Fprintf(os.Stderr, "The cookie comes from WEREAD_COOKIE, or from CookieCloud (CC_URL, CC_ID, CC_PASSWORD).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s sync\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s sync -output ~/Obsidian/WeRead\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s sync -books 695233,3300064831 -dump ./audit\n", os.Args[0])
	}

	return fs.Parse(args)
}

// apply overlays the flags on the environment configuration.
func (cmd *SyncCommand) apply(cfg *config.Config) services.SyncOptions {
	if cmd.DatabasePath != "" {
		cfg.Database.Path = cmd.DatabasePath
	}
	if cmd.OutputDir != "" {
		cfg.Markdown.OutputDir = cmd.OutputDir
	}
	if cmd.AuditDir != "" {
		cfg.Audit.Dir = cmd.AuditDir
	}
	if ids := splitIDs(cmd.BookIDs); len(ids) > 0 {
		cfg.WeRead.BookIDs = ids
	}
	if cmd.SkipProgress {
		cfg.WeRead.SkipProgress = true
	}

	opts := entrypoint.SyncOptions(cfg)
	opts.Limit = cmd.Limit
	return opts
}

// Run executes the sync command
func (cmd *SyncCommand) Run() error {
	cfg := config.NewConfig()
	opts := cmd.apply(cfg)

	fmt.Fprintln(cmd.Out, "📚 WeRead Sync")
	fmt.Fprintln(cmd.Out, "==============")
	fmt.Fprintf(cmd.Out, "📁 Database: %s\n", cfg.Database.Path)
	if cfg.Markdown.OutputDir != "" {
		fmt.Fprintf(cmd.Out, "📁 Output: %s\n", cfg.Markdown.OutputDir)
	}

	stack, err := entrypoint.NewSyncStack(cfg)
	if err != nil {
		return err
	}
	defer stack.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := stack.Service.Sync(ctx, opts)
	status := settingsstore.StatusSuccess
	if err != nil {
		status = settingsstore.StatusFailed
	} else if len(result.Failures) > 0 {
		status = settingsstore.StatusPartial
	}
	store := settingsstore.New(stack.Database)
	_ = store.SetWeReadSyncStatus(status, summary(result, err), len(result.Snapshots))
	if result.Source != "" {
		_ = store.SetCredentialSource(result.Source)
	}

	printResult(cmd.Out, result)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Fprintln(cmd.Out, "\n✅ Sync complete!")
	return nil
}

func summary(result services.SyncResult, err error) string {
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("Synced %d books with %d highlights, %d books failed",
		len(result.Snapshots), result.Export.HighlightsProcessed, len(result.Failures))
}

func printResult(w io.Writer, result services.SyncResult) {
	if result.RunID != "" {
		fmt.Fprintf(w, "\n🆔 Run: %s\n", result.RunID)
	}
	if result.Source != "" {
		fmt.Fprintf(w, "🔑 Credential: %s\n", result.Source)
	}
	fmt.Fprintf(w, "📖 Books fetched: %d\n", len(result.Snapshots))
	fmt.Fprintf(w, "📝 Highlights saved: %d\n", result.Export.HighlightsProcessed)
	if len(result.Failures) > 0 {
		fmt.Fprintf(w, "⚠️  %d books failed:\n", len(result.Failures))
		for _, f := range result.Failures {
			fmt.Fprintf(w, "   - %s (%s): %v\n", f.Title, f.BookID, f.Err)
		}
	}
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
