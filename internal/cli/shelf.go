package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mrlokans/weread-sync/internal/config"
	"github.com/mrlokans/weread-sync/internal/credentials"
	"github.com/mrlokans/weread-sync/internal/entrypoint"
	"github.com/mrlokans/weread-sync/internal/weread"
)

// ShelfCommand lists the bookshelf, or prints raw responses for debugging.
type ShelfCommand struct {
	Raw         bool
	BestReviews string
	Count       int
	Timeout     time.Duration

	Out io.Writer
}

func NewShelfCommand() *ShelfCommand {
	return &ShelfCommand{Out: os.Stdout}
}

func (cmd *ShelfCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("shelf", flag.ExitOnError)

	fs.BoolVar(&cmd.Raw, "raw", false, "Print the raw notebook envelope as JSON")
	fs.StringVar(&cmd.BestReviews, "best-reviews", "", "Print popular public reviews of this book id as JSON")
	fs.IntVar(&cmd.Count, "count", 10, "Number of reviews for -best-reviews")
	fs.DurationVar(&cmd.Timeout, "timeout", 5*time.Minute, "Overall timeout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s shelf [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List the books on the WeRead shelf with their reading progress.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *ShelfCommand) Run() error {
	cfg := config.NewConfig()
	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	client, _, err := entrypoint.OpenClient(ctx, cfg, credentials.NewProvider(cfg))
	if err != nil {
		return err
	}

	switch {
	case cmd.BestReviews != "":
		reviews, err := client.BestReviews(ctx, cmd.BestReviews, cmd.Count, 0, 0)
		if err != nil {
			return err
		}
		return cmd.printJSON(reviews)
	case cmd.Raw:
		envelope, err := client.Bookshelf(ctx)
		if err != nil {
			return err
		}
		return cmd.printJSON(envelope)
	}

	shelf, err := client.ShelfSync(ctx)
	if err != nil {
		return err
	}
	printShelf(cmd.Out, shelf)
	return nil
}

func (cmd *ShelfCommand) printJSON(v any) error {
	enc := json.NewEncoder(cmd.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printShelf(w io.Writer, shelf *weread.Shelf) {
	progress := make(map[string]int, len(shelf.BookProgress))
	for _, p := range shelf.BookProgress {
		progress[p.BookID] = p.Progress
	}
	for _, b := range shelf.Books {
		fmt.Fprintf(w, "%s\t%3d%%\t%s\t%s\n", b.BookID, progress[b.BookID], b.Title, b.Author)
	}
	fmt.Fprintf(w, "%d books\n", len(shelf.Books))
}
