package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/weread-sync/internal/weread"
)

// ReaderURLCommand prints the web reader link of WeRead book ids.
type ReaderURLCommand struct {
	BookIDs []string
	KeyOnly bool

	Out io.Writer
}

func NewReaderURLCommand() *ReaderURLCommand {
	return &ReaderURLCommand{Out: os.Stdout}
}

func (cmd *ReaderURLCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("reader-url", flag.ExitOnError)
	fs.BoolVar(&cmd.KeyOnly, "key", false, "Print only the internal book key")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s reader-url [options] <bookId>...\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Print the weread.qq.com reader link of each book id.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd.BookIDs = fs.Args()
	if len(cmd.BookIDs) == 0 {
		fs.Usage()
		return fmt.Errorf("at least one book id is required")
	}
	return nil
}

func (cmd *ReaderURLCommand) Run() error {
	for _, id := range cmd.BookIDs {
		if cmd.KeyOnly {
			fmt.Fprintln(cmd.Out, weread.ToInternalKey(id))
			continue
		}
		fmt.Fprintf(cmd.Out, "%s\t%s\n", id, weread.ReaderURL(id))
	}
	return nil
}
