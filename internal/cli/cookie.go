package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mrlokans/weread-sync/internal/config"
	"github.com/mrlokans/weread-sync/internal/cookiecloud"
	"github.com/mrlokans/weread-sync/internal/credentials"
	"github.com/mrlokans/weread-sync/internal/weread"
)

// CookieCommand shows which credential a sync would use without calling WeRead.
type CookieCommand struct {
	Domain  string
	Reveal  bool
	Timeout time.Duration

	Out io.Writer
}

func NewCookieCommand() *CookieCommand {
	return &CookieCommand{Out: os.Stdout}
}

func (cmd *CookieCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("cookie", flag.ExitOnError)

	fs.StringVar(&cmd.Domain, "domain", weread.Domain, "Domain to resolve in the CookieCloud payload")
	fs.BoolVar(&cmd.Reveal, "reveal", false, "Print the full cookie header instead of a masked one")
	fs.DurationVar(&cmd.Timeout, "timeout", 30*time.Second, "How long to wait for the relay")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s cookie [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Resolve the WeRead cookie from WEREAD_COOKIE or CookieCloud and print it masked.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *CookieCommand) Run() error {
	cfg := config.NewConfig()
	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	if cfg.WeRead.Cookie == "" && cfg.CookieCloud.HasCookieCloud() {
		return cmd.resolveFromRelay(ctx, cfg)
	}

	credential, source, err := credentials.NewProvider(cfg).Credential(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Out, "Source: %s\n", source)
	cmd.printHeader(string(credential))
	return nil
}

// resolveFromRelay also reports which payload key matched and how.
func (cmd *CookieCommand) resolveFromRelay(ctx context.Context, cfg *config.Config) error {
	client, err := cookiecloud.NewClient(cookiecloud.Options{
		BaseURL:  cfg.CookieCloud.URL,
		UUID:     cfg.CookieCloud.UUID,
		Password: cfg.CookieCloud.Password,
	})
	if err != nil {
		return err
	}

	payload, err := client.Fetch(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Out, "Source: %s\n", credentials.SourceCookieCloud)
	fmt.Fprintf(cmd.Out, "Payload keys: %d\n", payload.Len())

	header, match, err := cookiecloud.CookieHeader(payload, cmd.Domain, credentials.Aliases...)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Out, "Matched key: %s (%s, %d cookies)\n", match.Key, match.Strategy, len(match.Entries))
	cmd.printHeader(header)
	return nil
}

func (cmd *CookieCommand) printHeader(header string) {
	if cmd.Reveal {
		fmt.Fprintf(cmd.Out, "Cookie: %s\n", header)
		return
	}
	fmt.Fprintf(cmd.Out, "Cookie: %s\n", credentials.MaskCredential(header))
}
