package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/weread-sync/internal/cli"
	"github.com/mrlokans/weread-sync/internal/config"
	"github.com/mrlokans/weread-sync/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "sync":
		cmd = cli.NewSyncCommand()
	case "cookie":
		cmd = cli.NewCookieCommand()
	case "reader-url":
		cmd = cli.NewReaderURLCommand()
	case "replay":
		cmd = cli.NewReplayCommand()
	case "shelf":
		cmd = cli.NewShelfCommand()

	case "version":
		fmt.Printf("weread-sync %s (%s)\n", Version, Commit)
		return

	case "-h", "--help", "help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve        Start the HTTP server and scheduled sync (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  sync         Run one WeRead sync now\n")
	fmt.Fprintf(os.Stderr, "  cookie       Show which WeRead cookie would be used, masked\n")
	fmt.Fprintf(os.Stderr, "  reader-url   Print the web reader link of book ids\n")
	fmt.Fprintf(os.Stderr, "  replay       Import snapshots kept by an earlier sync\n")
	fmt.Fprintf(os.Stderr, "  shelf        List the WeRead bookshelf\n")
	fmt.Fprintf(os.Stderr, "  version      Print version information\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
