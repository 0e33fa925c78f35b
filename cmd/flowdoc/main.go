// Command flowdoc converts a capture of HTTP flows into Markdown
// documentation.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/usestring/flowdoc/internal/cli"
)

// Set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	code := cli.Execute(ctx, cli.NewRootCommand(), os.Args[1:])
	cancel()
	os.Exit(code)
}
