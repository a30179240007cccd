// Command tellyspelly records speech and copies the transcript to the clipboard.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbright/tellyspelly/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
}
