package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/law-makers/guc/internal/cli"
)

func main() {
	// An interrupt cancels the running fetch; the browser is closed before exit
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx)
}
