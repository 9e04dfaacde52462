package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		// Ctrl-C during `logs --follow` or `start` is a normal exit.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "docflow:", err)
		}
		os.Exit(1)
	}
}
