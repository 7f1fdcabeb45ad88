// Command hilirisasi answers dashboard queries from the command line.
package main

import (
	"context"
	"os"
	"os/signal"

	"hilirisasi/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
