// cmd/dealcrawl/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/law-makers/dealcrawl/internal/cli"
	"github.com/rs/zerolog/log"
)

func main() {
	// Cancel the running loop on interrupt so it can report and close the browser
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		if ctx.Err() == context.Canceled {
			log.Warn().Msg("Interrupt received, shutting down gracefully...")
		}
	}()

	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
