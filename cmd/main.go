package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/studysync-backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if len(os.Args) > 1 && os.Args[1] == "seed" {
		if err := a.Seed(ctx); err != nil {
			a.Log.Error("Seed failed", "error", err)
			os.Exit(1)
		}
		a.Log.Info("Seed complete")
		return
	}

	if err := a.Run(ctx); err != nil {
		a.Log.Error("Server stopped", "error", err)
		os.Exit(1)
	}
	a.Log.Info("Server stopped")
}
