package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/esxtool/esxtool/cmd"
	"github.com/esxtool/esxtool/internal/app"
	"github.com/esxtool/esxtool/internal/buildinfo"
	"github.com/esxtool/esxtool/internal/errors"
)

// exitInterrupted is the conventional exit status after SIGINT.
const exitInterrupted = 130

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(buildinfo.Default())
	rootCmd := cmd.RootCommand(a)

	err := rootCmd.ExecuteContext(ctx)
	if closeErr := a.Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "esxtool: %v\n", closeErr)
	}

	switch {
	case err == nil:
		return 0
	case errors.IsCategory(err, errors.CategoryCancellation):
		return exitInterrupted
	default:
		return 1
	}
}
