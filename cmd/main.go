package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"foresight.thundra.io/cli/internal/interfaces/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, cli.NewCLIContainer()); err != nil {
		stop()
		os.Exit(1)
	}
}
