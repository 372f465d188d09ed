package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ChipperFluff/McSquirrel/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mcsquirrel:", err)
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
