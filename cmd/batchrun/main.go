package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rshade/batchrun/internal/cli"
	"github.com/rshade/batchrun/pkg/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(version.GetVersion())
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return extractExitCode(err)
}

// extractExitCode maps a command error to a process exit code. RunExitError
// carries its own code; any other error exits 1.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}
	var runErr *cli.RunExitError
	if errors.As(err, &runErr) {
		return runErr.ExitCode
	}
	return 1
}
