// rexscan/cmd/rexscan/main.go

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rgehrsitz/rexscan/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, newRootCmd(&RealStoreFactory{}))
	stop()
	os.Exit(code)
}

// run executes cmd and logs a failure through the configured logger.
func run(ctx context.Context, cmd *cobra.Command) int {
	if err := cmd.ExecuteContext(ctx); err != nil {
		logging.LogError(logging.Logger, err)
		return 1
	}
	return 0
}
