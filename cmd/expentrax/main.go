package main

import (
	"context"
	"fmt"
	"os"
	_ "time/tzdata"

	"expentrax/internal/backend"
	"expentrax/internal/cli"
	"expentrax/internal/config"
	"expentrax/internal/log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "expentrax",
	Short:         "Ledger summaries, budgets and recurring transactions",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(periodsCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(tickCmd())
	rootCmd.AddCommand(budgetCmd())
	rootCmd.AddCommand(recurringCmd())
	rootCmd.AddCommand(eventsCmd())
}

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp bootstraps configuration and logging, builds the backend and
// hands it to fn. Resources are closed when fn returns.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, app *backend.App) error) error {
	cfg, logger, err := cli.Bootstrap(log.ComponentCLI)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	app, err := backend.NewFactory(logger.Logger).Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			logger.Error("Failed to close resources", "error", closeErr)
		}
	}()

	return fn(ctx, cfg, app)
}
