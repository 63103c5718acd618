package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"expentrax/internal/backend"
	"expentrax/internal/cli"
	"expentrax/internal/config"
	"expentrax/internal/core"
	"expentrax/internal/log"
	"expentrax/internal/period"
	"expentrax/internal/services"
	"expentrax/internal/storage"
	"expentrax/internal/worker"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the SQLite ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := cli.Bootstrap(log.ComponentCLI)
			if err != nil {
				return err
			}
			if cfg.DataBackend != string(backend.SQLiteBackend) {
				return fmt.Errorf("migrate requires the sqlite backend, got %q", cfg.DataBackend)
			}
			if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
				return err
			}
			version, dirty, err := storage.SchemaVersion(cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t) at %s\n", version, dirty, cfg.SQLiteDBPath)
			return nil
		},
	}
}

func periodsCmd() *cobra.Command {
	var owner int64
	cmd := &cobra.Command{
		Use:   "periods <week|month|year>",
		Short: "List the periods that contain transactions, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, _ *config.Config, app *backend.App) error {
				ids, err := app.Summaries.DistinctPeriods(ctx, owner, args[0])
				if err != nil {
					return err
				}
				if len(ids) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no transactions")
					return nil
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&owner, "owner", 0, "owner id")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func summaryCmd() *cobra.Command {
	var owner int64
	var totalsOnly bool
	cmd := &cobra.Command{
		Use:   "summary <week|month|year> <period-id>",
		Short: "Summarize one period of an owner's ledger",
		Example: `  expentrax summary month 2025-07 --owner 42
  expentrax summary week 2025-W01 --owner 42 --totals`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, _ *config.Config, app *backend.App) error {
				out := cmd.OutOrStdout()
				if totalsOnly {
					totals, err := app.Summaries.PeriodTotal(ctx, owner, args[0], args[1])
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "income %s\nexpense %s\nbalance %s\n", totals.Income, totals.Expense, totals.Balance())
					return nil
				}
				sum, err := app.Summaries.Summarize(ctx, owner, args[0], args[1])
				if err != nil {
					return err
				}
				return printSummary(out, sum)
			})
		},
	}
	cmd.Flags().Int64Var(&owner, "owner", 0, "owner id")
	cmd.Flags().BoolVar(&totalsOnly, "totals", false, "print income and expense totals only")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func printSummary(out io.Writer, sum core.Summary) error {
	fmt.Fprintf(out, "%s %s (%s to %s)\n", sum.Granularity, sum.Period,
		sum.Start.Format(time.DateOnly), sum.End.Add(-time.Nanosecond).Format(time.DateOnly))
	if sum.IsEmpty() {
		fmt.Fprintln(out, "no transactions")
		return nil
	}
	fmt.Fprintf(out, "income %s  expense %s  balance %s\n\n", sum.TotalIncome, sum.TotalExpense, sum.Balance())

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tAMOUNT\tSHARE")
	for _, c := range sum.Categories {
		fmt.Fprintf(w, "%s\t%s\t%s%%\n", c.Name, c.Amount, c.Amount.PercentOf(sum.TotalExpense).StringFixed(1))
	}
	return w.Flush()
}

func tickCmd() *cobra.Command {
	var job, at string
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run the daily jobs once, immediately",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, cfg *config.Config, app *backend.App) error {
				now := time.Now().UTC()
				if at != "" {
					d, err := core.ParseDate(at)
					if err != nil {
						return fmt.Errorf("invalid --at %q: %w", at, err)
					}
					now = d.Time
				}

				scheduler, err := app.Scheduler(cfg)
				if err != nil {
					return err
				}
				if job != "" {
					scheduler = filterJobs(app.Jobs(cfg), job)
					if scheduler == nil {
						return fmt.Errorf("unknown job %q", job)
					}
				}

				if failed := scheduler.RunOnce(ctx, now); failed > 0 {
					return fmt.Errorf("%d job(s) failed, see log", failed)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ran %s at %s\n", strings.Join(scheduler.Jobs(), ", "), now.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&job, "job", "", "run a single job (recurring, budget_prompt, summary_notify)")
	cmd.Flags().StringVar(&at, "at", "", "evaluate as of this UTC date (YYYY-MM-DD)")
	return cmd
}

// filterJobs returns a scheduler holding only the named job, or nil.
func filterJobs(jobs []services.Job, name string) *services.Scheduler {
	for _, j := range jobs {
		if j.Name() == name {
			return services.NewScheduler(services.SchedulerOptions{}, j)
		}
	}
	return nil
}

func budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Inspect and set monthly budgets",
	}
	cmd.AddCommand(budgetStatusCmd(), budgetSetCmd())
	return cmd
}

func budgetStatusCmd() *cobra.Command {
	var owner int64
	cmd := &cobra.Command{
		Use:   "status [YYYY-MM]",
		Short: "Compare a month's budgets with actual spend",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			monthID, err := monthArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, _ *config.Config, app *backend.App) error {
				status, err := app.Budgets.Status(ctx, owner, monthID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(status.Lines) == 0 {
					fmt.Fprintf(out, "no budgets for %s\n", monthID)
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "CATEGORY\tBUDGET\tSPENT\tREMAINING\tUSED")
				for _, l := range status.Lines {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s%%\n", l.Name, l.Budgeted, l.Spent, l.Remaining(), l.PercentSpent().StringFixed(1))
				}
				fmt.Fprintf(w, "TOTAL\t%s\t%s\t%s\t\n", status.TotalBudgeted, status.TotalSpent, status.TotalRemaining())
				return w.Flush()
			})
		},
	}
	cmd.Flags().Int64Var(&owner, "owner", 0, "owner id")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func budgetSetCmd() *cobra.Command {
	var owner int64
	var month, category string
	cmd := &cobra.Command{
		Use:   "set <amount>",
		Short: "Set a monthly budget, overall or for one category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseMoney(args[0])
			if err != nil {
				return err
			}
			ref, err := parseCategory(category)
			if err != nil {
				return err
			}
			monthID, err := monthArg([]string{month})
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, _ *config.Config, app *backend.App) error {
				b := core.Budget{Owner: owner, Period: monthID, Amount: amount, Category: ref}
				if err := app.Budgets.Set(ctx, b); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "budget %s for %s set to %s\n", ref, monthID, amount)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&owner, "owner", 0, "owner id")
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: current)")
	cmd.Flags().StringVar(&category, "category", "", "category as default:<id> or custom:<id> (default: overall)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func recurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Manage recurring transaction definitions",
	}
	cmd.AddCommand(recurringAddCmd(), recurringListCmd())
	return cmd
}

func recurringAddCmd() *cobra.Command {
	var def core.RecurringDefinition
	var kind, amount, frequency, start, end, category string
	cmd := &cobra.Command{
		Use:   "add <description>",
		Short: "Create a recurring definition",
		Example: `  expentrax recurring add "Rent" --owner 42 --amount 850 --frequency monthly --start 2025-01-01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			def.Description = args[0]
			def.Kind = core.Kind(kind)
			def.Frequency = core.Frequency(frequency)
			if def.Amount, err = core.ParseMoney(amount); err != nil {
				return err
			}
			if def.StartDate, err = core.ParseDate(start); err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			if end != "" {
				if def.EndDate, err = core.ParseDate(end); err != nil {
					return fmt.Errorf("invalid --end: %w", err)
				}
			}
			if def.Category, err = parseCategory(category); err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, _ *config.Config, app *backend.App) error {
				id, err := app.Store.CreateRecurringDefinition(ctx, def)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "recurring definition %d created\n", id)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&def.Owner, "owner", 0, "owner id")
	cmd.Flags().StringVar(&kind, "kind", string(core.Expense), "income or expense")
	cmd.Flags().StringVar(&amount, "amount", "", "amount, e.g. 12.50")
	cmd.Flags().StringVar(&frequency, "frequency", string(core.Monthly), "daily, weekly or monthly")
	cmd.Flags().StringVar(&start, "start", time.Now().UTC().Format(time.DateOnly), "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last date (YYYY-MM-DD), open-ended when empty")
	cmd.Flags().StringVar(&category, "category", "", "category as default:<id> or custom:<id>")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func recurringListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recurring definitions and their state for today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, _ *config.Config, app *backend.App) error {
				defs, err := app.Store.ListRecurringDefinitions(ctx)
				if err != nil {
					return err
				}
				today := core.DateOf(time.Now())
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tOWNER\tDESCRIPTION\tAMOUNT\tFREQUENCY\tLAST\tSTATE")
				for _, def := range defs {
					var last core.Date
					latest, err := app.Store.LatestForDefinition(ctx, def.ID)
					if err != nil {
						return err
					}
					if latest != nil {
						last = core.DateOf(latest.Timestamp)
					}
					state, err := services.Evaluate(def, last, today)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n", def.ID, def.Owner, def.Description, def.Amount, def.Frequency, last, state)
				}
				return w.Flush()
			})
		},
	}
}

func eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Consume notifications from AMQP, mirroring period summaries to Google Sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, _ *config.Config, app *backend.App) error {
				if app.AMQP == nil {
					return errors.New("events requires AMQP_URL to be set and reachable")
				}
				handler := worker.NewEventWorker(app.Mirror).Handler(ctx)
				for {
					err := app.AMQP.Consume(ctx, handler)
					if ctx.Err() != nil {
						return nil
					}
					slog.WarnContext(ctx, "Consumer stopped, reconnecting", "error", err)
					if err := app.AMQP.Reconnect(ctx); err != nil {
						return nil
					}
				}
			})
		},
	}
}

func monthArg(args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return period.ID(time.Now(), period.Month)
	}
	if _, err := period.Bounds(args[0], period.Month); err != nil {
		return "", err
	}
	return args[0], nil
}

// parseCategory reads "default:<id>" or "custom:<id>"; empty means none.
func parseCategory(s string) (core.CategoryRef, error) {
	if s == "" {
		return core.CategoryRef{}, nil
	}
	ns, id, ok := strings.Cut(s, ":")
	if !ok {
		return core.CategoryRef{}, fmt.Errorf("invalid category %q: want namespace:id", s)
	}
	namespace, err := core.ParseNamespace(ns)
	if err != nil {
		return core.CategoryRef{}, err
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n < 1 || namespace == "" {
		return core.CategoryRef{}, fmt.Errorf("invalid category %q: want namespace:id", s)
	}
	return core.CategoryRef{Namespace: namespace, ID: n}, nil
}
