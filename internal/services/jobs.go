package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"expentrax/internal/amqp"
	"expentrax/internal/ledger"
	"expentrax/internal/log"
	"expentrax/internal/period"
	"expentrax/internal/sheets"
)

// Job names as they appear in logs and the CLI.
const (
	JobRecurring     = "recurring"
	JobBudgetPrompt  = "budget_prompt"
	JobSummaryNotify = "summary_notify"
)

// RecurringJob runs a recurrence tick.
type RecurringJob struct {
	processor *RecurringProcessor
}

func NewRecurringJob(processor *RecurringProcessor) *RecurringJob {
	return &RecurringJob{processor: processor}
}

func (j *RecurringJob) Name() string { return JobRecurring }

func (j *RecurringJob) Run(ctx context.Context, now time.Time) error {
	_, err := j.processor.ProcessDue(ctx, now)
	return err
}

// BudgetPromptJob asks owners without a budget for the current month to set
// one, during the first days of the month.
type BudgetPromptJob struct {
	owners    ledger.OwnerLister
	budgets   ledger.BudgetStore
	publisher Publisher
	days      int
}

func NewBudgetPromptJob(owners ledger.OwnerLister, budgets ledger.BudgetStore, publisher Publisher, days int) *BudgetPromptJob {
	return &BudgetPromptJob{owners: owners, budgets: budgets, publisher: publisher, days: days}
}

func (j *BudgetPromptJob) Name() string { return JobBudgetPrompt }

func (j *BudgetPromptJob) Run(ctx context.Context, now time.Time) error {
	now = now.UTC()
	if now.Day() > j.days {
		return nil
	}
	if j.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping budget prompts")
		return nil
	}

	monthID, err := period.ID(now, period.Month)
	if err != nil {
		return err
	}
	owners, err := j.owners.ListOwners(ctx)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}

	prompted, failed := 0, 0
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return err
		}
		budgets, err := j.budgets.BudgetsForPeriod(ctx, owner, monthID)
		if err != nil {
			failed++
			slog.ErrorContext(ctx, "Failed to load budgets", "owner", owner, "period", monthID, "error", err)
			continue
		}
		if len(budgets) > 0 {
			continue
		}
		if err := j.publisher.PublishBudgetPrompt(ctx, owner, monthID); err != nil {
			failed++
			slog.ErrorContext(ctx, "Failed to publish budget prompt", "owner", owner, "period", monthID, "error", err)
			continue
		}
		prompted++
	}

	slog.InfoContext(ctx, "Budget prompts sent",
		"component", log.ComponentBudget,
		"period", monthID,
		"prompted", prompted,
		"failed", failed)

	if failed > 0 {
		return fmt.Errorf("budget prompts failed for %d of %d owners", failed, len(owners))
	}
	return nil
}

// SummaryNotifyJob reports the totals of the period that just closed: the
// previous month on the 1st and the previous ISO week on Mondays.
type SummaryNotifyJob struct {
	owners    ledger.OwnerLister
	summaries *SummaryService
	publisher Publisher
	mirror    sheets.SummaryWriter
}

// NewSummaryNotifyJob builds the job. Either publisher or mirror may be nil.
func NewSummaryNotifyJob(owners ledger.OwnerLister, summaries *SummaryService, publisher Publisher, mirror sheets.SummaryWriter) *SummaryNotifyJob {
	return &SummaryNotifyJob{owners: owners, summaries: summaries, publisher: publisher, mirror: mirror}
}

func (j *SummaryNotifyJob) Name() string { return JobSummaryNotify }

// ClosedPeriod names a period that has fully elapsed.
type ClosedPeriod struct {
	Granularity period.Granularity
	ID          string
}

// ClosedPeriods returns the periods that ended at the start of now's UTC day.
func ClosedPeriods(now time.Time) ([]ClosedPeriod, error) {
	now = now.UTC()
	var out []ClosedPeriod
	if now.Day() == 1 {
		id, err := previousOf(now, period.Month)
		if err != nil {
			return nil, err
		}
		out = append(out, ClosedPeriod{Granularity: period.Month, ID: id})
	}
	if now.Weekday() == time.Monday {
		id, err := previousOf(now, period.Week)
		if err != nil {
			return nil, err
		}
		out = append(out, ClosedPeriod{Granularity: period.Week, ID: id})
	}
	return out, nil
}

func previousOf(now time.Time, g period.Granularity) (string, error) {
	id, err := period.ID(now, g)
	if err != nil {
		return "", err
	}
	return period.Previous(id, g)
}

func (j *SummaryNotifyJob) Run(ctx context.Context, now time.Time) error {
	targets, err := ClosedPeriods(now)
	if err != nil || len(targets) == 0 {
		return err
	}
	if j.publisher == nil && j.mirror == nil {
		slog.WarnContext(ctx, "No publisher or sheets mirror configured, skipping period summaries")
		return nil
	}

	owners, err := j.owners.ListOwners(ctx)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}

	sent, failed := 0, 0
	for _, target := range targets {
		for _, owner := range owners {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, err := j.notify(ctx, owner, target, now)
			if err != nil {
				failed++
				fields := log.NewFields().
					WithComponent(log.ComponentSummary).
					WithPeriod(owner, string(target.Granularity), target.ID).
					WithError(err)
				slog.ErrorContext(ctx, "Failed to send period summary", fields.ToSlice()...)
				continue
			}
			if ok {
				sent++
			}
		}
	}

	slog.InfoContext(ctx, "Period summaries sent",
		"component", log.ComponentSummary,
		"periods", len(targets),
		"sent", sent,
		"failed", failed)

	if failed > 0 {
		return fmt.Errorf("period summaries failed for %d owner periods", failed)
	}
	return nil
}

// notify reports one owner's totals. Periods without any activity are skipped.
func (j *SummaryNotifyJob) notify(ctx context.Context, owner int64, target ClosedPeriod, now time.Time) (bool, error) {
	g := string(target.Granularity)
	totals, err := j.summaries.PeriodTotal(ctx, owner, g, target.ID)
	if err != nil {
		return false, err
	}
	if totals.Income.IsZero() && totals.Expense.IsZero() {
		return false, nil
	}

	if j.publisher != nil {
		if err := j.publisher.PublishPeriodSummary(ctx, amqp.NewPeriodSummaryMessage(owner, g, target.ID, totals)); err != nil {
			return false, fmt.Errorf("publish: %w", err)
		}
	}
	if j.mirror != nil {
		row := sheets.SummaryRow{Owner: owner, Granularity: g, Period: target.ID, Totals: totals, GeneratedAt: now.UTC()}
		if _, err := j.mirror.AppendSummary(ctx, row); err != nil {
			return false, fmt.Errorf("mirror to sheets: %w", err)
		}
	}
	return true, nil
}
