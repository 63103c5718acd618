package worker

import (
	"context"
	"fmt"
	"log/slog"

	"expentrax/internal/amqp"
	"expentrax/internal/core"
	"expentrax/internal/sheets"
)

// EventWorker handles notifications consumed from the AMQP queue. Period
// summaries are mirrored to the spreadsheet; the other events are logged for
// the delivery side.
type EventWorker struct {
	mirror sheets.SummaryWriter
}

// NewEventWorker creates a worker. mirror may be nil.
func NewEventWorker(mirror sheets.SummaryWriter) *EventWorker {
	return &EventWorker{mirror: mirror}
}

// Handler adapts the worker to amqp.Client.Consume.
func (w *EventWorker) Handler(ctx context.Context) func(routingKey string, msg any) error {
	return func(routingKey string, msg any) error {
		return w.HandleMessage(ctx, routingKey, msg)
	}
}

// HandleMessage processes one decoded message. A returned error requeues it.
func (w *EventWorker) HandleMessage(ctx context.Context, routingKey string, msg any) error {
	switch m := msg.(type) {
	case *amqp.TransactionCreatedMessage:
		slog.InfoContext(ctx, "Transaction recorded",
			"id", m.ID,
			"owner", m.Owner,
			"kind", m.Kind,
			"amount", m.Amount,
			"recurring_id", m.RecurringID)
		return nil
	case *amqp.BudgetPromptMessage:
		slog.InfoContext(ctx, "Budget prompt requested",
			"owner", m.Owner,
			"period", m.Period)
		return nil
	case *amqp.PeriodSummaryMessage:
		return w.HandlePeriodSummary(ctx, m)
	default:
		return fmt.Errorf("unexpected message %T on %s", msg, routingKey)
	}
}

// HandlePeriodSummary appends the summary to the spreadsheet mirror.
func (w *EventWorker) HandlePeriodSummary(ctx context.Context, msg *amqp.PeriodSummaryMessage) error {
	slog.InfoContext(ctx, "Processing period summary",
		"owner", msg.Owner,
		"granularity", msg.Granularity,
		"period", msg.Period)

	if w.mirror == nil {
		slog.WarnContext(ctx, "No sheets mirror configured, skipping period summary",
			"owner", msg.Owner,
			"period", msg.Period)
		return nil
	}

	income, err := core.ParseMoney(msg.Income)
	if err != nil {
		return fmt.Errorf("parse income %q: %w", msg.Income, err)
	}
	expense, err := core.ParseMoney(msg.Expense)
	if err != nil {
		return fmt.Errorf("parse expense %q: %w", msg.Expense, err)
	}

	ref, err := w.mirror.AppendSummary(ctx, sheets.SummaryRow{
		Owner:       msg.Owner,
		Granularity: msg.Granularity,
		Period:      msg.Period,
		Totals:      core.PeriodTotals{Income: income, Expense: expense},
		GeneratedAt: msg.Timestamp.UTC(),
	})
	if err != nil {
		return fmt.Errorf("append summary to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Period summary mirrored to Google Sheets",
		"owner", msg.Owner,
		"period", msg.Period,
		"range", ref)
	return nil
}
