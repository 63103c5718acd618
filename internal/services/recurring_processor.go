package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"expentrax/internal/core"
	"expentrax/internal/ledger"
	"expentrax/internal/log"
)

// State is the position of a definition within its current cycle.
type State string

const (
	StateNotYetStarted State = "not_yet_started"
	StateDue           State = "due"
	StateSatisfied     State = "satisfied"
	StateEnded         State = "ended"
)

// RecurringProcessor materializes due recurring definitions into transactions.
type RecurringProcessor struct {
	mu           sync.Mutex
	definitions  ledger.DefinitionStore
	occurrences  ledger.OccurrenceFinder
	transactions *TransactionService
}

func NewRecurringProcessor(definitions ledger.DefinitionStore, occurrences ledger.OccurrenceFinder, transactions *TransactionService) *RecurringProcessor {
	return &RecurringProcessor{
		definitions:  definitions,
		occurrences:  occurrences,
		transactions: transactions,
	}
}

// Evaluate classifies def for today given its last occurrence date, which
// is zero when none exists.
func Evaluate(def core.RecurringDefinition, last, today core.Date) (State, error) {
	if today.Before(def.StartDate) {
		return StateNotYetStarted, nil
	}
	if !def.EndDate.IsEmpty() && today.After(def.EndDate) {
		return StateEnded, nil
	}
	checker, err := GetDuenessChecker(def.Frequency)
	if err != nil {
		return "", err
	}
	if checker.IsDue(last, today) {
		return StateDue, nil
	}
	return StateSatisfied, nil
}

// ProcessDue runs one tick: every due definition gets exactly one new
// transaction stamped now. It returns the number created. Only a failure to
// list definitions fails the tick.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.definitions == nil || p.occurrences == nil || p.transactions == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	defs, err := p.definitions.ListRecurringDefinitions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring definitions: %w", err)
	}

	now = now.UTC()
	today := core.DateOf(now)

	slog.InfoContext(ctx, "Processing recurring definitions",
		"total", len(defs),
		"processing_date", today.String())

	created := 0
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		ok, err := p.processOne(ctx, def, now, today)
		if err != nil {
			fields := log.NewFields().
				WithComponent(log.ComponentRecurring).
				WithDefinition(def.ID, def.Owner, string(def.Frequency)).
				WithError(err)
			slog.ErrorContext(ctx, "Failed to process recurring definition", fields.ToSlice()...)
			continue
		}
		if ok {
			created++
		}
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"created", created,
		"total_checked", len(defs))

	return created, nil
}

func (p *RecurringProcessor) processOne(ctx context.Context, def core.RecurringDefinition, now time.Time, today core.Date) (bool, error) {
	if !def.Active(today) {
		return false, nil
	}

	latest, err := p.occurrences.LatestForDefinition(ctx, def.ID)
	if err != nil {
		return false, fmt.Errorf("find latest occurrence: %w", err)
	}
	var last core.Date
	if latest != nil {
		last = core.DateOf(latest.Timestamp)
	}

	state, err := Evaluate(def, last, today)
	if err != nil {
		return false, err
	}
	if state != StateDue {
		slog.DebugContext(ctx, "Recurring definition not due",
			"definition_id", def.ID,
			"state", state,
			"last_occurrence", last.String())
		return false, nil
	}

	tx, err := p.transactions.Create(ctx, core.Transaction{
		Owner:       def.Owner,
		Kind:        def.Kind,
		Amount:      def.Amount,
		Category:    def.Category,
		Description: def.Description,
		Timestamp:   now,
		RecurringID: def.ID,
	})
	if err != nil {
		return false, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Created transaction from recurring definition",
		"definition_id", def.ID,
		"transaction_id", tx.ID,
		"amount", tx.Amount.String(),
		"frequency", def.Frequency)
	return true, nil
}
