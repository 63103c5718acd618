package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"expentrax/internal/core"
	"expentrax/internal/ledger"
	"expentrax/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProcessorFixture(t *testing.T) (*memory.Store, *fakePublisher, *RecurringProcessor) {
	t.Helper()
	store := memory.New("Housing", "Bills")
	pub := &fakePublisher{}
	proc := NewRecurringProcessor(store, store, NewTransactionService(store, pub))
	return store, pub, proc
}

func addDefinition(t *testing.T, store *memory.Store, def core.RecurringDefinition) int64 {
	t.Helper()
	if def.Owner == 0 {
		def.Owner = 1
	}
	if def.Kind == "" {
		def.Kind = core.Expense
	}
	if def.Amount.IsZero() {
		def.Amount = core.MoneyFromCents(85000)
	}
	if def.Description == "" {
		def.Description = "Rent"
	}
	id, err := store.CreateRecurringDefinition(context.Background(), def)
	require.NoError(t, err)
	return id
}

func TestProcessDueMonthlyIsIdempotentWithinCycle(t *testing.T) {
	store, pub, proc := newProcessorFixture(t)
	ctx := context.Background()
	housing, _ := store.DefaultRef("Housing")
	id := addDefinition(t, store, core.RecurringDefinition{
		Frequency: core.Monthly,
		StartDate: core.NewDate(2025, 1, 1),
		Category:  housing,
	})

	n, err := proc.ProcessDue(ctx, utcAt(2025, 7, 15, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = proc.ProcessDue(ctx, utcAt(2025, 7, 15, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, 0, n, "second tick on the same day must not double-post")

	n, err = proc.ProcessDue(ctx, utcAt(2025, 8, 1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	txs := store.Transactions()
	require.Len(t, txs, 2)
	for _, tx := range txs {
		assert.Equal(t, id, tx.RecurringID)
		assert.Equal(t, housing, tx.Category)
		assert.Equal(t, "850.00", tx.Amount.String())
		assert.Equal(t, "Rent", tx.Description)
	}
	assert.Equal(t, utcAt(2025, 7, 15, 0, 0), txs[0].Timestamp)
	assert.Len(t, pub.created, 2)
}

func TestProcessDueEndDateCutoff(t *testing.T) {
	store, _, proc := newProcessorFixture(t)
	addDefinition(t, store, core.RecurringDefinition{
		Frequency: core.Daily,
		StartDate: core.NewDate(2025, 1, 1),
		EndDate:   core.NewDate(2025, 6, 30),
	})

	for _, now := range []struct{ m, d int }{{7, 1}, {7, 2}, {12, 31}} {
		n, err := proc.ProcessDue(context.Background(), utcAt(2025, time.Month(now.m), now.d, 9, 0))
		require.NoError(t, err)
		assert.Zero(t, n)
	}
	assert.Empty(t, store.Transactions())

	// The end date itself is still inside the window.
	n, err := proc.ProcessDue(context.Background(), utcAt(2025, 6, 30, 23, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProcessDueNotYetStarted(t *testing.T) {
	store, _, proc := newProcessorFixture(t)
	addDefinition(t, store, core.RecurringDefinition{
		Frequency: core.Weekly,
		StartDate: core.NewDate(2025, 9, 1),
	})

	n, err := proc.ProcessDue(context.Background(), utcAt(2025, 8, 31, 23, 59))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, store.Calls(memory.OpLatest))

	n, err = proc.ProcessDue(context.Background(), utcAt(2025, 9, 1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProcessDueUsesDefinitionLinkNotDescription(t *testing.T) {
	store, _, proc := newProcessorFixture(t)
	ctx := context.Background()
	first := addDefinition(t, store, core.RecurringDefinition{Frequency: core.Monthly, StartDate: core.NewDate(2025, 1, 1)})
	second := addDefinition(t, store, core.RecurringDefinition{Frequency: core.Monthly, StartDate: core.NewDate(2025, 1, 1)})

	// A manual entry with the same description does not satisfy either.
	_, err := store.InsertTransaction(ctx, core.Transaction{
		Owner: 1, Kind: core.Expense, Amount: core.MoneyFromCents(85000),
		Description: "Rent", Timestamp: utcAt(2025, 7, 2, 0, 0),
	})
	require.NoError(t, err)

	n, err := proc.ProcessDue(ctx, utcAt(2025, 7, 10, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var linked []int64
	for _, tx := range store.Transactions() {
		if tx.RecurringID != 0 {
			linked = append(linked, tx.RecurringID)
		}
	}
	assert.ElementsMatch(t, []int64{first, second}, linked)
}

func TestProcessDueIsolatesDefinitionFailures(t *testing.T) {
	store, _, proc := newProcessorFixture(t)
	broken := addDefinition(t, store, core.RecurringDefinition{Frequency: core.Daily, StartDate: core.NewDate(2025, 1, 1)})
	addDefinition(t, store, core.RecurringDefinition{Frequency: core.Daily, StartDate: core.NewDate(2025, 1, 1), Description: "Gym"})

	store.FailOn(memory.OpLatest, func(key any) error {
		if key.(int64) == broken {
			return ledger.ErrUnavailable
		}
		return nil
	})

	n, err := proc.ProcessDue(context.Background(), utcAt(2025, 5, 5, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.Transactions(), 1)
	assert.Equal(t, "Gym", store.Transactions()[0].Description)
}

func TestProcessDueContinuesAfterInsertFailure(t *testing.T) {
	store, _, proc := newProcessorFixture(t)
	addDefinition(t, store, core.RecurringDefinition{Frequency: core.Daily, StartDate: core.NewDate(2025, 1, 1), Owner: 7})
	addDefinition(t, store, core.RecurringDefinition{Frequency: core.Daily, StartDate: core.NewDate(2025, 1, 1), Owner: 8})

	store.FailOn(memory.OpInsert, func(key any) error {
		if key.(core.Transaction).Owner == 7 {
			return errors.New("disk full")
		}
		return nil
	})

	n, err := proc.ProcessDue(context.Background(), utcAt(2025, 5, 5, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProcessDueListingFailureFailsTick(t *testing.T) {
	store, _, proc := newProcessorFixture(t)
	store.FailAlways(memory.OpList)

	_, err := proc.ProcessDue(context.Background(), utcAt(2025, 5, 5, 0, 0))
	assert.ErrorIs(t, err, ledger.ErrUnavailable)
}

func TestProcessDueStopsOnCancelledContext(t *testing.T) {
	store, _, proc := newProcessorFixture(t)
	addDefinition(t, store, core.RecurringDefinition{Frequency: core.Daily, StartDate: core.NewDate(2025, 1, 1)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := proc.ProcessDue(ctx, utcAt(2025, 5, 5, 0, 0))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
	assert.Empty(t, store.Transactions())
}

func TestProcessDuePublishFailureStillCounts(t *testing.T) {
	store, pub, proc := newProcessorFixture(t)
	pub.failAll = true
	addDefinition(t, store, core.RecurringDefinition{Frequency: core.Weekly, StartDate: core.NewDate(2025, 1, 1)})

	n, err := proc.ProcessDue(context.Background(), utcAt(2025, 5, 5, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEvaluate(t *testing.T) {
	def := core.RecurringDefinition{
		Frequency: core.Weekly,
		StartDate: core.NewDate(2025, 3, 1),
		EndDate:   core.NewDate(2025, 3, 31),
	}

	tests := []struct {
		name  string
		last  core.Date
		today core.Date
		want  State
	}{
		{"before start", core.Date{}, core.NewDate(2025, 2, 28), StateNotYetStarted},
		{"first occurrence", core.Date{}, core.NewDate(2025, 3, 1), StateDue},
		{"within cycle", core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 7), StateSatisfied},
		{"next cycle", core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 8), StateDue},
		{"after end", core.NewDate(2025, 3, 29), core.NewDate(2025, 4, 1), StateEnded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(def, tt.last, tt.today)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Evaluate(core.RecurringDefinition{Frequency: "yearly", StartDate: core.NewDate(2025, 1, 1)}, core.Date{}, core.NewDate(2025, 6, 1))
	assert.ErrorIs(t, err, core.ErrInvalidFrequency)
}
