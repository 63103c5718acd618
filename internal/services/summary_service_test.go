package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"expentrax/internal/cache"
	"expentrax/internal/core"
	"expentrax/internal/ledger"
	"expentrax/internal/period"
	"expentrax/internal/storage/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSummaryFixture(t *testing.T) (*memory.Store, *SummaryService) {
	t.Helper()
	store := memory.New("Food", "Transport", "Salary")
	names := NewCategoryDirectory(store, cache.NewLRUCache[string](16, time.Minute))
	return store, NewSummaryService(store, names)
}

func insert(t *testing.T, store *memory.Store, owner int64, kind core.Kind, cents int64, ref core.CategoryRef, at time.Time) {
	t.Helper()
	_, err := store.InsertTransaction(context.Background(), core.Transaction{
		Owner:       owner,
		Kind:        kind,
		Amount:      core.MoneyFromCents(cents),
		Category:    ref,
		Description: "entry",
		Timestamp:   at,
	})
	require.NoError(t, err)
}

func TestSummarizeAggregatesByKindAndCategory(t *testing.T) {
	store, svc := newSummaryFixture(t)
	food, _ := store.DefaultRef("Food")
	salary, _ := store.DefaultRef("Salary")

	insert(t, store, 1, core.Expense, 10000, food, utcAt(2025, 3, 14, 12, 0))
	insert(t, store, 1, core.Expense, 5000, food, utcAt(2025, 3, 2, 9, 0))
	insert(t, store, 1, core.Income, 50000, salary, utcAt(2025, 3, 27, 8, 0))
	// Other owner and other month are excluded.
	insert(t, store, 2, core.Expense, 999, food, utcAt(2025, 3, 3, 0, 0))
	insert(t, store, 1, core.Expense, 777, food, utcAt(2025, 4, 1, 0, 0))

	sum, err := svc.Summarize(context.Background(), 1, "monthly", "2025-03")
	require.NoError(t, err)

	assert.Equal(t, "500.00", sum.TotalIncome.String())
	assert.Equal(t, "150.00", sum.TotalExpense.String())
	assert.Equal(t, "350.00", sum.Balance().String())
	require.Len(t, sum.ByCategory, 1)
	assert.Equal(t, "150.00", sum.ByCategory["Food"].String())
	assert.Equal(t, "month", sum.Granularity)

	require.Len(t, sum.Transactions, 3)
	assert.True(t, sum.Transactions[0].Timestamp.Before(sum.Transactions[1].Timestamp))
	assert.True(t, sum.Transactions[1].Timestamp.Before(sum.Transactions[2].Timestamp))
	assert.True(t, sum.Percent("Food").Equal(decimal.NewFromInt(100)))
}

func TestSummarizeWithoutExpensesIsZeroSafe(t *testing.T) {
	store, svc := newSummaryFixture(t)
	salary, _ := store.DefaultRef("Salary")
	insert(t, store, 1, core.Income, 50000, salary, utcAt(2025, 3, 27, 8, 0))

	sum, err := svc.Summarize(context.Background(), 1, "month", "2025-03")
	require.NoError(t, err)
	assert.Empty(t, sum.ByCategory)
	assert.True(t, sum.TotalExpense.IsZero())
	assert.True(t, sum.Percent("Food").IsZero())

	empty, err := svc.Summarize(context.Background(), 1, "year", "1999")
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
	assert.True(t, empty.Balance().IsZero())
}

func TestSummarizeCategoriesOrdering(t *testing.T) {
	store, svc := newSummaryFixture(t)
	food, _ := store.DefaultRef("Food")
	transport, _ := store.DefaultRef("Transport")
	gifts := store.AddCustomCategory("Gifts")
	at := utcAt(2024, 12, 31, 10, 0) // ISO week 2025-W01

	insert(t, store, 1, core.Expense, 300, transport, at)
	insert(t, store, 1, core.Expense, 300, food, at)
	insert(t, store, 1, core.Expense, 900, gifts, at)
	insert(t, store, 1, core.Expense, 100, core.CategoryRef{}, at)

	sum, err := svc.Summarize(context.Background(), 1, "week", "2025-W01")
	require.NoError(t, err)

	var names []string
	for _, c := range sum.Categories {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Gifts", "Food", "Transport", core.UncategorizedName}, names)
	assert.Equal(t, "1.00", sum.ByCategory[core.UncategorizedName].String())
}

func TestSummarizeRejectsBadInput(t *testing.T) {
	_, svc := newSummaryFixture(t)
	ctx := context.Background()

	_, err := svc.Summarize(ctx, 1, "fortnight", "2025-03")
	assert.ErrorIs(t, err, period.ErrInvalidGranularity)

	_, err = svc.Summarize(ctx, 1, "month", "2025-3")
	assert.ErrorIs(t, err, period.ErrMalformedPeriod)

	_, err = svc.PeriodTotal(ctx, 1, "week", "2021-W53")
	assert.ErrorIs(t, err, period.ErrMalformedPeriod)
}

func TestSummarizePropagatesStoreFailure(t *testing.T) {
	store, svc := newSummaryFixture(t)
	store.FailAlways(memory.OpQuery)

	_, err := svc.Summarize(context.Background(), 1, "month", "2025-03")
	assert.ErrorIs(t, err, ledger.ErrUnavailable)

	_, err = svc.DistinctPeriods(context.Background(), 1, "month")
	assert.ErrorIs(t, err, ledger.ErrUnavailable)
}

func TestSummarizeFallsBackWhenNameLookupFails(t *testing.T) {
	store, svc := newSummaryFixture(t)
	food, _ := store.DefaultRef("Food")
	insert(t, store, 1, core.Expense, 500, food, utcAt(2025, 3, 1, 0, 0))
	store.FailOn(memory.OpCategory, func(any) error { return errors.New("namer down") })

	sum, err := svc.Summarize(context.Background(), 1, "month", "2025-03")
	require.NoError(t, err)
	assert.Equal(t, "5.00", sum.ByCategory[core.UncategorizedName].String())
}

func TestDistinctPeriodsOrdering(t *testing.T) {
	store, svc := newSummaryFixture(t)
	food, _ := store.DefaultRef("Food")
	insert(t, store, 1, core.Expense, 100, food, utcAt(2024, 1, 10, 0, 0))
	insert(t, store, 1, core.Expense, 100, food, utcAt(2025, 3, 5, 0, 0))
	insert(t, store, 1, core.Expense, 100, food, utcAt(2024, 12, 20, 0, 0))
	insert(t, store, 1, core.Expense, 100, food, utcAt(2024, 12, 21, 0, 0))

	months, err := svc.DistinctPeriods(context.Background(), 1, "monthly")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03", "2024-12", "2024-01"}, months)

	years, err := svc.DistinctPeriods(context.Background(), 1, "year")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025", "2024"}, years)

	none, err := svc.DistinctPeriods(context.Background(), 42, "week")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPeriodTotal(t *testing.T) {
	store, svc := newSummaryFixture(t)
	food, _ := store.DefaultRef("Food")
	salary, _ := store.DefaultRef("Salary")
	insert(t, store, 1, core.Expense, 1250, food, utcAt(2025, 1, 1, 0, 0))
	insert(t, store, 1, core.Income, 3000, salary, utcAt(2025, 12, 31, 23, 59))
	insert(t, store, 1, core.Income, 3000, salary, utcAt(2026, 1, 1, 0, 0))

	totals, err := svc.PeriodTotal(context.Background(), 1, "year", "2025")
	require.NoError(t, err)
	assert.Equal(t, "30.00", totals.Income.String())
	assert.Equal(t, "12.50", totals.Expense.String())
	assert.Equal(t, "17.50", totals.Balance().String())
}
