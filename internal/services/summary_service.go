package services

import (
	"context"
	"log/slog"
	"sort"

	"expentrax/internal/core"
	"expentrax/internal/ledger"
	"expentrax/internal/period"
)

// SummaryService aggregates one owner's ledger over calendar periods.
// Nothing is cached: every call reads the store.
type SummaryService struct {
	store ledger.TransactionReader
	names *CategoryDirectory
}

func NewSummaryService(store ledger.TransactionReader, names *CategoryDirectory) *SummaryService {
	return &SummaryService{store: store, names: names}
}

// DistinctPeriods lists the identifiers of every period holding at least
// one of the owner's transactions, most recent first.
func (s *SummaryService) DistinctPeriods(ctx context.Context, owner int64, granularity string) ([]string, error) {
	g, err := period.ParseGranularity(granularity)
	if err != nil {
		return nil, err
	}
	times, err := s.store.TransactionTimes(ctx, owner)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(times))
	ids := make([]string, 0)
	for _, t := range times {
		id, err := period.ID(t, g)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	period.SortDescending(ids)
	return ids, nil
}

// Summarize aggregates the owner's transactions inside the named period.
// A period without transactions yields zero totals and no error.
func (s *SummaryService) Summarize(ctx context.Context, owner int64, granularity, periodID string) (core.Summary, error) {
	g, err := period.ParseGranularity(granularity)
	if err != nil {
		return core.Summary{}, err
	}
	bounds, err := period.Bounds(periodID, g)
	if err != nil {
		return core.Summary{}, err
	}
	txs, err := s.store.QueryTransactions(ctx, owner, bounds)
	if err != nil {
		return core.Summary{}, err
	}

	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Timestamp.Before(txs[j].Timestamp) })

	sum := core.Summary{
		Owner:        owner,
		Granularity:  string(g),
		Period:       periodID,
		Start:        bounds.Start,
		End:          bounds.End,
		ByCategory:   map[string]core.Money{},
		Transactions: txs,
	}
	byRef := map[core.CategoryRef]core.Money{}
	for _, tx := range txs {
		switch tx.Kind {
		case core.Income:
			sum.TotalIncome = sum.TotalIncome.Add(tx.Amount)
		case core.Expense:
			sum.TotalExpense = sum.TotalExpense.Add(tx.Amount)
			byRef[tx.Category] = byRef[tx.Category].Add(tx.Amount)
		}
	}

	for ref, amount := range byRef {
		name := s.categoryName(ctx, ref)
		sum.ByCategory[name] = sum.ByCategory[name].Add(amount)
		sum.Categories = append(sum.Categories, core.CategoryAmount{Ref: ref, Name: name, Amount: amount})
	}
	sort.Slice(sum.Categories, func(i, j int) bool {
		a, b := sum.Categories[i], sum.Categories[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Ref.String() < b.Ref.String()
	})

	slog.DebugContext(ctx, "Period summarized",
		"owner", owner,
		"granularity", g,
		"period", periodID,
		"transactions", len(txs))

	return sum, nil
}

// PeriodTotal returns only the income and expense sums for the period,
// computed by the store.
func (s *SummaryService) PeriodTotal(ctx context.Context, owner int64, granularity, periodID string) (core.PeriodTotals, error) {
	g, err := period.ParseGranularity(granularity)
	if err != nil {
		return core.PeriodTotals{}, err
	}
	bounds, err := period.Bounds(periodID, g)
	if err != nil {
		return core.PeriodTotals{}, err
	}
	return s.store.SumByKind(ctx, owner, bounds)
}

func (s *SummaryService) categoryName(ctx context.Context, ref core.CategoryRef) string {
	if s.names == nil {
		if ref.IsZero() {
			return core.UncategorizedName
		}
		return ref.String()
	}
	return s.names.Name(ctx, ref)
}
