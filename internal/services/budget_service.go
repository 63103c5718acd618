package services

import (
	"context"
	"fmt"
	"sort"

	"expentrax/internal/core"
	"expentrax/internal/ledger"
	"expentrax/internal/period"
)

// BudgetService compares monthly budgets against actual spend.
type BudgetService struct {
	budgets ledger.BudgetStore
	reader  ledger.TransactionReader
	names   *CategoryDirectory
}

func NewBudgetService(budgets ledger.BudgetStore, reader ledger.TransactionReader, names *CategoryDirectory) *BudgetService {
	return &BudgetService{budgets: budgets, reader: reader, names: names}
}

// Set validates and stores b, replacing any budget with the same owner,
// month and category.
func (s *BudgetService) Set(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if err := s.budgets.UpsertBudget(ctx, b); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

// Status reports spend against each budget of the month. The overall
// budget (zero category) is compared with total expense.
func (s *BudgetService) Status(ctx context.Context, owner int64, monthID string) (core.BudgetStatus, error) {
	bounds, err := period.Bounds(monthID, period.Month)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	budgets, err := s.budgets.BudgetsForPeriod(ctx, owner, monthID)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	txs, err := s.reader.QueryTransactions(ctx, owner, bounds)
	if err != nil {
		return core.BudgetStatus{}, err
	}

	var totalExpense core.Money
	spent := map[core.CategoryRef]core.Money{}
	for _, tx := range txs {
		if tx.Kind != core.Expense {
			continue
		}
		totalExpense = totalExpense.Add(tx.Amount)
		spent[tx.Category] = spent[tx.Category].Add(tx.Amount)
	}

	status := core.BudgetStatus{Owner: owner, Period: monthID}
	var overall *core.BudgetLine
	for _, b := range budgets {
		line := core.BudgetLine{Category: b.Category, Budgeted: b.Amount}
		if b.Category.IsZero() {
			line.Name = "Overall"
			line.Spent = totalExpense
			overall = &line
			continue
		}
		line.Name = s.names.Name(ctx, b.Category)
		line.Spent = spent[b.Category]
		status.Lines = append(status.Lines, line)
		status.TotalBudgeted = status.TotalBudgeted.Add(line.Budgeted)
		status.TotalSpent = status.TotalSpent.Add(line.Spent)
	}
	sort.Slice(status.Lines, func(i, j int) bool { return status.Lines[i].Name < status.Lines[j].Name })

	if overall != nil {
		status.Lines = append([]core.BudgetLine{*overall}, status.Lines...)
		status.TotalBudgeted = overall.Budgeted
		status.TotalSpent = totalExpense
	}
	return status, nil
}
