package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an expense amount aggregated by category.
type CategoryAmount struct {
	Ref    CategoryRef
	Name   string
	Amount Money
}

// PeriodTotals holds the two sums for one owner and one period.
type PeriodTotals struct {
	Income  Money
	Expense Money
}

// Balance is income minus expense.
func (p PeriodTotals) Balance() Money {
	return p.Income.Sub(p.Expense)
}

// Summary is the aggregate of one owner's ledger over one period.
type Summary struct {
	Owner        int64
	Granularity  string
	Period       string
	Start        time.Time
	End          time.Time
	TotalIncome  Money
	TotalExpense Money
	// ByCategory maps display name to summed expense amount.
	ByCategory map[string]Money
	// Categories is ByCategory keyed by reference, largest amount first.
	Categories   []CategoryAmount
	Transactions []Transaction // ascending by timestamp
}

func (s Summary) Totals() PeriodTotals {
	return PeriodTotals{Income: s.TotalIncome, Expense: s.TotalExpense}
}

func (s Summary) Balance() Money {
	return s.TotalIncome.Sub(s.TotalExpense)
}

// Percent returns a category's share of total expense; 0 when there is none.
func (s Summary) Percent(name string) decimal.Decimal {
	return s.ByCategory[name].PercentOf(s.TotalExpense)
}

// IsEmpty reports whether no transactions fell in the period.
func (s Summary) IsEmpty() bool {
	return len(s.Transactions) == 0
}

// BudgetLine compares one budget against the matching spend.
type BudgetLine struct {
	Category CategoryRef
	Name     string
	Budgeted Money
	Spent    Money
}

func (b BudgetLine) Remaining() Money {
	return b.Budgeted.Sub(b.Spent)
}

func (b BudgetLine) PercentSpent() decimal.Decimal {
	return b.Spent.PercentOf(b.Budgeted)
}

// BudgetStatus is the budget report for one owner and month.
type BudgetStatus struct {
	Owner         int64
	Period        string
	Lines         []BudgetLine
	TotalBudgeted Money
	TotalSpent    Money
}

func (b BudgetStatus) TotalRemaining() Money {
	return b.TotalBudgeted.Sub(b.TotalSpent)
}
