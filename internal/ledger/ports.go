// Package ledger declares the contracts the engine consumes from the
// transaction store.
package ledger

import (
	"context"
	"errors"
	"time"

	"expentrax/internal/core"
	"expentrax/internal/period"
)

var (
	// ErrUnavailable wraps any failure reaching the backing store.
	ErrUnavailable = errors.New("ledger unavailable")
	ErrNotFound    = errors.New("not found")
)

// Ports for the ledger store.
type (
	TransactionWriter interface {
		// InsertTransaction stores tx and returns its id.
		InsertTransaction(ctx context.Context, tx core.Transaction) (string, error)
	}

	TransactionReader interface {
		// QueryTransactions returns the owner's entries in r, ascending by timestamp.
		QueryTransactions(ctx context.Context, owner int64, r period.Interval) ([]core.Transaction, error)
		// SumByKind returns the income and expense totals in r.
		SumByKind(ctx context.Context, owner int64, r period.Interval) (core.PeriodTotals, error)
		// TransactionTimes returns the distinct timestamps of the owner's entries.
		TransactionTimes(ctx context.Context, owner int64) ([]time.Time, error)
	}

	OccurrenceFinder interface {
		// LatestForDefinition returns the most recent entry materialized from
		// the definition, or nil if there is none.
		LatestForDefinition(ctx context.Context, definitionID int64) (*core.Transaction, error)
	}

	DefinitionStore interface {
		ListRecurringDefinitions(ctx context.Context) ([]core.RecurringDefinition, error)
		CreateRecurringDefinition(ctx context.Context, def core.RecurringDefinition) (int64, error)
	}

	CategoryNamer interface {
		// CategoryName resolves a reference to its display name.
		CategoryName(ctx context.Context, ref core.CategoryRef) (string, error)
	}

	BudgetStore interface {
		UpsertBudget(ctx context.Context, b core.Budget) error
		BudgetsForPeriod(ctx context.Context, owner int64, period string) ([]core.Budget, error)
	}

	OwnerLister interface {
		// ListOwners returns every owner with at least one transaction,
		// definition or budget.
		ListOwners(ctx context.Context) ([]int64, error)
	}

	// Store is the full ledger surface, implemented by the SQLite repository
	// and the in-memory store.
	Store interface {
		TransactionWriter
		TransactionReader
		OccurrenceFinder
		DefinitionStore
		CategoryNamer
		BudgetStore
		OwnerLister
	}
)
