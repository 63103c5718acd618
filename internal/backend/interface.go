// Package backend wires configuration into a ready-to-use set of stores,
// outbound adapters and services shared by the binaries.
package backend

import (
	"errors"

	"expentrax/internal/amqp"
	"expentrax/internal/cache"
	"expentrax/internal/ledger"
	"expentrax/internal/services"
	"expentrax/internal/sheets"
)

// BackendType represents the type of ledger store
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// App holds the wired components. AMQP and Mirror are nil when disabled.
type App struct {
	Store  ledger.Store
	AMQP   *amqp.Client
	Mirror sheets.SummaryWriter

	NameCache    *cache.LRUCache[string]
	Caches       *cache.Manager
	Names        *services.CategoryDirectory
	Transactions *services.TransactionService
	Summaries    *services.SummaryService
	Budgets      *services.BudgetService
	Processor    *services.RecurringProcessor

	cleanups []CleanupFunc
}

// Publisher returns the AMQP client as a services.Publisher, or a nil
// interface when AMQP is disabled.
func (a *App) Publisher() services.Publisher {
	if a.AMQP == nil {
		return nil
	}
	return a.AMQP
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.cleanups = nil
	return errors.Join(errs...)
}
