// Package memory is an in-process ledger.Store used by tests and dry runs.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"expentrax/internal/core"
	"expentrax/internal/ledger"
	"expentrax/internal/period"

	"github.com/google/uuid"
)

// Operation names accepted by FailOn.
const (
	OpInsert       = "insert"
	OpQuery        = "query"
	OpLatest       = "latest"
	OpList         = "list"
	OpCategory     = "category"
	OpBudgets      = "budgets"
	OpListOwners   = "owners"
	OpUpsertBudget = "upsert_budget"
)

type Store struct {
	mu       sync.Mutex
	defaults []string // id = index + 1
	custom   []string
	txs      []core.Transaction
	defs     []core.RecurringDefinition
	budgets  map[budgetKey]core.Budget
	failures map[string]func(key any) error
	calls    map[string]int
}

type budgetKey struct {
	owner  int64
	period string
	ref    core.CategoryRef
}

var _ ledger.Store = (*Store)(nil)

// New seeds the default namespace with the given names, deduplicated in
// input order.
func New(defaults ...string) *Store {
	return &Store{
		defaults: dedupe(defaults),
		budgets:  map[budgetKey]core.Budget{},
		failures: map[string]func(any) error{},
		calls:    map[string]int{},
	}
}

// NewFromFiles seeds default categories from base/seed_categories.txt,
// one per line, falling back to a small built-in set.
func NewFromFiles(base string) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = []string{"Food", "Transport", "Housing"}
	}
	return New(cats...)
}

// FailOn makes op return the error produced by fn. fn receives the
// operation's key (transaction, definition id, owner or category ref);
// returning nil lets the call through.
func (s *Store) FailOn(op string, fn func(key any) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = fn
}

// FailAlways makes every call to op fail with a wrapped ledger.ErrUnavailable.
func (s *Store) FailAlways(op string) {
	s.FailOn(op, func(any) error {
		return fmt.Errorf("%s: %w", op, ledger.ErrUnavailable)
	})
}

// Calls reports how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Store) check(op string, key any) error {
	s.calls[op]++
	if fn, ok := s.failures[op]; ok {
		return fn(key)
	}
	return nil
}

// AddCustomCategory registers a per-owner category and returns its reference.
func (s *Store) AddCustomCategory(name string) core.CategoryRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.custom = append(s.custom, name)
	return core.CustomCategory(int64(len(s.custom)))
}

// DefaultRef returns the reference of a seeded default category.
func (s *Store) DefaultRef(name string) (core.CategoryRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.defaults {
		if n == name {
			return core.DefaultCategory(int64(i + 1)), true
		}
	}
	return core.CategoryRef{}, false
}

// Transactions returns a copy of every stored transaction in insertion order.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.txs...)
}

func (s *Store) InsertTransaction(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpInsert, tx); err != nil {
		return "", err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.Timestamp = tx.Timestamp.UTC()
	s.txs = append(s.txs, tx)
	return tx.ID, nil
}

func (s *Store) QueryTransactions(_ context.Context, owner int64, r period.Interval) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpQuery, owner); err != nil {
		return nil, err
	}
	var out []core.Transaction
	for _, tx := range s.txs {
		if tx.Owner == owner && r.Contains(tx.Timestamp) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *Store) SumByKind(ctx context.Context, owner int64, r period.Interval) (core.PeriodTotals, error) {
	txs, err := s.QueryTransactions(ctx, owner, r)
	if err != nil {
		return core.PeriodTotals{}, err
	}
	var totals core.PeriodTotals
	for _, tx := range txs {
		switch tx.Kind {
		case core.Income:
			totals.Income = totals.Income.Add(tx.Amount)
		case core.Expense:
			totals.Expense = totals.Expense.Add(tx.Amount)
		}
	}
	return totals, nil
}

func (s *Store) TransactionTimes(_ context.Context, owner int64) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpQuery, owner); err != nil {
		return nil, err
	}
	var out []time.Time
	for _, tx := range s.txs {
		if tx.Owner == owner {
			out = append(out, tx.Timestamp)
		}
	}
	return out, nil
}

func (s *Store) LatestForDefinition(_ context.Context, definitionID int64) (*core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpLatest, definitionID); err != nil {
		return nil, err
	}
	var latest *core.Transaction
	for i := range s.txs {
		tx := s.txs[i]
		if tx.RecurringID != definitionID {
			continue
		}
		// Ties go to the later insert.
		if latest == nil || !tx.Timestamp.Before(latest.Timestamp) {
			latest = &tx
		}
	}
	return latest, nil
}

func (s *Store) ListRecurringDefinitions(_ context.Context) ([]core.RecurringDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpList, nil); err != nil {
		return nil, err
	}
	return append([]core.RecurringDefinition(nil), s.defs...), nil
}

func (s *Store) CreateRecurringDefinition(_ context.Context, def core.RecurringDefinition) (int64, error) {
	if err := def.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	def.ID = int64(len(s.defs) + 1)
	s.defs = append(s.defs, def)
	return def.ID, nil
}

func (s *Store) CategoryName(_ context.Context, ref core.CategoryRef) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpCategory, ref); err != nil {
		return "", err
	}
	if ref.IsZero() {
		return core.UncategorizedName, nil
	}
	var names []string
	switch ref.Namespace {
	case core.DefaultNamespace:
		names = s.defaults
	case core.CustomNamespace:
		names = s.custom
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnknownNamespace, ref.Namespace)
	}
	if ref.ID < 1 || int(ref.ID) > len(names) {
		return "", fmt.Errorf("category %s: %w", ref, ledger.ErrNotFound)
	}
	return names[ref.ID-1], nil
}

func (s *Store) UpsertBudget(_ context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpUpsertBudget, b.Owner); err != nil {
		return err
	}
	s.budgets[budgetKey{owner: b.Owner, period: b.Period, ref: b.Category}] = b
	return nil
}

func (s *Store) BudgetsForPeriod(_ context.Context, owner int64, monthID string) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpBudgets, owner); err != nil {
		return nil, err
	}
	var out []core.Budget
	for k, b := range s.budgets {
		if k.owner == owner && k.period == monthID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category.Namespace != out[j].Category.Namespace {
			return out[i].Category.Namespace < out[j].Category.Namespace
		}
		return out[i].Category.ID < out[j].Category.ID
	})
	return out, nil
}

func (s *Store) ListOwners(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpListOwners, nil); err != nil {
		return nil, err
	}
	seen := map[int64]struct{}{}
	for _, tx := range s.txs {
		seen[tx.Owner] = struct{}{}
	}
	for _, d := range s.defs {
		seen[d.Owner] = struct{}{}
	}
	for k := range s.budgets {
		seen[k.owner] = struct{}{}
	}
	out := make([]int64, 0, len(seen))
	for o := range seen {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
