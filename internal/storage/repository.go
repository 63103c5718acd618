package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"expentrax/internal/core"
	"expentrax/internal/ledger"
	"expentrax/internal/period"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const busyTimeoutMillis = 5000

// SQLiteRepository is the durable ledger.Store.
type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func dsn(dbPath string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", dbPath, busyTimeoutMillis)
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY between
	// the scheduler and the admin CLI sharing the pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ledger.ErrUnavailable, err)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func refColumns(ref core.CategoryRef) (string, int64) {
	if ref.IsZero() {
		return "", 0
	}
	return string(ref.Namespace), ref.ID
}

func refFromColumns(ns string, id int64) (core.CategoryRef, error) {
	namespace, err := core.ParseNamespace(ns)
	if err != nil {
		return core.CategoryRef{}, err
	}
	if namespace == "" {
		return core.CategoryRef{}, nil
	}
	return core.CategoryRef{Namespace: namespace, ID: id}, nil
}

// InsertTransaction implements ledger.TransactionWriter
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	ns, catID := refColumns(tx.Category)
	var recurring sql.NullInt64
	if tx.RecurringID != 0 {
		recurring = sql.NullInt64{Int64: tx.RecurringID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, insertTransactionSQL,
		tx.ID, tx.Owner, string(tx.Kind), tx.Amount.Cents(), ns, catID,
		tx.Description, toMillis(tx.Timestamp), recurring)
	if err != nil {
		return "", unavailable("insert transaction", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"owner", tx.Owner,
		"kind", tx.Kind,
		"amount_cents", tx.Amount.Cents(),
		"recurring_id", tx.RecurringID)

	return tx.ID, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		tx        core.Transaction
		kind      string
		cents     int64
		ns        string
		catID     int64
		at        int64
		recurring sql.NullInt64
	)
	if err := s.Scan(&tx.ID, &tx.Owner, &kind, &cents, &ns, &catID, &tx.Description, &at, &recurring); err != nil {
		return core.Transaction{}, err
	}
	ref, err := refFromColumns(ns, catID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	tx.Kind = core.Kind(kind)
	tx.Amount = core.MoneyFromCents(cents)
	tx.Category = ref
	tx.Timestamp = fromMillis(at)
	tx.RecurringID = recurring.Int64
	return tx, nil
}

// QueryTransactions implements ledger.TransactionReader
func (r *SQLiteRepository) QueryTransactions(ctx context.Context, owner int64, in period.Interval) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, queryTransactionsSQL, owner, toMillis(in.Start), toMillis(in.End))
	if err != nil {
		return nil, unavailable("query transactions", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, unavailable("scan transaction", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("query transactions", err)
	}
	return out, nil
}

// SumByKind implements ledger.TransactionReader
func (r *SQLiteRepository) SumByKind(ctx context.Context, owner int64, in period.Interval) (core.PeriodTotals, error) {
	var income, expense int64
	err := r.db.QueryRowContext(ctx, sumByKindSQL, owner, toMillis(in.Start), toMillis(in.End)).Scan(&income, &expense)
	if err != nil {
		return core.PeriodTotals{}, unavailable("sum transactions", err)
	}
	return core.PeriodTotals{
		Income:  core.MoneyFromCents(income),
		Expense: core.MoneyFromCents(expense),
	}, nil
}

// TransactionTimes implements ledger.TransactionReader
func (r *SQLiteRepository) TransactionTimes(ctx context.Context, owner int64) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, transactionTimesSQL, owner)
	if err != nil {
		return nil, unavailable("list transaction times", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return nil, unavailable("scan transaction time", err)
		}
		out = append(out, fromMillis(ms))
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list transaction times", err)
	}
	return out, nil
}

// LatestForDefinition implements ledger.OccurrenceFinder
func (r *SQLiteRepository) LatestForDefinition(ctx context.Context, definitionID int64) (*core.Transaction, error) {
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, latestForDefinitionSQL, definitionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("latest occurrence", err)
	}
	return &tx, nil
}

// ListRecurringDefinitions implements ledger.DefinitionStore
func (r *SQLiteRepository) ListRecurringDefinitions(ctx context.Context) ([]core.RecurringDefinition, error) {
	rows, err := r.db.QueryContext(ctx, listDefinitionsSQL)
	if err != nil {
		return nil, unavailable("list recurring definitions", err)
	}
	defer rows.Close()

	var out []core.RecurringDefinition
	for rows.Next() {
		var (
			def       core.RecurringDefinition
			kind      string
			cents     int64
			ns        string
			catID     int64
			frequency string
			start     string
			end       sql.NullString
		)
		if err := rows.Scan(&def.ID, &def.Owner, &kind, &cents, &def.Description, &ns, &catID, &frequency, &start, &end); err != nil {
			return nil, unavailable("scan recurring definition", err)
		}
		if def.Category, err = refFromColumns(ns, catID); err != nil {
			return nil, fmt.Errorf("recurring definition %d: %w", def.ID, err)
		}
		if def.StartDate, err = core.ParseDate(start); err != nil {
			return nil, fmt.Errorf("recurring definition %d: %w", def.ID, err)
		}
		if end.Valid && end.String != "" {
			if def.EndDate, err = core.ParseDate(end.String); err != nil {
				return nil, fmt.Errorf("recurring definition %d: %w", def.ID, err)
			}
		}
		def.Kind = core.Kind(kind)
		def.Amount = core.MoneyFromCents(cents)
		def.Frequency = core.Frequency(frequency)
		out = append(out, def)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list recurring definitions", err)
	}
	return out, nil
}

// CreateRecurringDefinition implements ledger.DefinitionStore
func (r *SQLiteRepository) CreateRecurringDefinition(ctx context.Context, def core.RecurringDefinition) (int64, error) {
	if err := def.Validate(); err != nil {
		return 0, err
	}
	ns, catID := refColumns(def.Category)
	var end sql.NullString
	if !def.EndDate.IsEmpty() {
		end = sql.NullString{String: def.EndDate.String(), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, insertDefinitionSQL,
		def.Owner, string(def.Kind), def.Amount.Cents(), def.Description, ns, catID,
		string(def.Frequency), def.StartDate.String(), end)
	if err != nil {
		return 0, unavailable("create recurring definition", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, unavailable("create recurring definition", err)
	}

	slog.InfoContext(ctx, "Recurring definition created",
		"id", id,
		"owner", def.Owner,
		"frequency", def.Frequency,
		"start_date", def.StartDate.String())

	return id, nil
}

// CategoryName implements ledger.CategoryNamer
func (r *SQLiteRepository) CategoryName(ctx context.Context, ref core.CategoryRef) (string, error) {
	if ref.IsZero() {
		return core.UncategorizedName, nil
	}
	var query string
	switch ref.Namespace {
	case core.DefaultNamespace:
		query = defaultCategoryNameSQL
	case core.CustomNamespace:
		query = customCategoryNameSQL
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnknownNamespace, ref.Namespace)
	}

	var name string
	err := r.db.QueryRowContext(ctx, query, ref.ID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("category %s: %w", ref, ledger.ErrNotFound)
	}
	if err != nil {
		return "", unavailable("category name", err)
	}
	return name, nil
}

// DefaultCategoryByName looks up a seeded category.
func (r *SQLiteRepository) DefaultCategoryByName(ctx context.Context, name string, kind core.Kind) (core.CategoryRef, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, defaultCategoryByNameSQL, name, string(kind)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CategoryRef{}, fmt.Errorf("default category %q: %w", name, ledger.ErrNotFound)
	}
	if err != nil {
		return core.CategoryRef{}, unavailable("default category", err)
	}
	return core.DefaultCategory(id), nil
}

// CreateCustomCategory adds a per-owner category, returning the existing
// reference when the owner already has one with that name and kind.
func (r *SQLiteRepository) CreateCustomCategory(ctx context.Context, owner int64, name string, kind core.Kind) (core.CategoryRef, error) {
	if owner == 0 {
		return core.CategoryRef{}, core.ErrInvalidOwner
	}
	if err := kind.Validate(); err != nil {
		return core.CategoryRef{}, err
	}
	var id int64
	if err := r.db.QueryRowContext(ctx, insertCustomCategorySQL, owner, name, string(kind)).Scan(&id); err != nil {
		return core.CategoryRef{}, unavailable("create custom category", err)
	}
	return core.CustomCategory(id), nil
}

// UpsertBudget implements ledger.BudgetStore
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	ns, catID := refColumns(b.Category)
	if _, err := r.db.ExecContext(ctx, upsertBudgetSQL, b.Owner, b.Period, ns, catID, b.Amount.Cents()); err != nil {
		return unavailable("upsert budget", err)
	}
	slog.InfoContext(ctx, "Budget saved",
		"owner", b.Owner,
		"period", b.Period,
		"category", b.Category.String(),
		"amount", b.Amount.String())
	return nil
}

// BudgetsForPeriod implements ledger.BudgetStore
func (r *SQLiteRepository) BudgetsForPeriod(ctx context.Context, owner int64, monthID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, budgetsForPeriodSQL, owner, monthID)
	if err != nil {
		return nil, unavailable("budgets for period", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var (
			b     core.Budget
			ns    string
			catID int64
			cents int64
		)
		if err := rows.Scan(&b.Owner, &b.Period, &ns, &catID, &cents); err != nil {
			return nil, unavailable("scan budget", err)
		}
		if b.Category, err = refFromColumns(ns, catID); err != nil {
			return nil, err
		}
		b.Amount = core.MoneyFromCents(cents)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("budgets for period", err)
	}
	return out, nil
}

// ListOwners implements ledger.OwnerLister
func (r *SQLiteRepository) ListOwners(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, listOwnersSQL)
	if err != nil {
		return nil, unavailable("list owners", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var owner int64
		if err := rows.Scan(&owner); err != nil {
			return nil, unavailable("scan owner", err)
		}
		out = append(out, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list owners", err)
	}
	return out, nil
}
