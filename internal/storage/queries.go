package storage

const (
	insertTransactionSQL = `
INSERT INTO transactions (id, owner, kind, amount_cents, category_type, category_id, description, occurred_at, recurring_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	transactionColumns = `id, owner, kind, amount_cents, category_type, category_id, description, occurred_at, recurring_id`

	queryTransactionsSQL = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE owner = ? AND occurred_at >= ? AND occurred_at < ?
ORDER BY occurred_at ASC, rowid ASC`

	sumByKindSQL = `
SELECT
    COALESCE(SUM(CASE WHEN kind = 'income' THEN amount_cents END), 0),
    COALESCE(SUM(CASE WHEN kind = 'expense' THEN amount_cents END), 0)
FROM transactions
WHERE owner = ? AND occurred_at >= ? AND occurred_at < ?`

	transactionTimesSQL = `
SELECT DISTINCT occurred_at FROM transactions WHERE owner = ? ORDER BY occurred_at DESC`

	latestForDefinitionSQL = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE recurring_id = ?
ORDER BY occurred_at DESC, rowid DESC
LIMIT 1`

	listDefinitionsSQL = `
SELECT id, owner, kind, amount_cents, description, category_type, category_id, frequency, start_date, end_date
FROM recurring_definitions
ORDER BY id ASC`

	insertDefinitionSQL = `
INSERT INTO recurring_definitions (owner, kind, amount_cents, description, category_type, category_id, frequency, start_date, end_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	defaultCategoryNameSQL = `SELECT name FROM default_categories WHERE id = ?`
	customCategoryNameSQL  = `SELECT name FROM custom_categories WHERE id = ?`

	defaultCategoryByNameSQL = `SELECT id FROM default_categories WHERE name = ? AND kind = ?`

	insertCustomCategorySQL = `
INSERT INTO custom_categories (owner, name, kind) VALUES (?, ?, ?)
ON CONFLICT (owner, name, kind) DO UPDATE SET name = excluded.name
RETURNING id`

	upsertBudgetSQL = `
INSERT INTO budgets (owner, period, category_type, category_id, amount_cents)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (owner, period, category_type, category_id)
DO UPDATE SET amount_cents = excluded.amount_cents, updated_at = CURRENT_TIMESTAMP`

	budgetsForPeriodSQL = `
SELECT owner, period, category_type, category_id, amount_cents
FROM budgets
WHERE owner = ? AND period = ?
ORDER BY category_type ASC, category_id ASC`

	listOwnersSQL = `
SELECT owner FROM transactions
UNION
SELECT owner FROM recurring_definitions
UNION
SELECT owner FROM budgets
ORDER BY owner ASC`
)
