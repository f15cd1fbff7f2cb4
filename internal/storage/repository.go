// Package storage persists transactions, categories and budgets in
// SQLite behind the interfaces the analysis services consume.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spendlens/internal/core"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AddTransaction validates and inserts a transaction, generating an ID
// when the caller did not provide one. The stored ID is returned.
func (r *SQLiteRepository) AddTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validate transaction: %w", err)
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, amount, category, description, tx_date, tx_type)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Amount.String(), tx.Category, tx.Description, tx.Date.String(), string(tx.Type))
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID,
		"category", tx.Category,
		"amount", tx.Amount.String(),
		"type", tx.Type)

	return tx.ID, nil
}

// GetTransaction returns one transaction by ID, ErrNotFound when absent.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, amount, category, description, tx_date, tx_type
		 FROM transactions WHERE id = ?`, id)

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// DeleteTransaction removes one transaction, ErrNotFound when absent.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// ListTransactions returns all transactions dated within [start, end],
// ordered by date then ID so results are stable.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, start, end core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount, category, description, tx_date, tx_type
		 FROM transactions
		 WHERE tx_date >= ? AND tx_date <= ?
		 ORDER BY tx_date, id`,
		start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTransaction(row scannable) (core.Transaction, error) {
	var (
		tx             core.Transaction
		amount, date   string
		transactionTyp string
	)
	if err := row.Scan(&tx.ID, &amount, &tx.Category, &tx.Description, &date, &transactionTyp); err != nil {
		return core.Transaction{}, err
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	tx.Amount = parsed

	tx.Date, err = core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}

	tx.Type = core.TransactionType(transactionTyp)
	return tx, nil
}

// UpsertCategory inserts or updates a category's classification.
func (r *SQLiteRepository) UpsertCategory(ctx context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate category: %w", err)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, cat_type, classification)
		 VALUES (?, ?, ?)
		 ON CONFLICT (name, cat_type) DO UPDATE SET classification = excluded.classification`,
		c.Name, string(c.Type), string(c.Classification))
	if err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}

// ListCategories returns every category, ordered by type then name.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT name, cat_type, classification FROM categories ORDER BY cat_type, name")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		var typ, cls string
		if err := rows.Scan(&c.Name, &typ, &cls); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.TransactionType(typ)
		c.Classification = core.Classification(cls)
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// SaveBudget stores a budget and its per-category limits atomically.
func (r *SQLiteRepository) SaveBudget(ctx context.Context, b core.Budget) (string, error) {
	if err := b.Validate(); err != nil {
		return "", fmt.Errorf("validate budget: %w", err)
	}
	id := uuid.NewString()

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin budget transaction: %w", err)
	}
	defer dbTx.Rollback()

	_, err = dbTx.ExecContext(ctx,
		`INSERT INTO budgets (id, start_date, end_date, total_limit)
		 VALUES (?, ?, ?, ?)`,
		id, b.Start.String(), b.End.String(), b.TotalLimit.String())
	if err != nil {
		return "", fmt.Errorf("insert budget: %w", err)
	}

	for category, limit := range b.CategoryLimits {
		_, err = dbTx.ExecContext(ctx,
			`INSERT INTO budget_category_limits (budget_id, category, limit_amount)
			 VALUES (?, ?, ?)`,
			id, category, limit.String())
		if err != nil {
			return "", fmt.Errorf("insert budget limit for %s: %w", category, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return "", fmt.Errorf("commit budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved",
		"id", id,
		"start", b.Start.String(),
		"end", b.End.String(),
		"category_limits", len(b.CategoryLimits))

	return id, nil
}

// ActiveBudget returns the most recently created budget whose period
// contains the given date, or nil when no budget applies. A missing
// budget is a normal state, not an error.
func (r *SQLiteRepository) ActiveBudget(ctx context.Context, at core.Date) (*core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, start_date, end_date, total_limit
		 FROM budgets
		 WHERE start_date <= ? AND end_date > ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		at.String(), at.String())

	var id, start, end, totalLimit string
	err := row.Scan(&id, &start, &end, &totalLimit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active budget: %w", err)
	}

	b := &core.Budget{CategoryLimits: map[string]decimal.Decimal{}}
	if b.Start, err = core.ParseDate(start); err != nil {
		return nil, fmt.Errorf("parse budget start %q: %w", start, err)
	}
	if b.End, err = core.ParseDate(end); err != nil {
		return nil, fmt.Errorf("parse budget end %q: %w", end, err)
	}
	if b.TotalLimit, err = decimal.NewFromString(totalLimit); err != nil {
		return nil, fmt.Errorf("parse budget limit %q: %w", totalLimit, err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT category, limit_amount FROM budget_category_limits WHERE budget_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("list budget limits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category, limit string
		if err := rows.Scan(&category, &limit); err != nil {
			return nil, fmt.Errorf("scan budget limit: %w", err)
		}
		if b.CategoryLimits[category], err = decimal.NewFromString(limit); err != nil {
			return nil, fmt.Errorf("parse limit %q for %s: %w", limit, category, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list budget limits: %w", err)
	}

	return b, nil
}
