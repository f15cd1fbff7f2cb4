package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "spendlens_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func sampleTransaction(t *testing.T, amt string, date core.Date) core.Transaction {
	t.Helper()
	return core.Transaction{
		Amount:      amount(t, amt),
		Category:    "Groceries",
		Description: "weekly shop",
		Date:        date,
		Type:        core.Expense,
	}
}

func TestAddAndGetTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	in := sampleTransaction(t, "42.50", core.NewDate(2025, 3, 10))
	id, err := repo.AddTransaction(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := repo.GetTransaction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.True(t, got.Amount.Equal(in.Amount))
	assert.Equal(t, in.Category, got.Category)
	assert.Equal(t, in.Description, got.Description)
	assert.Equal(t, in.Date.String(), got.Date.String())
	assert.Equal(t, core.Expense, got.Type)
}

func TestAddTransactionRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	bad := sampleTransaction(t, "42.50", core.NewDate(2025, 3, 10))
	bad.Description = "  "
	_, err := repo.AddTransaction(ctx, bad)
	assert.ErrorIs(t, err, core.ErrEmptyDescription)

	negative := sampleTransaction(t, "42.50", core.NewDate(2025, 3, 10))
	negative.Amount = amount(t, "-5")
	_, err = repo.AddTransaction(ctx, negative)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestGetTransactionNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetTransaction(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.AddTransaction(ctx, sampleTransaction(t, "10", core.NewDate(2025, 3, 10)))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteTransaction(ctx, id))
	assert.ErrorIs(t, repo.DeleteTransaction(ctx, id), ErrNotFound)

	_, err = repo.GetTransaction(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTransactionsRangeAndOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	dates := []core.Date{
		core.NewDate(2025, 2, 20),
		core.NewDate(2025, 1, 5),
		core.NewDate(2025, 3, 1),
		core.NewDate(2024, 12, 31),
	}
	for _, d := range dates {
		_, err := repo.AddTransaction(ctx, sampleTransaction(t, "10", d))
		require.NoError(t, err)
	}

	got, err := repo.ListTransactions(ctx, core.NewDate(2025, 1, 1), core.NewDate(2025, 2, 28))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2025-01-05", got[0].Date.String())
	assert.Equal(t, "2025-02-20", got[1].Date.String())
}

func TestListCategoriesIncludesDefaults(t *testing.T) {
	repo := newTestRepo(t)

	cats, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, cats)

	byKey := map[string]core.Category{}
	for _, c := range cats {
		byKey[c.Name+"/"+string(c.Type)] = c
	}
	assert.Equal(t, core.Need, byKey["Housing/expense"].Classification)
	assert.Equal(t, core.Want, byKey["Dining Out/expense"].Classification)
	assert.Equal(t, core.Saving, byKey["Investments/expense"].Classification)
	assert.Equal(t, core.Classification(""), byKey["Salary/income"].Classification)
}

func TestUpsertCategoryUpdatesClassification(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertCategory(ctx, core.Category{
		Name: "Miscellaneous", Type: core.Expense, Classification: core.Want,
	}))

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	for _, c := range cats {
		if c.Name == "Miscellaneous" && c.Type == core.Expense {
			assert.Equal(t, core.Want, c.Classification)
			return
		}
	}
	t.Fatal("Miscellaneous category not found")
}

func TestSaveAndActiveBudget(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	b := core.Budget{
		Start:      core.NewDate(2025, 1, 1),
		End:        core.NewDate(2025, 7, 1),
		TotalLimit: amount(t, "2500"),
		CategoryLimits: map[string]decimal.Decimal{
			"Groceries":  amount(t, "400"),
			"Dining Out": amount(t, "200"),
		},
	}
	id, err := repo.SaveBudget(ctx, b)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := repo.ActiveBudget(ctx, core.NewDate(2025, 3, 15))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.TotalLimit.Equal(b.TotalLimit))
	require.Len(t, got.CategoryLimits, 2)
	assert.True(t, got.CategoryLimits["Groceries"].Equal(amount(t, "400")))

	// The period is half-open: the end date itself is outside.
	got, err = repo.ActiveBudget(ctx, core.NewDate(2025, 7, 1))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestActiveBudgetNoneIsNotAnError(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.ActiveBudget(context.Background(), core.NewDate(2025, 3, 15))
	require.NoError(t, err)
	assert.Nil(t, got)
}
