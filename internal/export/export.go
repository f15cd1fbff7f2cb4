// Package export serializes transactions and reference data to CSV and
// JSON for use outside the service.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"spendlens/internal/core"
)

var ErrNoData = errors.New("no data to export")

var transactionHeader = []string{"transaction_id", "amount", "category", "description", "date", "type"}

// WriteTransactionsCSV writes transactions as CSV with a header row.
// Amounts are written as plain decimal strings, dates as YYYY-MM-DD.
func WriteTransactionsCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(transactionHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range txs {
		record := []string{
			tx.ID,
			tx.Amount.String(),
			tx.Category,
			tx.Description,
			tx.Date.Format(core.DateLayout),
			string(tx.Type),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadTransactionsCSV parses transactions from CSV in the format written
// by WriteTransactionsCSV. Malformed rows are skipped and counted; the
// caller decides whether a non-zero skip count is acceptable.
func ReadTransactionsCSV(r io.Reader) (txs []core.Transaction, skipped int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv: %w", err)
	}

	for i, row := range rows {
		if i == 0 && isHeaderRow(row) {
			continue
		}
		if len(row) < 6 {
			skipped++
			continue
		}

		amount, aerr := decimal.NewFromString(strings.TrimSpace(row[1]))
		date, derr := core.ParseDate(strings.TrimSpace(row[4]))
		txType := core.TransactionType(strings.ToLower(strings.TrimSpace(row[5])))
		if aerr != nil || derr != nil || !txType.Valid() {
			skipped++
			continue
		}

		tx := core.Transaction{
			ID:          strings.TrimSpace(row[0]),
			Amount:      amount,
			Category:    strings.TrimSpace(row[2]),
			Description: strings.TrimSpace(row[3]),
			Date:        date,
			Type:        txType,
		}
		if err := tx.Validate(); err != nil {
			skipped++
			continue
		}
		txs = append(txs, tx)
	}

	return txs, skipped, nil
}

func isHeaderRow(row []string) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "transaction_id")
}

// Snapshot bundles exportable data sets. Empty slices are omitted from
// the JSON document.
type Snapshot struct {
	Transactions []transactionRecord `json:"transactions,omitempty"`
	Categories   []categoryRecord    `json:"categories,omitempty"`
	Budgets      []budgetRecord      `json:"budgets,omitempty"`
}

type transactionRecord struct {
	ID          string    `json:"transaction_id"`
	Amount      string    `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Date        core.Date `json:"date"`
	Type        string    `json:"type"`
}

type categoryRecord struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Classification string `json:"classification,omitempty"`
}

type budgetRecord struct {
	Start          core.Date         `json:"start_date"`
	End            core.Date         `json:"end_date"`
	TotalLimit     string            `json:"total_limit"`
	CategoryLimits map[string]string `json:"category_limits,omitempty"`
}

// WriteJSON writes the given data sets as a single indented JSON
// document. At least one set must be non-empty.
func WriteJSON(w io.Writer, txs []core.Transaction, cats []core.Category, budgets []core.Budget) error {
	if len(txs) == 0 && len(cats) == 0 && len(budgets) == 0 {
		return ErrNoData
	}

	snap := Snapshot{}
	for _, tx := range txs {
		snap.Transactions = append(snap.Transactions, transactionRecord{
			ID:          tx.ID,
			Amount:      tx.Amount.String(),
			Category:    tx.Category,
			Description: tx.Description,
			Date:        tx.Date,
			Type:        string(tx.Type),
		})
	}
	for _, c := range cats {
		snap.Categories = append(snap.Categories, categoryRecord{
			Name:           c.Name,
			Type:           string(c.Type),
			Classification: string(c.Classification),
		})
	}
	for _, b := range budgets {
		rec := budgetRecord{
			Start:      b.Start,
			End:        b.End,
			TotalLimit: b.TotalLimit.String(),
		}
		if len(b.CategoryLimits) > 0 {
			rec.CategoryLimits = make(map[string]string, len(b.CategoryLimits))
			for name, limit := range b.CategoryLimits {
				rec.CategoryLimits[name] = limit.String()
			}
		}
		snap.Budgets = append(snap.Budgets, rec)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
