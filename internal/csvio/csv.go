// Package csvio implements the CSV interchange format for the transaction
// ledger: `ID,Type,Category,Amount,Description,Date` with localized type
// tags and dd.MM.yyyy HH:mm dates.
package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"time"

	"kopilka/internal/core"
)

const dateLayout = "02.01.2006 15:04"

var header = []string{"ID", "Type", "Category", "Amount", "Description", "Date"}

var typeLabels = map[core.TransactionType]string{
	core.Income:   "Доход",
	core.Expense:  "Расход",
	core.SavingTx: "Накопление",
}

// Export writes the transactions as CSV. Quoting is handled by encoding/csv,
// so descriptions with embedded commas survive a round-trip.
func Export(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, tx := range txs {
		label, ok := typeLabels[tx.Type]
		if !ok {
			continue
		}
		row := []string{
			tx.ID,
			label,
			tx.Category,
			tx.Amount.Decimal(),
			tx.Description,
			tx.OccurredAt.Format(dateLayout),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Import parses the interchange CSV, skipping the header row. Malformed rows
// (too few fields, unknown type, bad amount or date) are skipped silently
// and counted; one bad row never aborts the batch.
func Import(ctx context.Context, r io.Reader) ([]core.Transaction, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var (
		txs     []core.Transaction
		skipped int
		first   = true
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A structurally broken line; skip it like any malformed row.
			skipped++
			continue
		}
		if first {
			first = false
			continue
		}

		tx, ok := parseRow(record)
		if !ok {
			skipped++
			continue
		}
		txs = append(txs, tx)
	}

	if skipped > 0 {
		slog.WarnContext(ctx, "CSV import skipped malformed rows", "skipped", skipped, "imported", len(txs))
	}
	return txs, skipped, nil
}

func parseRow(record []string) (core.Transaction, bool) {
	if len(record) < 6 {
		return core.Transaction{}, false
	}

	txType, ok := parseType(record[1])
	if !ok {
		return core.Transaction{}, false
	}
	cents, err := core.ParseDecimalToCents(record[3])
	if err != nil {
		return core.Transaction{}, false
	}
	occurred, err := time.Parse(dateLayout, record[5])
	if err != nil {
		return core.Transaction{}, false
	}

	tx := core.Transaction{
		ID:          record[0],
		Type:        txType,
		Category:    record[2],
		Amount:      core.Money{Cents: cents},
		Description: record[4],
		OccurredAt:  occurred,
	}
	if tx.Validate() != nil {
		return core.Transaction{}, false
	}
	return tx, true
}

func parseType(label string) (core.TransactionType, bool) {
	for txType, l := range typeLabels {
		if l == label {
			return txType, true
		}
	}
	return "", false
}
