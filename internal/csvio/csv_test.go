package csvio

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"kopilka/internal/core"
)

func TestExportImportRoundTrip(t *testing.T) {
	original := []core.Transaction{
		{
			ID:          "a1",
			Type:        core.Income,
			Category:    "Зарплата",
			Amount:      core.Money{Cents: 10000050}, // 100000.50
			Description: "Аванс, часть первая",       // embedded comma forces quoting
			OccurredAt:  time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC),
		},
		{
			ID:          "a2",
			Type:        core.Expense,
			Category:    "Продукты",
			Amount:      core.Money{Cents: 154299},
			Description: "Магазин",
			OccurredAt:  time.Date(2024, 3, 11, 18, 5, 0, 0, time.UTC),
		},
		{
			ID:          "a3",
			Type:        core.SavingTx,
			Category:    "Подушка",
			Amount:      core.Money{Cents: 50000},
			Description: "",
			OccurredAt:  time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	if err := Export(&buf, original); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	imported, skipped, err := Import(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(imported) != len(original) {
		t.Fatalf("imported %d transactions, want %d", len(imported), len(original))
	}

	for i, want := range original {
		got := imported[i]
		if got.Type != want.Type || got.Category != want.Category ||
			got.Amount != want.Amount || got.Description != want.Description {
			t.Errorf("transaction %d = %+v, want %+v", i, got, want)
		}
		if !got.OccurredAt.Equal(want.OccurredAt) {
			t.Errorf("transaction %d date = %v, want %v", i, got.OccurredAt, want.OccurredAt)
		}
	}
}

func TestImportSkipsMalformedRows(t *testing.T) {
	input := strings.Join([]string{
		"ID,Type,Category,Amount,Description,Date",
		"a1,Доход,Зарплата,100000.50,ok,10.03.2024 09:30",
		"short,row",                                     // fewer than 6 fields
		"a2,Перевод,Прочее,10.00,unknown type,10.03.2024 09:30", // unknown type tag
		"a3,Расход,Продукты,abc,bad amount,10.03.2024 09:30",
		"a4,Расход,Продукты,10.00,bad date,2024-03-10",
		"a5,Расход,Продукты,15.25,ok,11.03.2024 18:05",
	}, "\n")

	txs, skipped, err := Import(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(txs) != 2 {
		t.Errorf("imported %d, want 2", len(txs))
	}
	if skipped != 4 {
		t.Errorf("skipped = %d, want 4", skipped)
	}
}

func TestImportEmptyInput(t *testing.T) {
	txs, skipped, err := Import(context.Background(), strings.NewReader(""))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(txs) != 0 || skipped != 0 {
		t.Errorf("Import(empty) = %d txs, %d skipped; want 0, 0", len(txs), skipped)
	}
}

func TestExportWritesHeaderAndLocalizedTypes(t *testing.T) {
	var buf bytes.Buffer
	err := Export(&buf, []core.Transaction{{
		ID:         "x",
		Type:       core.Expense,
		Category:   "Кафе",
		Amount:     core.Money{Cents: 1250},
		OccurredAt: time.Date(2024, 1, 2, 13, 0, 0, 0, time.UTC),
	}})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("export produced %d lines, want 2", len(lines))
	}
	if lines[0] != "ID,Type,Category,Amount,Description,Date" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Расход") || !strings.Contains(lines[1], "12.50") {
		t.Errorf("row = %q, want Расход and 12.50", lines[1])
	}
}
