package services

import (
	"testing"
	"time"

	"kopilka/internal/core"
)

func incomeTx(category string, cents int64, year int, month time.Month, day int) core.Transaction {
	return core.Transaction{
		Type:       core.Income,
		Category:   category,
		Amount:     core.Money{Cents: cents},
		OccurredAt: time.Date(year, month, day, 12, 0, 0, 0, time.UTC),
	}
}

func TestAverageMonthlyIncome(t *testing.T) {
	tests := []struct {
		name string
		txs  []core.Transaction
		want int64
	}{
		{name: "empty history", txs: nil, want: 0},
		{
			name: "single month",
			txs: []core.Transaction{
				incomeTx("Зарплата", 100000, 2024, 1, 10),
				incomeTx("Зарплата", 50000, 2024, 1, 25),
			},
			want: 150000,
		},
		{
			name: "two months averaged",
			txs: []core.Transaction{
				incomeTx("Зарплата", 100000, 2024, 1, 10),
				incomeTx("Зарплата", 200000, 2024, 2, 10),
			},
			want: 150000,
		},
		{
			name: "expenses ignored",
			txs: []core.Transaction{
				incomeTx("Зарплата", 100000, 2024, 1, 10),
				{Type: core.Expense, Category: "Продукты", Amount: core.Money{Cents: 99999}, OccurredAt: time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)},
			},
			want: 100000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AverageMonthlyIncome(tt.txs); got.Cents != tt.want {
				t.Errorf("AverageMonthlyIncome() = %d, want %d", got.Cents, tt.want)
			}
		})
	}
}

func TestMainIncomeSource(t *testing.T) {
	txs := []core.Transaction{
		incomeTx("Фриланс", 30000, 2024, 1, 5),
		incomeTx("Зарплата", 100000, 2024, 1, 10),
		incomeTx("Фриланс", 30000, 2024, 2, 5),
	}
	if got := MainIncomeSource(txs); got != "Зарплата" {
		t.Errorf("MainIncomeSource() = %q, want Зарплата", got)
	}

	// Tie goes to the category seen first.
	tied := []core.Transaction{
		incomeTx("Фриланс", 50000, 2024, 1, 5),
		incomeTx("Зарплата", 50000, 2024, 1, 10),
	}
	if got := MainIncomeSource(tied); got != "Фриланс" {
		t.Errorf("MainIncomeSource() tie = %q, want Фриланс", got)
	}

	if got := MainIncomeSource(nil); got != "" {
		t.Errorf("MainIncomeSource(nil) = %q, want empty", got)
	}
}

func TestTypicalIncomeDay(t *testing.T) {
	txs := []core.Transaction{
		incomeTx("Зарплата", 100000, 2024, 1, 10),
		incomeTx("Зарплата", 100000, 2024, 2, 10),
		incomeTx("Аванс", 40000, 2024, 2, 25),
	}
	if got := TypicalIncomeDay(txs); got != 10 {
		t.Errorf("TypicalIncomeDay() = %d, want 10", got)
	}

	// Tie broken by the smallest day.
	tied := []core.Transaction{
		incomeTx("Зарплата", 100000, 2024, 1, 25),
		incomeTx("Зарплата", 100000, 2024, 2, 10),
	}
	if got := TypicalIncomeDay(tied); got != 10 {
		t.Errorf("TypicalIncomeDay() tie = %d, want 10", got)
	}

	if got := TypicalIncomeDay(nil); got != 0 {
		t.Errorf("TypicalIncomeDay(nil) = %d, want 0", got)
	}
}

func TestIncomeStability(t *testing.T) {
	tests := []struct {
		name string
		txs  []core.Transaction
		want float64
	}{
		{name: "empty", txs: nil, want: 0},
		{
			name: "single transaction fully consistent",
			txs:  []core.Transaction{incomeTx("Зарплата", 100000, 2024, 1, 10)},
			want: 1,
		},
		{
			name: "every month on the same day",
			txs: []core.Transaction{
				incomeTx("Зарплата", 100000, 2024, 1, 10),
				incomeTx("Зарплата", 100000, 2024, 2, 10),
				incomeTx("Зарплата", 100000, 2024, 3, 10),
			},
			want: 1,
		},
		{
			name: "half the months on the typical day",
			txs: []core.Transaction{
				incomeTx("Зарплата", 100000, 2024, 1, 10),
				incomeTx("Зарплата", 100000, 2024, 2, 10),
				incomeTx("Разное", 10000, 2024, 3, 3),
				incomeTx("Разное", 10000, 2024, 4, 21),
			},
			want: 0.5,
		},
		{
			name: "clamped at one with twice-monthly pay",
			txs: []core.Transaction{
				incomeTx("Аванс", 40000, 2024, 1, 10),
				incomeTx("Зарплата", 60000, 2024, 1, 10),
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IncomeStability(tt.txs); got != tt.want {
				t.Errorf("IncomeStability() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextIncomeDate(t *testing.T) {
	txs := []core.Transaction{
		incomeTx("Зарплата", 100000, 2024, 1, 10),
		incomeTx("Зарплата", 100000, 2024, 2, 10),
	}

	t.Run("later this month", func(t *testing.T) {
		now := time.Date(2024, 3, 7, 18, 0, 0, 0, time.UTC)
		days, date := NextIncomeDate(txs, now)
		if days != 3 {
			t.Errorf("days = %d, want 3", days)
		}
		want := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
		if !date.Equal(want) {
			t.Errorf("date = %v, want %v", date, want)
		}
	})

	t.Run("today counts as zero days", func(t *testing.T) {
		now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
		days, _ := NextIncomeDate(txs, now)
		if days != 0 {
			t.Errorf("days = %d, want 0", days)
		}
	})

	t.Run("already passed rolls to next month", func(t *testing.T) {
		now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
		days, date := NextIncomeDate(txs, now)
		want := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
		if !date.Equal(want) {
			t.Errorf("date = %v, want %v", date, want)
		}
		if days != 26 {
			t.Errorf("days = %d, want 26", days)
		}
	})

	t.Run("day clamped to short month", func(t *testing.T) {
		endOfMonth := []core.Transaction{
			incomeTx("Зарплата", 100000, 2024, 1, 31),
		}
		now := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
		_, date := NextIncomeDate(endOfMonth, now)
		want := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
		if !date.Equal(want) {
			t.Errorf("date = %v, want %v", date, want)
		}
	})
}

func TestIncomeDays(t *testing.T) {
	txs := []core.Transaction{
		incomeTx("Зарплата", 100000, 2024, 1, 25),
		incomeTx("Аванс", 40000, 2024, 1, 10),
		incomeTx("Зарплата", 100000, 2024, 2, 25),
	}
	got := IncomeDays(txs)
	want := []int{10, 25}
	if len(got) != len(want) {
		t.Fatalf("IncomeDays() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IncomeDays()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestAnalyzeIncome_Empty(t *testing.T) {
	report := AnalyzeIncome(nil, time.Now())
	if report.HasHistory {
		t.Error("HasHistory = true for empty input")
	}
	if report.AverageMonthly.Cents != 0 || report.Stability != 0 || report.TypicalDay != 0 {
		t.Errorf("empty report not zero-valued: %+v", report)
	}
}
