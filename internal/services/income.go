package services

import (
	"sort"
	"time"

	"kopilka/internal/core"
)

// IncomeReport holds the statistics derived from income history. All fields
// are zero-valued when the history is empty; nothing here divides by zero.
type IncomeReport struct {
	AverageMonthly core.Money
	MainSource     string
	TypicalDay     int
	Stability      float64
	Days           []int
	DaysToNext     int
	NextDate       time.Time
	HasHistory     bool
}

// AnalyzeIncome computes the full income report in one pass over the
// history. Non-income transactions are ignored, so callers may pass an
// unfiltered snapshot.
func AnalyzeIncome(txs []core.Transaction, now time.Time) IncomeReport {
	incomes := onlyIncome(txs)
	report := IncomeReport{
		AverageMonthly: AverageMonthlyIncome(incomes),
		MainSource:     MainIncomeSource(incomes),
		TypicalDay:     TypicalIncomeDay(incomes),
		Stability:      IncomeStability(incomes),
		Days:           IncomeDays(incomes),
		HasHistory:     len(incomes) > 0,
	}
	if report.HasHistory {
		report.DaysToNext, report.NextDate = NextIncomeDate(incomes, now)
	}
	return report
}

// AverageMonthlyIncome is the total income divided by the number of distinct
// (year, month) periods present in the history, zero for empty history.
func AverageMonthlyIncome(txs []core.Transaction) core.Money {
	incomes := onlyIncome(txs)
	if len(incomes) == 0 {
		return core.Money{}
	}
	var total int64
	months := make(map[int]struct{})
	for _, tx := range incomes {
		total += tx.Amount.Cents
		months[monthKey(tx.OccurredAt)] = struct{}{}
	}
	return core.Money{Cents: total / int64(len(months))}
}

// MainIncomeSource is the category with the highest cumulative amount.
// Ties go to the category encountered first in the history.
func MainIncomeSource(txs []core.Transaction) string {
	totals := make(map[string]int64)
	var order []string
	for _, tx := range onlyIncome(txs) {
		if _, seen := totals[tx.Category]; !seen {
			order = append(order, tx.Category)
		}
		totals[tx.Category] += tx.Amount.Cents
	}
	best := ""
	var bestTotal int64 = -1
	for _, cat := range order {
		if totals[cat] > bestTotal {
			best = cat
			bestTotal = totals[cat]
		}
	}
	return best
}

// TypicalIncomeDay is the most frequent day-of-month among income dates,
// smallest day winning ties. Zero for empty history.
func TypicalIncomeDay(txs []core.Transaction) int {
	counts := make(map[int]int)
	for _, tx := range onlyIncome(txs) {
		counts[tx.OccurredAt.Day()]++
	}
	best, bestCount := 0, 0
	for day := 1; day <= 31; day++ {
		if counts[day] > bestCount {
			best = day
			bestCount = counts[day]
		}
	}
	return best
}

// IncomeStability measures pay-day regularity: the share of income
// transactions landing on the typical day relative to the number of distinct
// months with any income, clamped to [0,1]. A single transaction is fully
// consistent with itself and scores 1.
func IncomeStability(txs []core.Transaction) float64 {
	incomes := onlyIncome(txs)
	if len(incomes) == 0 {
		return 0
	}
	typical := TypicalIncomeDay(incomes)
	months := make(map[int]struct{})
	onTypical := 0
	for _, tx := range incomes {
		months[monthKey(tx.OccurredAt)] = struct{}{}
		if tx.OccurredAt.Day() == typical {
			onTypical++
		}
	}
	ratio := float64(onTypical) / float64(len(months))
	if ratio > 1 {
		return 1
	}
	return ratio
}

// NextIncomeDate projects forward from now to the next occurrence of the
// typical income day, rolling to next month (day clamped) when this month's
// occurrence already passed. Returns the day count and the absolute date.
func NextIncomeDate(txs []core.Transaction, now time.Time) (int, time.Time) {
	typical := TypicalIncomeDay(txs)
	if typical == 0 {
		return 0, time.Time{}
	}
	today := startOfDay(now)
	year, month := today.Year(), today.Month()
	day := EffectiveDueDay(typical, year, month)
	next := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	if next.Before(today) {
		month++
		if month > time.December {
			month = time.January
			year++
		}
		day = EffectiveDueDay(typical, year, month)
		next = time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	}
	days := int(next.Sub(today).Hours() / 24)
	return days, next
}

// IncomeDays lists the distinct day-of-month values observed, ascending.
func IncomeDays(txs []core.Transaction) []int {
	seen := make(map[int]struct{})
	for _, tx := range onlyIncome(txs) {
		seen[tx.OccurredAt.Day()] = struct{}{}
	}
	days := make([]int, 0, len(seen))
	for day := range seen {
		days = append(days, day)
	}
	sort.Ints(days)
	return days
}

func onlyIncome(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Type == core.Income {
			out = append(out, tx)
		}
	}
	return out
}

func monthKey(t time.Time) int {
	return t.Year()*12 + int(t.Month())
}
