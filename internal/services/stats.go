package services

import (
	"sort"
	"time"

	"kopilka/internal/core"
)

// Period selects the time window for statistics.
type Period string

const (
	PeriodToday   Period = "today"
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodYear    Period = "year"
	PeriodAllTime Period = "all"
)

// CategoryTotal is one row of a category breakdown.
type CategoryTotal struct {
	Category string
	Total    core.Money
}

// BalancePoint is one day of the cumulative balance series.
type BalancePoint struct {
	Day     time.Time
	Balance core.Money
}

// FilterByPeriod keeps transactions inside the calendar-local window ending
// at now. Today is [startOfDay(now), startOfDay(now)+24h); Week runs from
// the configured first day of the week; Month from day 1; Year from Jan 1;
// AllTime applies no filter.
func FilterByPeriod(txs []core.Transaction, period Period, now time.Time, weekStart time.Weekday) []core.Transaction {
	if period == PeriodAllTime {
		return txs
	}

	var from time.Time
	day := startOfDay(now)
	switch period {
	case PeriodToday:
		from = day
		to := day.Add(24 * time.Hour)
		return filterRange(txs, from, to)
	case PeriodWeek:
		offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
		from = day.AddDate(0, 0, -offset)
	case PeriodMonth:
		from = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	case PeriodYear:
		from = time.Date(day.Year(), 1, 1, 0, 0, 0, 0, day.Location())
	default:
		return txs
	}
	// Open-ended: everything from the window start through now.
	return filterRange(txs, from, day.Add(24*time.Hour))
}

// SumByType totals the amounts of transactions matching the type.
func SumByType(txs []core.Transaction, txType core.TransactionType) core.Money {
	var total int64
	for _, tx := range txs {
		if tx.Type == txType {
			total += tx.Amount.Cents
		}
	}
	return core.Money{Cents: total}
}

// Balance is income minus expenses. Saving transactions are transfers into
// savings, not spending, and stay out of the balance.
func Balance(txs []core.Transaction) core.Money {
	income := SumByType(txs, core.Income)
	expense := SumByType(txs, core.Expense)
	return core.Money{Cents: income.Cents - expense.Cents}
}

// CategoryStats groups transactions of one type by category and sums each
// group. Ordering is deterministic: descending total, then category name.
func CategoryStats(txs []core.Transaction, txType core.TransactionType) []CategoryTotal {
	totals := make(map[string]int64)
	for _, tx := range txs {
		if tx.Type == txType {
			totals[tx.Category] += tx.Amount.Cents
		}
	}
	out := make([]CategoryTotal, 0, len(totals))
	for cat, cents := range totals {
		out = append(out, CategoryTotal{Category: cat, Total: core.Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// ExpenseComparison is the percentage change between two period totals.
// A zero previous period yields 0, not infinity.
func ExpenseComparison(current, previous core.Money) float64 {
	if previous.Cents == 0 {
		return 0
	}
	return float64(current.Cents-previous.Cents) / float64(previous.Cents) * 100
}

// BalanceSeries builds the day-by-day cumulative balance over the span of
// the given transactions, one point per calendar day from the earliest
// transaction through now.
func BalanceSeries(txs []core.Transaction, now time.Time) []BalancePoint {
	if len(txs) == 0 {
		return nil
	}

	perDay := make(map[time.Time]int64)
	first := startOfDay(now)
	for _, tx := range txs {
		day := startOfDay(tx.OccurredAt)
		if day.Before(first) {
			first = day
		}
		switch tx.Type {
		case core.Income:
			perDay[day] += tx.Amount.Cents
		case core.Expense:
			perDay[day] -= tx.Amount.Cents
		}
	}

	var points []BalancePoint
	var running int64
	last := startOfDay(now)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		running += perDay[day]
		points = append(points, BalancePoint{Day: day, Balance: core.Money{Cents: running}})
	}
	return points
}

func filterRange(txs []core.Transaction, from, to time.Time) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.OccurredAt.Before(from) && tx.OccurredAt.Before(to) {
			out = append(out, tx)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
