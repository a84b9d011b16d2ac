package http

import (
	"encoding/json"
	"net/http"
	"time"

	"kopilka/internal/core"
	"kopilka/internal/services"
)

// cachedStats serves a statistics payload through the LRU cache. The build
// function runs only on a miss; results are keyed by path and query so every
// period variant caches independently.
func (s *Server) cachedStats(w http.ResponseWriter, r *http.Request, build func() (any, error)) {
	key := "stats:" + r.URL.Path + "?" + r.URL.RawQuery

	if body, found := s.statsCache.Get(key); found {
		writeRawJSON(w, http.StatusOK, body)
		return
	}

	payload, err := build()
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.statsCache.Set(key, body)
	writeRawJSON(w, http.StatusOK, body)
}

func periodFromQuery(r *http.Request) services.Period {
	if p := r.URL.Query().Get("period"); p != "" {
		return services.Period(p)
	}
	return services.PeriodMonth
}

type summaryJSON struct {
	Period  string `json:"period"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Saving  string `json:"saving"`
	Balance string `json:"balance"`
}

func (s *Server) handleStatsSummary(w http.ResponseWriter, r *http.Request) {
	period := periodFromQuery(r)
	s.cachedStats(w, r, func() (any, error) {
		txs, err := s.store.ListTransactions(r.Context())
		if err != nil {
			return nil, err
		}
		filtered := services.FilterByPeriod(txs, period, time.Now(), s.weekStart)

		return summaryJSON{
			Period:  string(period),
			Income:  services.SumByType(filtered, core.Income).Decimal(),
			Expense: services.SumByType(filtered, core.Expense).Decimal(),
			Saving:  services.SumByType(filtered, core.SavingTx).Decimal(),
			Balance: services.Balance(filtered).Decimal(),
		}, nil
	})
}

type categoryJSON struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

func (s *Server) handleStatsCategories(w http.ResponseWriter, r *http.Request) {
	period := periodFromQuery(r)
	txType := core.Expense
	if t := r.URL.Query().Get("type"); t != "" {
		txType = core.TransactionType(t)
	}

	s.cachedStats(w, r, func() (any, error) {
		txs, err := s.store.ListTransactions(r.Context())
		if err != nil {
			return nil, err
		}
		filtered := services.FilterByPeriod(txs, period, time.Now(), s.weekStart)

		rows := services.CategoryStats(filtered, txType)
		out := make([]categoryJSON, 0, len(rows))
		for _, row := range rows {
			out = append(out, categoryJSON{Category: row.Category, Total: row.Total.Decimal()})
		}
		return out, nil
	})
}

type seriesPointJSON struct {
	Date    string `json:"date"`
	Balance string `json:"balance"`
}

func (s *Server) handleStatsSeries(w http.ResponseWriter, r *http.Request) {
	s.cachedStats(w, r, func() (any, error) {
		txs, err := s.store.ListTransactions(r.Context())
		if err != nil {
			return nil, err
		}

		points := services.BalanceSeries(txs, time.Now())
		out := make([]seriesPointJSON, 0, len(points))
		for _, p := range points {
			out = append(out, seriesPointJSON{
				Date:    p.Day.Format("2006-01-02"),
				Balance: p.Balance.Decimal(),
			})
		}
		return out, nil
	})
}

type comparisonJSON struct {
	CurrentMonth  string  `json:"current_month"`
	PreviousMonth string  `json:"previous_month"`
	ChangePercent float64 `json:"change_percent"`
}

// handleStatsComparison compares this month's expenses against the full
// previous calendar month.
func (s *Server) handleStatsComparison(w http.ResponseWriter, r *http.Request) {
	s.cachedStats(w, r, func() (any, error) {
		txs, err := s.store.ListTransactions(r.Context())
		if err != nil {
			return nil, err
		}

		now := time.Now()
		current := services.SumByType(services.FilterByPeriod(txs, services.PeriodMonth, now, s.weekStart), core.Expense)
		previous := monthExpenses(txs, now.AddDate(0, 0, -now.Day()))

		return comparisonJSON{
			CurrentMonth:  current.Decimal(),
			PreviousMonth: previous.Decimal(),
			ChangePercent: services.ExpenseComparison(current, previous),
		}, nil
	})
}

// monthExpenses totals expenses in the calendar month containing ref.
func monthExpenses(txs []core.Transaction, ref time.Time) core.Money {
	var total int64
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		if tx.OccurredAt.Year() == ref.Year() && tx.OccurredAt.Month() == ref.Month() {
			total += tx.Amount.Cents
		}
	}
	return core.Money{Cents: total}
}

type incomeReportJSON struct {
	AverageMonthly string  `json:"average_monthly"`
	MainSource     string  `json:"main_source,omitempty"`
	TypicalDay     int     `json:"typical_day"`
	Stability      float64 `json:"stability"`
	Days           []int   `json:"days"`
	DaysToNext     int     `json:"days_to_next"`
	NextDate       string  `json:"next_date,omitempty"`
	HasHistory     bool    `json:"has_history"`
}

func (s *Server) handleIncomeReport(w http.ResponseWriter, r *http.Request) {
	s.cachedStats(w, r, func() (any, error) {
		txs, err := s.store.ListTransactions(r.Context())
		if err != nil {
			return nil, err
		}

		report := services.AnalyzeIncome(txs, time.Now())
		out := incomeReportJSON{
			AverageMonthly: report.AverageMonthly.Decimal(),
			MainSource:     report.MainSource,
			TypicalDay:     report.TypicalDay,
			Stability:      report.Stability,
			Days:           report.Days,
			DaysToNext:     report.DaysToNext,
			HasHistory:     report.HasHistory,
		}
		if report.HasHistory {
			out.NextDate = report.NextDate.Format("2006-01-02")
		}
		if out.Days == nil {
			out.Days = []int{}
		}
		return out, nil
	})
}

type adviceJSON struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// handleAdvice derives the single highest-priority recommendation. Not
// cached: it depends on the profile as well as the ledger.
func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	txs, err := s.store.ListTransactions(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	profile, err := s.store.GetProfile(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	report := services.AnalyzeIncome(txs, time.Now())
	advice := services.GenerateIncomeAdvice(report, profile)

	writeJSON(w, http.StatusOK, adviceJSON{
		Kind:    string(advice.Kind),
		Message: advice.Message,
	})
}
