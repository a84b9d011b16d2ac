package services

import (
	"fmt"

	"kopilka/internal/core"
)

// AdviceKind is the typed category of a recommendation. The presentation
// layer may localize on the kind; Message carries the default wording.
type AdviceKind string

const (
	AdviceIncomeSoon AdviceKind = "income_soon"
	AdviceUnstable   AdviceKind = "unstable_income"
	AdviceSaveShare  AdviceKind = "save_share"
	AdviceAddHistory AdviceKind = "add_history"
)

// Advice is one recommendation produced from the income report.
type Advice struct {
	Kind    AdviceKind
	Message string
}

// GenerateIncomeAdvice walks the decision table in priority order and
// returns the first applicable, non-muted advice:
//
//  1. income expected within 3 days
//  2. unstable pay day (stability below 0.5)
//  3. save 10% of the average monthly income
//  4. no history yet
//
// The profile only shapes wording and mutes kinds; it never changes the
// underlying statistics.
func GenerateIncomeAdvice(report IncomeReport, profile core.UserProfile) Advice {
	if report.HasHistory && report.DaysToNext <= 3 && !profile.AdviceMuted(string(AdviceIncomeSoon)) {
		return Advice{
			Kind:    AdviceIncomeSoon,
			Message: incomeSoonMessage(report),
		}
	}

	if report.HasHistory && report.Stability < 0.5 && !profile.AdviceMuted(string(AdviceUnstable)) {
		msg := "Доход приходит нерегулярно — стоит увеличить финансовую подушку."
		if profile.Dependents > 0 || profile.HasTag(core.TagHasDependents) {
			msg = "Доход приходит нерегулярно, а у вас есть иждивенцы — держите подушку минимум на три месяца расходов."
		}
		return Advice{Kind: AdviceUnstable, Message: msg}
	}

	if report.AverageMonthly.Cents > 0 && !profile.AdviceMuted(string(AdviceSaveShare)) {
		// 10% of the average, floored to whole currency units.
		units := report.AverageMonthly.Cents / 10 / 100
		return Advice{
			Kind:    AdviceSaveShare,
			Message: fmt.Sprintf("Попробуйте откладывать 10%% от среднего дохода — около %d в месяц.", units),
		}
	}

	return Advice{
		Kind:    AdviceAddHistory,
		Message: "Добавьте историю доходов, чтобы получать персональные советы.",
	}
}

func incomeSoonMessage(report IncomeReport) string {
	switch report.DaysToNext {
	case 0:
		return fmt.Sprintf("Сегодня ожидается доход «%s» — хороший день, чтобы оплатить счета.", report.MainSource)
	case 1:
		return fmt.Sprintf("Завтра ожидается доход «%s».", report.MainSource)
	default:
		return fmt.Sprintf("Через %d дн. ожидается доход «%s».", report.DaysToNext, report.MainSource)
	}
}
