// Package services provides the derivation engines: recurring payment
// classification, income analysis and period statistics. Everything here is
// a pure function over store snapshots; the only mutation is MarkAsPaid,
// which delegates a single atomic update to the store.
package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"kopilka/internal/core"
)

// PaymentStatus is the position of a payment relative to a reference day.
// It is re-derived on every check, never persisted.
type PaymentStatus string

const (
	StatusUpcoming    PaymentStatus = "upcoming"
	StatusDueToday    PaymentStatus = "due_today"
	StatusDueTomorrow PaymentStatus = "due_tomorrow"
	StatusOverdue     PaymentStatus = "overdue"
	StatusPaid        PaymentStatus = "paid"
)

// Classification buckets active, unpaid payments for a given day.
// Due holds payments due today or tomorrow, Overdue those past their day.
// Both lists are sorted by DayOfMonth ascending for calendar display.
type Classification struct {
	Due     []core.RegularPayment
	Overdue []core.RegularPayment
}

// PaymentStore is the slice of the persistent store the payment engine needs.
type PaymentStore interface {
	GetPayment(ctx context.Context, id string) (core.RegularPayment, error)
	MarkPaymentPaid(ctx context.Context, id string, paidAt, nextDue time.Time) error
}

// IsPaidThisMonth reports whether the payment was marked paid in the calendar
// month of now. The comparison uses month and year fields, not elapsed days:
// a payment paid on the 1st stays paid for the whole month.
func IsPaidThisMonth(p core.RegularPayment, now time.Time) bool {
	if p.LastPaidAt == nil {
		return false
	}
	return p.LastPaidAt.Year() == now.Year() && p.LastPaidAt.Month() == now.Month()
}

// EffectiveDueDay clamps a payment's day-of-month to the length of the given
// month, so a day-31 payment is due on Feb 28 (29 in leap years).
func EffectiveDueDay(dayOfMonth int, year int, month time.Month) int {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if dayOfMonth > lastDay {
		return lastDay
	}
	return dayOfMonth
}

// PaymentStatusOn classifies a single payment relative to today.
func PaymentStatusOn(p core.RegularPayment, today time.Time) PaymentStatus {
	if IsPaidThisMonth(p, today) {
		return StatusPaid
	}
	effDay := EffectiveDueDay(p.DayOfMonth, today.Year(), today.Month())
	switch {
	case effDay == today.Day():
		return StatusDueToday
	case effDay == today.Day()+1:
		return StatusDueTomorrow
	case effDay < today.Day():
		return StatusOverdue
	default:
		return StatusUpcoming
	}
}

// ClassifyPayments filters to active payments not yet paid this month and
// buckets them by day comparison. Callers rendering a summary may cap each
// list to a preview count; the engine always returns the full lists.
func ClassifyPayments(payments []core.RegularPayment, today time.Time) Classification {
	var c Classification
	for _, p := range payments {
		if !p.IsActive {
			continue
		}
		switch PaymentStatusOn(p, today) {
		case StatusDueToday, StatusDueTomorrow:
			c.Due = append(c.Due, p)
		case StatusOverdue:
			c.Overdue = append(c.Overdue, p)
		}
	}
	sortByDay(c.Due)
	sortByDay(c.Overdue)
	return c
}

// UpcomingReminders returns active, unpaid payments whose due day falls
// within their ReminderDaysBefore window, excluding payments already due
// today (those belong to the due bucket). Sorted by DayOfMonth ascending.
func UpcomingReminders(payments []core.RegularPayment, today time.Time) []core.RegularPayment {
	var out []core.RegularPayment
	for _, p := range payments {
		if !p.IsActive || IsPaidThisMonth(p, today) {
			continue
		}
		effDay := EffectiveDueDay(p.DayOfMonth, today.Year(), today.Month())
		daysLeft := effDay - today.Day()
		if daysLeft > 0 && daysLeft <= p.ReminderDaysBefore {
			out = append(out, p)
		}
	}
	sortByDay(out)
	return out
}

// NextDueDate computes the occurrence of dayOfMonth in the month following
// paidAt, clamped to that month's length. Paying the January 31st bill
// schedules the next one for Feb 28 (or 29), never March 3.
func NextDueDate(dayOfMonth int, paidAt time.Time) time.Time {
	year, month := paidAt.Year(), paidAt.Month()
	month++
	if month > time.December {
		month = time.January
		year++
	}
	day := EffectiveDueDay(dayOfMonth, year, month)
	return time.Date(year, month, day, 0, 0, 0, 0, paidAt.Location())
}

// MarkAsPaid records a paid transition: LastPaidAt becomes paidAt and
// NextDueAt moves to next month's occurrence. Returns the store's NotFound
// error unchanged when the payment does not exist.
func MarkAsPaid(ctx context.Context, store PaymentStore, id string, paidAt time.Time) error {
	p, err := store.GetPayment(ctx, id)
	if err != nil {
		return fmt.Errorf("get payment %s: %w", id, err)
	}
	nextDue := NextDueDate(p.DayOfMonth, paidAt)
	if err := store.MarkPaymentPaid(ctx, id, paidAt, nextDue); err != nil {
		return fmt.Errorf("mark payment %s paid: %w", id, err)
	}
	return nil
}

func sortByDay(payments []core.RegularPayment) {
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].DayOfMonth < payments[j].DayOfMonth
	})
}
