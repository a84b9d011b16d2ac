// Package worker runs the scheduled payment due-check. Each tick reads the
// current payment snapshot, classifies it and hands at most a few
// notifications to the Notifier. The worker never mutates payment state, so
// an abandoned tick leaves nothing to repair.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kopilka/internal/core"
	"kopilka/internal/notify"
	"kopilka/internal/services"
)

// previewCount caps how many payment names a notification body lists.
const previewCount = 3

// PaymentLister is the slice of the store the worker reads.
type PaymentLister interface {
	ListPayments(ctx context.Context, activeOnly bool) ([]core.RegularPayment, error)
}

// ReminderWorker checks due payments and produces notifications.
type ReminderWorker struct {
	store    PaymentLister
	notifier notify.Notifier
}

func NewReminderWorker(store PaymentLister, notifier notify.Notifier) *ReminderWorker {
	return &ReminderWorker{store: store, notifier: notifier}
}

// RunOnce performs a single due check for the given day. It returns how many
// payments landed in the due and overdue buckets. Notification failures are
// logged and recovered; the next tick retries naturally.
func (w *ReminderWorker) RunOnce(ctx context.Context, now time.Time) (due, overdue int, err error) {
	payments, err := w.store.ListPayments(ctx, true)
	if err != nil {
		return 0, 0, fmt.Errorf("list payments: %w", err)
	}

	c := services.ClassifyPayments(payments, now)
	upcoming := services.UpcomingReminders(payments, now)

	slog.InfoContext(ctx, "Payment due check complete",
		"active", len(payments),
		"due", len(c.Due),
		"overdue", len(c.Overdue),
		"upcoming", len(upcoming))

	if len(c.Due) > 0 || len(c.Overdue) > 0 {
		title, body, priority := dueNotification(c)
		if nerr := w.notifier.Notify(ctx, title, body, priority); nerr != nil {
			slog.ErrorContext(ctx, "Failed to send due notification", "error", nerr)
		}
	}

	if len(upcoming) > 0 {
		body := fmt.Sprintf("Скоро платежи: %s", previewNames(upcoming))
		if nerr := w.notifier.Notify(ctx, "Напоминание о платежах", body, notify.PriorityNormal); nerr != nil {
			slog.ErrorContext(ctx, "Failed to send advance reminder", "error", nerr)
		}
	}

	return len(c.Due), len(c.Overdue), nil
}

// dueNotification builds one notification for the due/overdue buckets.
// Anything overdue raises the priority.
func dueNotification(c services.Classification) (title, body string, priority notify.Priority) {
	var parts []string
	if len(c.Overdue) > 0 {
		parts = append(parts, fmt.Sprintf("Просрочено: %s", previewNames(c.Overdue)))
	}
	if len(c.Due) > 0 {
		parts = append(parts, fmt.Sprintf("К оплате: %s", previewNames(c.Due)))
	}

	priority = notify.PriorityNormal
	title = "Платежи к оплате"
	if len(c.Overdue) > 0 {
		priority = notify.PriorityHigh
		title = "Просроченные платежи"
	}
	return title, strings.Join(parts, ". "), priority
}

func previewNames(payments []core.RegularPayment) string {
	names := make([]string, 0, previewCount)
	for i, p := range payments {
		if i == previewCount {
			break
		}
		names = append(names, p.Name)
	}
	s := strings.Join(names, ", ")
	if rest := len(payments) - previewCount; rest > 0 {
		s += fmt.Sprintf(" и ещё %d", rest)
	}
	return s
}
