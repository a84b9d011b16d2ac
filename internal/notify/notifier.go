// Package notify defines the notification contract the core produces into.
// Delivery mechanics (OS notification, queue, log) live behind the Notifier
// interface.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"kopilka/internal/amqp"
)

// Priority of a notification.
type Priority string

const (
	PriorityNormal Priority = Priority(amqp.PriorityNormal)
	PriorityHigh   Priority = Priority(amqp.PriorityHigh)
)

// Notifier delivers one user-facing notification.
type Notifier interface {
	Notify(ctx context.Context, title, body string, priority Priority) error
}

// AMQPNotifier queues notifications for the notifier daemon to deliver.
type AMQPNotifier struct {
	client *amqp.Client
}

func NewAMQPNotifier(client *amqp.Client) *AMQPNotifier {
	return &AMQPNotifier{client: client}
}

func (n *AMQPNotifier) Notify(ctx context.Context, title, body string, priority Priority) error {
	msg := amqp.NewReminderMessage(title, body, string(priority))
	if err := n.client.PublishReminder(ctx, msg); err != nil {
		return fmt.Errorf("publish reminder: %w", err)
	}
	return nil
}

// LogNotifier writes notifications to the structured log. Used when AMQP is
// not configured, so reminder runs still surface somewhere visible.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, title, body string, priority Priority) error {
	slog.InfoContext(ctx, "Notification",
		"title", title,
		"body", body,
		"priority", string(priority))
	return nil
}
