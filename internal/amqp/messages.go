package amqp

import (
	"encoding/json"
	"time"
)

// Priority mirrors the notification contract: Normal for advance reminders,
// High when something is overdue.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// ReminderMessage carries one ready-to-deliver payment notification. The
// consumer only delivers it; all classification happened on the publisher
// side, so an abandoned message can be redelivered safely.
type ReminderMessage struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Priority  string    `json:"priority"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReminderMessage builds a reminder message stamped with the current time.
func NewReminderMessage(title, body, priority string) *ReminderMessage {
	return &ReminderMessage{
		Title:     title,
		Body:      body,
		Priority:  priority,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReminderMessageFromJSON creates a message from JSON bytes
func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
