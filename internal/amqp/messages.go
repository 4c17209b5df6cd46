package amqp

import (
	"encoding/json"
	"time"

	"creche/internal/arrears"
)

// ReminderMessage asks a downstream notifier to remind a family about one
// outstanding obligation.
type ReminderMessage struct {
	ChildID        string    `json:"child_id"`
	ChildName      string    `json:"child_name"`
	Class          string    `json:"class,omitempty"`
	SchoolYear     string    `json:"school_year"`
	Obligation     string    `json:"obligation"`
	Period         string    `json:"period"`
	AmountDueCents int64     `json:"amount_due_cents"`
	DaysLate       int       `json:"days_late"`
	Band           string    `json:"band"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewReminderMessage(e arrears.Entry, now time.Time) *ReminderMessage {
	return &ReminderMessage{
		ChildID:        e.ChildID,
		ChildName:      e.ChildName,
		Class:          e.Class,
		SchoolYear:     e.SchoolYear.String(),
		Obligation:     string(e.Obligation),
		Period:         e.Period.String(),
		AmountDueCents: e.AmountDue.Cents,
		DaysLate:       e.DaysLate,
		Band:           string(e.Band),
		Timestamp:      now,
	}
}

func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
