package services

import (
	"time"

	"creche/internal/arrears"
)

// ReminderPolicy decides whether an outstanding entry should be reminded now.
type ReminderPolicy interface {
	Due(e arrears.Entry, now time.Time) bool
}

// CooldownPolicy reminds entries never reminded, or last reminded at least
// Cooldown ago.
type CooldownPolicy struct {
	Cooldown time.Duration
}

func (p CooldownPolicy) Due(e arrears.Entry, now time.Time) bool {
	if e.LastReminder == nil {
		return true
	}
	return now.Sub(*e.LastReminder) >= p.Cooldown
}

// EscalatingPolicy shortens the cooldown as the band worsens: the full
// cooldown for mild entries, half for serious and a quarter for critical.
type EscalatingPolicy struct {
	Cooldown time.Duration
}

func (p EscalatingPolicy) Due(e arrears.Entry, now time.Time) bool {
	cooldown := p.Cooldown
	switch e.Band {
	case arrears.Serious:
		cooldown /= 2
	case arrears.Critical:
		cooldown /= 4
	}
	return CooldownPolicy{Cooldown: cooldown}.Due(e, now)
}

// PolicyFor returns the policy registered under name, defaulting to the
// plain cooldown.
func PolicyFor(name string, cooldown time.Duration) ReminderPolicy {
	switch name {
	case "escalating":
		return EscalatingPolicy{Cooldown: cooldown}
	default:
		return CooldownPolicy{Cooldown: cooldown}
	}
}
