package arrears

import (
	"creche/internal/core"
	"creche/internal/schoolyear"

	"github.com/shopspring/decimal"
)

// ReminderFilter selects entries by whether a reminder was sent.
type ReminderFilter int

const (
	AnyReminder ReminderFilter = iota
	ReminderSent
	ReminderNotSent
)

// Filter narrows an already computed entry list. Zero fields match everything.
type Filter struct {
	Reminder   ReminderFilter
	Bands      []Band
	Class      string
	SchoolYear *schoolyear.SchoolYear
}

// Apply returns the entries matching f, preserving order.
func (f Filter) Apply(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Match reports whether e passes every criterion of f.
func (f Filter) Match(e Entry) bool {
	switch f.Reminder {
	case ReminderSent:
		if !e.Reminded() {
			return false
		}
	case ReminderNotSent:
		if e.Reminded() {
			return false
		}
	}
	if len(f.Bands) > 0 && !containsBand(f.Bands, e.Band) {
		return false
	}
	if f.Class != "" && e.Class != f.Class {
		return false
	}
	if f.SchoolYear != nil && e.SchoolYear != *f.SchoolYear {
		return false
	}
	return true
}

func containsBand(bands []Band, b Band) bool {
	for _, x := range bands {
		if x == b {
			return true
		}
	}
	return false
}

// Stats summarizes a list of entries.
type Stats struct {
	Count           int
	TotalDue        core.Money
	Mild            int
	Serious         int
	Critical        int
	AverageDaysLate float64
}

// Summarize computes Stats. The average is zero for an empty list.
func Summarize(entries []Entry) Stats {
	var s Stats
	days := 0
	for _, e := range entries {
		s.Count++
		s.TotalDue = s.TotalDue.Add(e.AmountDue)
		days += e.DaysLate
		switch e.Band {
		case Mild:
			s.Mild++
		case Serious:
			s.Serious++
		case Critical:
			s.Critical++
		}
	}
	if s.Count > 0 {
		s.AverageDaysLate = decimal.NewFromInt(int64(days)).
			DivRound(decimal.NewFromInt(int64(s.Count)), 2).
			InexactFloat64()
	}
	return s
}
