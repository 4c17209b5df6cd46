// Package aggregate turns flat lists of tuition and registration-fee payments
// into per-month and per-year totals for one school year.
//
// Tuition is attributed by concerned month, registration fees by payment
// date. Every function is pure and returns zero totals for empty input.
package aggregate

import (
	"time"

	"creche/internal/core"
	"creche/internal/schoolyear"
)

// SlotTotal is the tuition collected for one billable month.
type SlotTotal struct {
	Slot  int
	Label string
	Total core.Money
	Count int
}

// MonthlyTotals returns one entry per slot of sy, September first.
//
// A payment whose school-year tag matches sy is counted directly. A payment
// without a usable tag is counted when its concerned month falls inside sy.
// Payments for July or August are skipped. Completion status is not
// considered: a recorded amount is a collected amount.
func MonthlyTotals(payments []core.Payment, sy schoolyear.SchoolYear) []SlotTotal {
	out := emptyTotals()
	for _, p := range payments {
		psy, slot, ok := p.Bucket()
		if !ok || psy != sy {
			continue
		}
		out[slot].Total = out[slot].Total.Add(p.Amount)
		out[slot].Count++
	}
	return out
}

func emptyTotals() []SlotTotal {
	labels := schoolyear.Slots()
	out := make([]SlotTotal, schoolyear.SlotCount)
	for i := range out {
		out[i] = SlotTotal{Slot: i, Label: labels[i]}
	}
	return out
}

// RegistrationFeeTotalsByMonth sums fee payments by the month they were paid
// in. All ten labels are present in the result.
func RegistrationFeeTotalsByMonth(fees []core.FeePayment, sy schoolyear.SchoolYear) map[string]core.Money {
	labels := schoolyear.Slots()
	out := make(map[string]core.Money, len(labels))
	for _, l := range labels {
		out[l] = core.Money{}
	}
	for _, f := range fees {
		if f.PaymentDate.IsZero() || !schoolyear.IsWithin(f.PaymentDate, sy) {
			continue
		}
		slot, ok := schoolyear.SlotOf(f.PaymentDate)
		if !ok {
			continue
		}
		out[labels[slot]] = out[labels[slot]].Add(f.Amount)
	}
	return out
}

// YearTotal sums the slot totals.
func YearTotal(totals []SlotTotal) core.Money {
	var sum core.Money
	for _, t := range totals {
		sum = sum.Add(t.Total)
	}
	return sum
}

// FeeYearTotal sums the per-month fee totals.
func FeeYearTotal(fees map[string]core.Money) core.Money {
	var sum core.Money
	for _, m := range fees {
		sum = sum.Add(m)
	}
	return sum
}

// CombinedTotal is the dashboard headline: tuition plus registration fees.
func CombinedTotal(tuition, fees core.Money) core.Money {
	return tuition.Add(fees)
}

// SumBetween totals tuition payments by payment date within [from, to],
// compared by calendar day.
func SumBetween(payments []core.Payment, from, to time.Time) (core.Money, int) {
	var sum core.Money
	n := 0
	for _, p := range payments {
		if !inDays(p.PaymentDate, from, to) {
			continue
		}
		sum = sum.Add(p.Amount)
		n++
	}
	return sum, n
}

// FeesBetween totals fee payments by payment date within [from, to].
func FeesBetween(fees []core.FeePayment, from, to time.Time) (core.Money, int) {
	var sum core.Money
	n := 0
	for _, f := range fees {
		if !inDays(f.PaymentDate, from, to) {
			continue
		}
		sum = sum.Add(f.Amount)
		n++
	}
	return sum, n
}

func inDays(t, from, to time.Time) bool {
	if t.IsZero() {
		return false
	}
	d := schoolyear.Day(t)
	return !d.Before(schoolyear.Day(from)) && !d.After(schoolyear.Day(to))
}
