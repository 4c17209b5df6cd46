// Package report builds per-period collection reports over an arbitrary date
// range, with the roster of children who paid and who did not.
package report

import (
	"sort"
	"strings"
	"time"

	"creche/internal/aggregate"
	"creche/internal/core"
	"creche/internal/schoolyear"

	"github.com/shopspring/decimal"
)

// Granularity selects one row per month or one row per day.
type Granularity int

const (
	Monthly Granularity = iota
	Daily
)

// Range is an inclusive range of calendar days.
type Range struct {
	From time.Time
	To   time.Time
}

// Valid reports whether the range has both bounds and From is not after To.
func (r Range) Valid() bool {
	if r.From.IsZero() || r.To.IsZero() {
		return false
	}
	return !schoolyear.Day(r.From).After(schoolyear.Day(r.To))
}

// ChildRef identifies a child in a roster.
type ChildRef struct {
	ID   string
	Name string
}

// Row summarizes one period.
type Row struct {
	Label        string
	Start        time.Time
	End          time.Time
	Tuition      core.Money
	TuitionCount int
	Fees         core.Money
	FeeCount     int
	Total        core.Money

	Expected       int
	Paid           int
	Unpaid         int
	RecoveryRate   float64
	PaidChildren   []ChildRef
	UnpaidChildren []ChildRef
}

// Generate returns the rows of rng in chronological order. Amounts are
// collected by payment date within each period. The roster refers to the
// billing month containing the period start. A swapped or incomplete range
// yields no rows.
func Generate(rng Range, g Granularity, children []core.Child, payments []core.Payment, fees []core.FeePayment) []Row {
	if !rng.Valid() {
		return []Row{}
	}
	var out []Row
	for _, p := range periods(rng, g) {
		out = append(out, buildRow(p, children, payments, fees))
	}
	return out
}

type period struct {
	label      string
	start, end time.Time
}

func periods(rng Range, g Granularity) []period {
	from, to := schoolyear.Day(rng.From), schoolyear.Day(rng.To)
	var out []period
	if g == Daily {
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			out = append(out, period{label: d.Format("2006-01-02"), start: d, end: d})
		}
		return out
	}
	for m := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(to); m = m.AddDate(0, 1, 0) {
		start, end := m, m.AddDate(0, 1, -1)
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		out = append(out, period{label: m.Format("2006-01"), start: start, end: end})
	}
	return out
}

func buildRow(p period, children []core.Child, payments []core.Payment, fees []core.FeePayment) Row {
	row := Row{Label: p.label, Start: p.start, End: p.end}
	row.Tuition, row.TuitionCount = aggregate.SumBetween(payments, p.start, p.end)
	row.Fees, row.FeeCount = aggregate.FeesBetween(fees, p.start, p.end)
	row.Total = aggregate.CombinedTotal(row.Tuition, row.Fees)

	month, billable := schoolyear.MonthOf(p.start)
	if !billable {
		return row
	}

	settled := make(map[string]bool)
	for _, pay := range payments {
		if !pay.IsComplete() {
			continue
		}
		if !pay.PaymentDate.IsZero() && schoolyear.Day(pay.PaymentDate).After(p.end) {
			continue
		}
		sy, slot, ok := pay.Bucket()
		if ok && sy == month.SchoolYear && slot == month.Slot {
			settled[pay.ChildID] = true
		}
	}

	for _, c := range children {
		if !c.IsActive() || !c.MonthlyTuition.IsPositive() {
			continue
		}
		if c.EnrollmentDate.IsZero() || schoolyear.Day(c.EnrollmentDate).After(p.end) {
			continue
		}
		ref := ChildRef{ID: c.ID, Name: c.DisplayName()}
		if settled[c.ID] {
			row.PaidChildren = append(row.PaidChildren, ref)
		} else {
			row.UnpaidChildren = append(row.UnpaidChildren, ref)
		}
	}
	sortRefs(row.PaidChildren)
	sortRefs(row.UnpaidChildren)
	row.Paid = len(row.PaidChildren)
	row.Unpaid = len(row.UnpaidChildren)
	row.Expected = row.Paid + row.Unpaid
	row.RecoveryRate = RecoveryRate(row.Paid, row.Expected)
	return row
}

// RecoveryRate is paid/expected rounded to four decimals, or zero when
// nothing is expected.
func RecoveryRate(paid, expected int) float64 {
	if expected <= 0 || paid <= 0 {
		return 0
	}
	if paid > expected {
		paid = expected
	}
	return decimal.NewFromInt(int64(paid)).
		DivRound(decimal.NewFromInt(int64(expected)), 4).
		InexactFloat64()
}

func sortRefs(refs []ChildRef) {
	sort.SliceStable(refs, func(i, j int) bool {
		a, b := strings.ToLower(refs[i].Name), strings.ToLower(refs[j].Name)
		if a != b {
			return a < b
		}
		return refs[i].ID < refs[j].ID
	})
}

// Summary totals a set of rows.
type Summary struct {
	Tuition             core.Money
	Fees                core.Money
	Total               core.Money
	TuitionCount        int
	FeeCount            int
	Periods             int
	AverageRecoveryRate float64
}

// Summarize totals rows. The average recovery rate only considers rows where
// payments were expected and is zero when there are none.
func Summarize(rows []Row) Summary {
	var s Summary
	rate := decimal.Zero
	rated := 0
	for _, r := range rows {
		s.Periods++
		s.Tuition = s.Tuition.Add(r.Tuition)
		s.Fees = s.Fees.Add(r.Fees)
		s.TuitionCount += r.TuitionCount
		s.FeeCount += r.FeeCount
		if r.Expected > 0 {
			rate = rate.Add(decimal.NewFromFloat(r.RecoveryRate))
			rated++
		}
	}
	s.Total = aggregate.CombinedTotal(s.Tuition, s.Fees)
	if rated > 0 {
		s.AverageRecoveryRate = rate.DivRound(decimal.NewFromInt(int64(rated)), 4).InexactFloat64()
	}
	return s
}
