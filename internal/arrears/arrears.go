// Package arrears finds overdue tuition months and unsettled registration fees
// and ranks them by severity.
//
// Results are always derived from the current children and payments; nothing
// is remembered between runs. At most one entry is kept per child and
// obligation, the one with the most days late.
package arrears

import (
	"sort"
	"strings"
	"time"

	"creche/internal/core"
	"creche/internal/schoolyear"
)

// Obligation is the kind of debt an entry reports.
type Obligation string

const (
	Tuition      Obligation = "tuition"
	Registration Obligation = "registration"
)

// Band is a severity bucket by days late.
type Band string

const (
	Mild     Band = "mild"     // up to 45 days
	Serious  Band = "serious"  // 46 to 60 days
	Critical Band = "critical" // more than 60 days
)

// Thresholds are the day counts that drive detection and banding.
type Thresholds struct {
	Overdue int // an obligation surfaces once strictly more days have elapsed
	Mild    int // upper bound of the mild band
	Serious int // upper bound of the serious band
}

// DefaultThresholds are the cut-offs used by the creche.
var DefaultThresholds = Thresholds{Overdue: 30, Mild: 45, Serious: 60}

// Entry is one outstanding obligation of a child.
type Entry struct {
	ChildID    string
	ChildName  string
	Class      string
	SchoolYear schoolyear.SchoolYear
	Obligation Obligation
	// Period is the concerned month for tuition, the enrollment month for
	// registration fees.
	Period    core.YearMonth
	AmountDue core.Money
	DaysLate  int
	Band      Band
	// OverdueMonths is the number of overdue tuition months folded into
	// this entry. It is zero for registration entries.
	OverdueMonths int
	LastReminder  *time.Time
}

// Reminded reports whether a reminder was ever sent for the entry.
func (e Entry) Reminded() bool {
	return e.LastReminder != nil
}

// Band classifies days late.
func (t Thresholds) Band(daysLate int) Band {
	switch {
	case daysLate <= t.Mild:
		return Mild
	case daysLate <= t.Serious:
		return Serious
	default:
		return Critical
	}
}

// Detect runs detection with DefaultThresholds.
func Detect(children []core.Child, payments []core.Payment, today time.Time) []Entry {
	return DefaultThresholds.Detect(children, payments, today)
}

type bucketKey struct {
	childID string
	sy      schoolyear.SchoolYear
	slot    int
}

// Detect returns the worst outstanding obligation per child and class,
// sorted most severe first.
func (t Thresholds) Detect(children []core.Child, payments []core.Payment, today time.Time) []Entry {
	paid := make(map[bucketKey]bool)
	reminders := make(map[bucketKey]*time.Time)
	for _, p := range payments {
		sy, slot, ok := p.Bucket()
		if !ok {
			continue
		}
		k := bucketKey{childID: p.ChildID, sy: sy, slot: slot}
		if p.IsComplete() {
			paid[k] = true
		}
		if p.LastReminder != nil && (reminders[k] == nil || p.LastReminder.After(*reminders[k])) {
			reminders[k] = p.LastReminder
		}
	}

	var raw []Entry
	for _, c := range children {
		if !c.IsActive() || c.EnrollmentDate.IsZero() {
			continue
		}
		raw = append(raw, t.tuitionEntries(c, paid, reminders, today)...)
		if e, ok := t.registrationEntry(c, today); ok {
			raw = append(raw, e)
		}
	}

	out := KeepMostSevere(raw)
	Sort(out)
	return out
}

func (t Thresholds) tuitionEntries(c core.Child, paid map[bucketKey]bool, reminders map[bucketKey]*time.Time, today time.Time) []Entry {
	if !c.MonthlyTuition.IsPositive() {
		return nil
	}
	var out []Entry
	for _, m := range schoolyear.Between(c.EnrollmentDate, today) {
		k := bucketKey{childID: c.ID, sy: m.SchoolYear, slot: m.Slot}
		if paid[k] {
			continue
		}
		late := schoolyear.DaysBetween(m.DueDate(), today)
		if late <= t.Overdue {
			continue
		}
		reminder := latest(reminders[k], c.LastReminder)
		out = append(out, Entry{
			ChildID:       c.ID,
			ChildName:     c.DisplayName(),
			Class:         c.Class,
			SchoolYear:    m.SchoolYear,
			Obligation:    Tuition,
			Period:        core.YearMonth{Year: m.Year, Month: m.Month},
			AmountDue:     c.MonthlyTuition,
			DaysLate:      late,
			Band:          t.Band(late),
			OverdueMonths: 1,
			LastReminder:  reminder,
		})
	}
	return out
}

func (t Thresholds) registrationEntry(c core.Child, today time.Time) (Entry, bool) {
	due := c.RegistrationFee.Outstanding()
	if !due.IsPositive() {
		return Entry{}, false
	}
	late := schoolyear.DaysBetween(c.EnrollmentDate, today)
	if late <= t.Overdue {
		return Entry{}, false
	}
	return Entry{
		ChildID:      c.ID,
		ChildName:    c.DisplayName(),
		Class:        c.Class,
		SchoolYear:   registrationYear(c),
		Obligation:   Registration,
		Period:       core.YearMonth{Year: c.EnrollmentDate.Year(), Month: c.EnrollmentDate.Month()},
		AmountDue:    due,
		DaysLate:     late,
		Band:         t.Band(late),
		LastReminder: c.LastReminder,
	}, true
}

// registrationYear is the year the child is enrolled for. Summer enrollments
// belong to the coming year, which only the child's own tag records.
func registrationYear(c core.Child) schoolyear.SchoolYear {
	if sy, err := schoolyear.Parse(c.SchoolYear); err == nil {
		return sy
	}
	return schoolyear.Of(c.EnrollmentDate)
}

func latest(a, b *time.Time) *time.Time {
	if a == nil || (b != nil && b.After(*a)) {
		return b
	}
	return a
}

type groupKey struct {
	childID    string
	obligation Obligation
}

// KeepMostSevere reduces entries to one per (child, obligation), keeping the
// greatest DaysLate. Ties go to the larger amount, then to the earlier period.
// OverdueMonths of the survivor is the sum over its group.
func KeepMostSevere(entries []Entry) []Entry {
	best := make(map[groupKey]int)
	var out []Entry
	for _, e := range entries {
		k := groupKey{childID: e.ChildID, obligation: e.Obligation}
		i, seen := best[k]
		if !seen {
			best[k] = len(out)
			out = append(out, e)
			continue
		}
		folded := out[i].OverdueMonths + e.OverdueMonths
		if moreSevere(e, out[i]) {
			out[i] = e
		}
		out[i].OverdueMonths = folded
	}
	return out
}

func moreSevere(a, b Entry) bool {
	if a.DaysLate != b.DaysLate {
		return a.DaysLate > b.DaysLate
	}
	if a.AmountDue.Cents != b.AmountDue.Cents {
		return a.AmountDue.Cents > b.AmountDue.Cents
	}
	return a.Period.FirstDay().Before(b.Period.FirstDay())
}

// Sort orders entries by days late, then amount due, both descending, then
// by child name and ID and obligation.
func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.DaysLate != b.DaysLate {
			return a.DaysLate > b.DaysLate
		}
		if a.AmountDue.Cents != b.AmountDue.Cents {
			return a.AmountDue.Cents > b.AmountDue.Cents
		}
		if an, bn := strings.ToLower(a.ChildName), strings.ToLower(b.ChildName); an != bn {
			return an < bn
		}
		if a.ChildID != b.ChildID {
			return a.ChildID < b.ChildID
		}
		return a.Obligation < b.Obligation
	})
}
