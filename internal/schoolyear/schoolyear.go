// Package schoolyear maps calendar dates onto the creche's September–June
// school year and its fixed sequence of ten billable months.
//
// All month-to-slot arithmetic lives here. July and August belong to no
// school year and have no slot; callers get a false "ok" value rather than
// an error so they can skip the record and carry on.
package schoolyear

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SlotCount is the number of billable months in a school year.
const SlotCount = 10

var (
	ErrInvalidSchoolYear = errors.New("invalid school year")
	ErrInvalidSlot       = errors.New("invalid slot")
)

// SchoolYear identifies the period from September 1 of Start to June 30 of Start+1.
type SchoolYear struct {
	Start int
}

// Lang selects the label set returned by Label.
type Lang string

const (
	English Lang = "en"
	French  Lang = "fr"
)

var (
	englishSlots = [SlotCount]string{
		"September", "October", "November", "December",
		"January", "February", "March", "April", "May", "June",
	}
	frenchSlots = [SlotCount]string{
		"Septembre", "Octobre", "Novembre", "Décembre",
		"Janvier", "Février", "Mars", "Avril", "Mai", "Juin",
	}
)

// New returns the school year starting in September of start.
func New(start int) SchoolYear {
	return SchoolYear{Start: start}
}

// End returns the calendar year in which the school year finishes.
func (sy SchoolYear) End() int {
	return sy.Start + 1
}

// String renders the identifier, e.g. "2023-2024".
func (sy SchoolYear) String() string {
	return fmt.Sprintf("%d-%d", sy.Start, sy.End())
}

// IsZero reports whether sy is the zero value.
func (sy SchoolYear) IsZero() bool {
	return sy.Start == 0
}

// Next returns the following school year.
func (sy SchoolYear) Next() SchoolYear {
	return SchoolYear{Start: sy.Start + 1}
}

// Prev returns the preceding school year.
func (sy SchoolYear) Prev() SchoolYear {
	return SchoolYear{Start: sy.Start - 1}
}

// Parse reads an identifier of the form "YYYY-YYYY". The second year must
// follow the first.
func Parse(s string) (SchoolYear, error) {
	s = strings.TrimSpace(s)
	start, end, found := strings.Cut(s, "-")
	if !found {
		return SchoolYear{}, fmt.Errorf("%w: %q", ErrInvalidSchoolYear, s)
	}
	y1, err := strconv.Atoi(strings.TrimSpace(start))
	if err != nil {
		return SchoolYear{}, fmt.Errorf("%w: %q", ErrInvalidSchoolYear, s)
	}
	y2, err := strconv.Atoi(strings.TrimSpace(end))
	if err != nil {
		return SchoolYear{}, fmt.Errorf("%w: %q", ErrInvalidSchoolYear, s)
	}
	if y1 <= 0 || y2 != y1+1 {
		return SchoolYear{}, fmt.Errorf("%w: %q", ErrInvalidSchoolYear, s)
	}
	return SchoolYear{Start: y1}, nil
}

// Of returns the school year a date is attributed to. Months from September
// onwards open a new year; everything before September belongs to the year
// that started the previous autumn. Note that July and August are attributed
// to the ending year even though they fall outside its date range.
func Of(t time.Time) SchoolYear {
	if t.Month() >= time.September {
		return SchoolYear{Start: t.Year()}
	}
	return SchoolYear{Start: t.Year() - 1}
}

// Current returns the school year for today.
func Current(today time.Time) SchoolYear {
	return Of(today)
}

// Slots returns the ten English month labels, September first.
func Slots() []string {
	out := make([]string, SlotCount)
	copy(out, englishSlots[:])
	return out
}

// FrenchSlots returns the ten French month labels, Septembre first.
func FrenchSlots() []string {
	out := make([]string, SlotCount)
	copy(out, frenchSlots[:])
	return out
}

// Label returns the month label of a slot in the given language.
// Unknown languages fall back to English.
func Label(slot int, lang Lang) (string, error) {
	if slot < 0 || slot >= SlotCount {
		return "", fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	if lang == French {
		return frenchSlots[slot], nil
	}
	return englishSlots[slot], nil
}

// SlotOfMonth returns the slot index of a calendar month.
func SlotOfMonth(m time.Month) (int, bool) {
	switch {
	case m >= time.September && m <= time.December:
		return int(m - time.September), true
	case m >= time.January && m <= time.June:
		return int(m-time.January) + 4, true
	default:
		return 0, false
	}
}

// SlotOf returns the slot index of the month containing t.
func SlotOf(t time.Time) (int, bool) {
	return SlotOfMonth(t.Month())
}

// SlotToCalendar maps a slot to its calendar month and year within sy.
func SlotToCalendar(slot int, sy SchoolYear) (time.Month, int, error) {
	switch {
	case slot >= 0 && slot <= 3:
		return time.September + time.Month(slot), sy.Start, nil
	case slot >= 4 && slot < SlotCount:
		return time.January + time.Month(slot-4), sy.End(), nil
	default:
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
}

// DateRange returns the first and last day of sy, at midnight UTC.
func DateRange(sy SchoolYear) (time.Time, time.Time) {
	start := time.Date(sy.Start, time.September, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(sy.End(), time.June, 30, 0, 0, 0, 0, time.UTC)
	return start, end
}

// IsWithin reports whether t falls on a calendar day between the first and
// last day of sy, both inclusive.
func IsWithin(t time.Time, sy SchoolYear) bool {
	start, end := DateRange(sy)
	d := Day(t)
	return !d.Before(start) && !d.After(end)
}

// Day truncates t to midnight UTC of its calendar day, keeping the
// calendar date as seen in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b. It is negative
// when b precedes a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

var monthNames = map[string]time.Month{}

func init() {
	for i := 0; i < SlotCount; i++ {
		m, _, _ := SlotToCalendar(i, SchoolYear{})
		monthNames[strings.ToLower(englishSlots[i])] = m
		monthNames[strings.ToLower(frenchSlots[i])] = m
	}
	monthNames["july"] = time.July
	monthNames["august"] = time.August
	monthNames["juillet"] = time.July
	monthNames["août"] = time.August
	monthNames["decembre"] = time.December
	monthNames["fevrier"] = time.February
	monthNames["aout"] = time.August
}

// ParseMonthName resolves an English or French month name, case-insensitively.
func ParseMonthName(s string) (time.Month, bool) {
	m, ok := monthNames[strings.ToLower(strings.TrimSpace(s))]
	return m, ok
}
