package schoolyear

import "time"

// Month is one billable month of a school year.
type Month struct {
	Slot       int
	Label      string
	Month      time.Month
	Year       int
	SchoolYear SchoolYear
}

// FirstDay returns the first day of the month at midnight UTC.
func (m Month) FirstDay() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// LastDay returns the last day of the month at midnight UTC.
func (m Month) LastDay() time.Time {
	return m.FirstDay().AddDate(0, 1, -1)
}

// DueDate is the point from which lateness of the month's tuition is counted.
func (m Month) DueDate() time.Time {
	return m.FirstDay()
}

// Contains reports whether t falls on a day of this month.
func (m Month) Contains(t time.Time) bool {
	y, mo, _ := t.Date()
	return y == m.Year && mo == m.Month
}

// Months returns the ten billable months of sy, September first.
func Months(sy SchoolYear) []Month {
	out := make([]Month, 0, SlotCount)
	for slot := 0; slot < SlotCount; slot++ {
		m, _ := MonthAt(slot, sy)
		out = append(out, m)
	}
	return out
}

// MonthAt returns the billable month at slot within sy.
func MonthAt(slot int, sy SchoolYear) (Month, error) {
	cm, cy, err := SlotToCalendar(slot, sy)
	if err != nil {
		return Month{}, err
	}
	return Month{
		Slot:       slot,
		Label:      englishSlots[slot],
		Month:      cm,
		Year:       cy,
		SchoolYear: sy,
	}, nil
}

// MonthOf returns the billable month containing t. July and August have none.
func MonthOf(t time.Time) (Month, bool) {
	slot, ok := SlotOf(t)
	if !ok {
		return Month{}, false
	}
	m, _ := MonthAt(slot, Of(t))
	return m, true
}

// Between returns the billable months from the month containing from up to
// and including the month containing to, in calendar order. July and August
// are skipped. An empty slice is returned when from is after to.
func Between(from, to time.Time) []Month {
	start := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	var out []Month
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		if m, ok := MonthOf(cur); ok {
			out = append(out, m)
		}
	}
	return out
}
