package arrears

import (
	"testing"
	"time"

	"creche/internal/core"
	"creche/internal/schoolyear"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []Entry {
	reminded := day(2024, time.January, 10)
	sy2023, sy2022 := schoolyear.New(2023), schoolyear.New(2022)
	return []Entry{
		{ChildID: "a", Obligation: Tuition, Class: "petits", SchoolYear: sy2023, DaysLate: 90, Band: Critical, AmountDue: core.Units(800), LastReminder: &reminded},
		{ChildID: "a", Obligation: Registration, Class: "petits", SchoolYear: sy2023, DaysLate: 50, Band: Serious, AmountDue: core.Units(100)},
		{ChildID: "b", Obligation: Tuition, Class: "grands", SchoolYear: sy2023, DaysLate: 35, Band: Mild, AmountDue: core.Units(600)},
		{ChildID: "c", Obligation: Tuition, Class: "grands", SchoolYear: sy2022, DaysLate: 400, Band: Critical, AmountDue: core.Units(700), LastReminder: &reminded},
	}
}

func TestReminderFilterPartitions(t *testing.T) {
	all := sample()
	sent := Filter{Reminder: ReminderSent}.Apply(all)
	notSent := Filter{Reminder: ReminderNotSent}.Apply(all)

	assert.Len(t, sent, 2)
	assert.Len(t, notSent, 2)

	seen := map[string]int{}
	for _, e := range append(append([]Entry{}, sent...), notSent...) {
		seen[e.ChildID+"/"+string(e.Obligation)]++
	}
	require.Len(t, seen, len(all))
	for k, n := range seen {
		assert.Equal(t, 1, n, k)
	}
	assert.Equal(t, all, Filter{}.Apply(all))
}

func TestFilterCriteria(t *testing.T) {
	all := sample()
	sy2022 := schoolyear.New(2022)

	cases := []struct {
		name string
		f    Filter
		want []string
	}{
		{"band", Filter{Bands: []Band{Critical}}, []string{"a", "c"}},
		{"bands", Filter{Bands: []Band{Mild, Serious}}, []string{"a", "b"}},
		{"class", Filter{Class: "grands"}, []string{"b", "c"}},
		{"school year", Filter{SchoolYear: &sy2022}, []string{"c"}},
		{"combined", Filter{Class: "grands", Reminder: ReminderNotSent}, []string{"b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ids []string
			for _, e := range tc.f.Apply(all) {
				ids = append(ids, e.ChildID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sample())
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, core.Units(2200), s.TotalDue)
	assert.Equal(t, 1, s.Mild)
	assert.Equal(t, 1, s.Serious)
	assert.Equal(t, 2, s.Critical)
	assert.Equal(t, 143.75, s.AverageDaysLate)

	empty := Summarize(nil)
	assert.Zero(t, empty.Count)
	assert.Zero(t, empty.AverageDaysLate)
}
