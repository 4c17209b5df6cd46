package report

import (
	"testing"
	"time"

	"creche/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixtures() ([]core.Child, []core.Payment, []core.FeePayment) {
	children := []core.Child{
		{ID: "c1", FirstName: "Zoé", EnrollmentDate: day(2023, time.September, 1), MonthlyTuition: core.Units(800), Status: core.StatusActive},
		{ID: "c2", FirstName: "Adam", EnrollmentDate: day(2023, time.September, 1), MonthlyTuition: core.Units(600), Status: core.StatusActive},
		{ID: "c3", FirstName: "Max", EnrollmentDate: day(2023, time.October, 15), MonthlyTuition: core.Units(700), Status: core.StatusActive},
		{ID: "c4", FirstName: "Old", EnrollmentDate: day(2022, time.September, 1), MonthlyTuition: core.Units(700), Status: core.StatusInactive},
	}
	payments := []core.Payment{
		{ID: "p1", ChildID: "c1", Amount: core.Units(800), PaymentDate: day(2023, time.September, 5), ConcernedMonth: core.YearMonth{Year: 2023, Month: time.September}, Status: core.PaymentComplete, Method: core.MethodCash},
		{ID: "p2", ChildID: "c2", Amount: core.Units(600), PaymentDate: day(2023, time.October, 2), ConcernedMonth: core.YearMonth{Year: 2023, Month: time.September}, Status: core.PaymentComplete, Method: core.MethodTransfer},
		{ID: "p3", ChildID: "c1", Amount: core.Units(800), PaymentDate: day(2023, time.October, 2), ConcernedMonth: core.YearMonth{Year: 2023, Month: time.October}, Status: core.PaymentPending, Method: core.MethodCheque},
	}
	fees := []core.FeePayment{
		{ID: "f1", ChildID: "c3", Amount: core.Units(150), PaymentDate: day(2023, time.October, 2), Method: core.MethodCard},
	}
	return children, payments, fees
}

func TestGenerateMonthly(t *testing.T) {
	children, payments, fees := fixtures()
	rows := Generate(Range{From: day(2023, time.September, 1), To: day(2023, time.October, 31)}, Monthly, children, payments, fees)

	require.Len(t, rows, 2)

	sep := rows[0]
	assert.Equal(t, "2023-09", sep.Label)
	assert.Equal(t, core.Units(800), sep.Tuition)
	assert.Equal(t, 1, sep.TuitionCount)
	assert.True(t, sep.Fees.IsZero())
	assert.Equal(t, 2, sep.Expected)
	assert.Equal(t, 1, sep.Paid, "c2 paid September only on October 2")
	assert.Equal(t, []ChildRef{{"c2", "Adam"}}, sep.UnpaidChildren)
	assert.Equal(t, 0.5, sep.RecoveryRate)

	oct := rows[1]
	assert.Equal(t, core.Units(1400), oct.Tuition)
	assert.Equal(t, 2, oct.TuitionCount)
	assert.Equal(t, core.Units(150), oct.Fees)
	assert.Equal(t, core.Units(1550), oct.Total)
	assert.Equal(t, 3, oct.Expected)
	assert.Equal(t, 0, oct.Paid, "pending payments do not settle the month")
	assert.Equal(t, 3, oct.Unpaid)
	assert.Equal(t, []ChildRef{{"c2", "Adam"}, {"c3", "Max"}, {"c1", "Zoé"}}, oct.UnpaidChildren)
	assert.Zero(t, oct.RecoveryRate)
}

func TestGenerateClipsMonths(t *testing.T) {
	children, payments, fees := fixtures()
	rows := Generate(Range{From: day(2023, time.September, 10), To: day(2023, time.October, 5)}, Monthly, children, payments, fees)

	require.Len(t, rows, 2)
	assert.Equal(t, day(2023, time.September, 10), rows[0].Start)
	assert.Equal(t, day(2023, time.September, 30), rows[0].End)
	assert.True(t, rows[0].Tuition.IsZero())
	assert.Equal(t, 1, rows[0].Unpaid, "c2 had not paid by September 30")
	assert.Equal(t, 1, rows[0].Paid)
	assert.Equal(t, 0.5, rows[0].RecoveryRate)
	assert.Equal(t, day(2023, time.October, 1), rows[1].Start)
	assert.Equal(t, day(2023, time.October, 5), rows[1].End)
	assert.Equal(t, 2, rows[1].Expected, "c3 enrolls after the period end")
}

func TestGenerateDaily(t *testing.T) {
	children, payments, fees := fixtures()
	rows := Generate(Range{From: day(2023, time.October, 1), To: day(2023, time.October, 3)}, Daily, children, payments, fees)

	require.Len(t, rows, 3)
	assert.Equal(t, "2023-10-01", rows[0].Label)
	assert.True(t, rows[0].Total.IsZero())
	assert.Equal(t, core.Units(1550), rows[1].Total)
	assert.Equal(t, 2, rows[1].TuitionCount)
	assert.Equal(t, 1, rows[1].FeeCount)
	assert.True(t, rows[2].Total.IsZero())
}

func TestGenerateSwappedRange(t *testing.T) {
	children, payments, fees := fixtures()
	rows := Generate(Range{From: day(2023, time.October, 31), To: day(2023, time.September, 1)}, Monthly, children, payments, fees)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
	assert.Empty(t, Generate(Range{}, Daily, children, payments, fees))
}

func TestSummerRowsExpectNothing(t *testing.T) {
	children, payments, fees := fixtures()
	rows := Generate(Range{From: day(2024, time.July, 1), To: day(2024, time.August, 31)}, Monthly, children, payments, fees)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Zero(t, r.Expected)
		assert.Zero(t, r.RecoveryRate)
	}
}

func TestRecoveryRateBounds(t *testing.T) {
	for expected := 0; expected <= 7; expected++ {
		for paid := 0; paid <= 9; paid++ {
			r := RecoveryRate(paid, expected)
			if expected == 0 {
				assert.Zero(t, r)
				continue
			}
			assert.GreaterOrEqual(t, r, 0.0)
			assert.LessOrEqual(t, r, 1.0)
		}
	}
	assert.Equal(t, 0.3333, RecoveryRate(1, 3))
}

func TestSummarize(t *testing.T) {
	children, payments, fees := fixtures()
	rows := Generate(Range{From: day(2023, time.September, 1), To: day(2023, time.October, 31)}, Monthly, children, payments, fees)
	s := Summarize(rows)

	assert.Equal(t, 2, s.Periods)
	assert.Equal(t, core.Units(2200), s.Tuition)
	assert.Equal(t, core.Units(150), s.Fees)
	assert.Equal(t, core.Units(2350), s.Total)
	assert.Equal(t, 3, s.TuitionCount)
	assert.Equal(t, 1, s.FeeCount)
	assert.Equal(t, 0.25, s.AverageRecoveryRate)

	assert.Zero(t, Summarize(nil).AverageRecoveryRate)
}

func TestDayDetail(t *testing.T) {
	children, payments, fees := fixtures()
	payments = append(payments, core.Payment{ID: "p9", ChildID: "ghost", Amount: core.Units(5), PaymentDate: time.Date(2023, time.October, 2, 17, 30, 0, 0, time.UTC)})

	lines := DayDetail(day(2023, time.October, 2), children, payments, fees)

	require.Len(t, lines, 4)
	var names []string
	for _, l := range lines {
		names = append(names, l.ChildName)
	}
	assert.Equal(t, []string{"Adam", "ghost", "Max", "Zoé"}, names)
	assert.Equal(t, KindRegistration, lines[2].Kind)
	assert.Equal(t, core.Units(150), lines[2].Amount)
	assert.Equal(t, KindTuition, lines[3].Kind)
	assert.Equal(t, core.YearMonth{Year: 2023, Month: time.October}, lines[3].ConcernedMonth)

	assert.Empty(t, DayDetail(day(2023, time.October, 3), children, payments, fees))
}
