package aggregate

import (
	"creche/internal/core"
	"creche/internal/schoolyear"

	"github.com/shopspring/decimal"
)

// Overview is everything the dashboard shows for one school year.
type Overview struct {
	SchoolYear      schoolyear.SchoolYear
	Monthly         []SlotTotal
	Fees            map[string]core.Money
	TuitionTotal    core.Money
	FeeTotal        core.Money
	Combined        core.Money
	ActiveChildren  int
	AveragePerChild core.Money
}

// Dashboard computes the overview of sy. A child counts as active when its
// status is active and it is either untagged or tagged with sy.
func Dashboard(children []core.Child, payments []core.Payment, fees []core.FeePayment, sy schoolyear.SchoolYear) Overview {
	monthly := MonthlyTotals(payments, sy)
	feeTotals := RegistrationFeeTotalsByMonth(fees, sy)
	o := Overview{
		SchoolYear:   sy,
		Monthly:      monthly,
		Fees:         feeTotals,
		TuitionTotal: YearTotal(monthly),
		FeeTotal:     FeeYearTotal(feeTotals),
	}
	o.Combined = CombinedTotal(o.TuitionTotal, o.FeeTotal)

	for _, c := range children {
		if !c.IsActive() {
			continue
		}
		if c.SchoolYear != "" && c.SchoolYear != sy.String() {
			continue
		}
		o.ActiveChildren++
	}
	if o.ActiveChildren > 0 {
		avg := o.Combined.Decimal().DivRound(decimal.NewFromInt(int64(o.ActiveChildren)), 2)
		o.AveragePerChild = core.Money{Cents: avg.Shift(2).IntPart()}
	}
	return o
}
