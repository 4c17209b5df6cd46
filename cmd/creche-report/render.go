package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"creche/internal/aggregate"
	"creche/internal/arrears"
	"creche/internal/report"
	"creche/internal/schoolyear"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight|tabwriter.Debug)
}

func renderDashboard(w io.Writer, ov aggregate.Overview) error {
	fmt.Fprintf(w, "School year %s\n\n", ov.SchoolYear)
	tw := newTable(w)
	fmt.Fprintln(tw, "Month\tTuition\tPayments\tRegistration\t")
	labels := schoolyear.Slots()
	for i, t := range ov.Monthly {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t\n", t.Label, t.Total, t.Count, ov.Fees[labels[i]])
	}
	fmt.Fprintf(tw, "Total\t%s\t\t%s\t\n", ov.TuitionTotal, ov.FeeTotal)
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nCombined %s, %d active children, %s per child\n",
		ov.Combined, ov.ActiveChildren, ov.AveragePerChild)
	return err
}

func renderArrears(w io.Writer, entries []arrears.Entry, stats arrears.Stats) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No arrears.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "Child\tClass\tObligation\tPeriod\tDue\tDays late\tMonths\tBand\tReminded\t")
	for _, e := range entries {
		reminded := "-"
		if e.LastReminder != nil {
			reminded = e.LastReminder.Format(time.DateOnly)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\t\n",
			e.ChildName, e.Class, e.Obligation, e.Period, e.AmountDue, e.DaysLate, e.OverdueMonths, e.Band, reminded)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d entries, %s due (mild %d, serious %d, critical %d), %.1f days late on average\n",
		stats.Count, stats.TotalDue, stats.Mild, stats.Serious, stats.Critical, stats.AverageDaysLate)
	return err
}

func renderReport(w io.Writer, rows []report.Row, summary report.Summary) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "Empty range.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "Period\tTuition\tRegistration\tTotal\tExpected\tPaid\tRate\tUnpaid\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\t\n",
			r.Label, r.Tuition, r.Fees, r.Total, r.Expected, r.Paid, percent(r.RecoveryRate), names(r.UnpaidChildren))
	}
	fmt.Fprintf(tw, "Total\t%s\t%s\t%s\t\t\t%s\t\t\n",
		summary.Tuition, summary.Fees, summary.Total, percent(summary.AverageRecoveryRate))
	return tw.Flush()
}

func renderDayDetail(w io.Writer, day time.Time, lines []report.DetailLine) error {
	fmt.Fprintf(w, "Payments on %s\n\n", day.Format(time.DateOnly))
	if len(lines) == 0 {
		_, err := fmt.Fprintln(w, "None.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "Child\tKind\tAmount\tMethod\tMonth\tStatus\t")
	for _, l := range lines {
		month, status := "-", "-"
		if l.Kind == report.KindTuition {
			month, status = l.ConcernedMonth.String(), string(l.Status)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n", l.ChildName, l.Kind, l.Amount, l.Method, month, status)
	}
	return tw.Flush()
}

func percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}

func names(refs []report.ChildRef) string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Name)
	}
	return strings.Join(out, ", ")
}
