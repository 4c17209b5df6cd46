package sheets

import (
	"strings"

	"creche/internal/report"
)

// Header is the column layout of an exported report.
var Header = []any{
	"Période", "Scolarité", "Nb", "Frais d'inscription", "Nb", "Total",
	"Attendus", "Payés", "Impayés", "Taux", "Impayés (noms)",
}

// ReportValues lays out a report as spreadsheet rows: a title line, the
// header, one line per period and a closing total line. Amounts are numbers
// in euros so the sheet can sum them.
func ReportValues(title string, rows []report.Row, summary report.Summary) [][]any {
	out := make([][]any, 0, len(rows)+3)
	out = append(out, []any{title})
	out = append(out, Header)
	for _, r := range rows {
		out = append(out, []any{
			r.Label,
			r.Tuition.Euros(), r.TuitionCount,
			r.Fees.Euros(), r.FeeCount,
			r.Total.Euros(),
			r.Expected, r.Paid, r.Unpaid,
			r.RecoveryRate,
			unpaidNames(r.UnpaidChildren),
		})
	}
	out = append(out, []any{
		"Total",
		summary.Tuition.Euros(), summary.TuitionCount,
		summary.Fees.Euros(), summary.FeeCount,
		summary.Total.Euros(),
		"", "", "",
		summary.AverageRecoveryRate,
		"",
	})
	return out
}

func unpaidNames(refs []report.ChildRef) string {
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.Name)
	}
	return strings.Join(names, ", ")
}
