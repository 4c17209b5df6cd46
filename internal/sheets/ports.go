package sheets

import (
	"context"

	"creche/internal/report"
)

// Ports for outbound adapters.
type (
	// ReportWriter exports a generated report and returns a reference to the
	// written range.
	ReportWriter interface {
		WriteReport(ctx context.Context, title string, rows []report.Row, summary report.Summary) (ref string, err error)
	}
)
