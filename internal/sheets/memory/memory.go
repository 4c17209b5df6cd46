package memory

import (
	"context"
	"fmt"
	"sync"

	"creche/internal/report"
	ports "creche/internal/sheets"
)

// Writer keeps exported reports in memory. It backs the report command when
// no spreadsheet is configured and is used in tests.
type Writer struct {
	mu      sync.Mutex
	exports []Export
}

type Export struct {
	Title  string
	Values [][]any
}

var _ ports.ReportWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{}
}

func (w *Writer) WriteReport(_ context.Context, title string, rows []report.Row, summary report.Summary) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.exports = append(w.exports, Export{Title: title, Values: ports.ReportValues(title, rows, summary)})
	return fmt.Sprintf("mem:%d", len(w.exports)), nil
}

func (w *Writer) Exports() []Export {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Export(nil), w.exports...)
}
