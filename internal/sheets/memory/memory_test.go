package memory

import (
	"context"
	"testing"

	"creche/internal/core"
	"creche/internal/report"
)

func TestWriterRecordsExports(t *testing.T) {
	w := New()
	rows := []report.Row{{Label: "2023-09", Tuition: core.Units(400), Total: core.Units(400)}}

	ref, err := w.WriteReport(context.Background(), "Septembre", rows, report.Summarize(rows))
	if err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}

	ref, _ = w.WriteReport(context.Background(), "Octobre", nil, report.Summary{})
	if ref != "mem:2" {
		t.Errorf("ref = %q, want mem:2", ref)
	}

	exports := w.Exports()
	if len(exports) != 2 || exports[0].Title != "Septembre" {
		t.Fatalf("exports = %+v", exports)
	}
	if got := len(exports[0].Values); got != 4 {
		t.Errorf("values rows = %d, want 4", got)
	}
}
