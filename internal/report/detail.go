package report

import (
	"sort"
	"strings"
	"time"

	"creche/internal/core"
	"creche/internal/schoolyear"
)

// Kind tells tuition and registration-fee lines apart.
type Kind string

const (
	KindTuition      Kind = "tuition"
	KindRegistration Kind = "registration"
)

// DetailLine is one payment made on a given day.
type DetailLine struct {
	Kind           Kind
	PaymentID      string
	ChildID        string
	ChildName      string
	Amount         core.Money
	Method         core.PaymentMethod
	PaymentDate    time.Time
	ConcernedMonth core.YearMonth // zero for registration fees
	Status         core.PaymentStatus
}

// DayDetail lists every tuition and fee payment dated on day, sorted by
// child name. Payments of unknown children show the child ID as name.
func DayDetail(day time.Time, children []core.Child, payments []core.Payment, fees []core.FeePayment) []DetailLine {
	names := make(map[string]string, len(children))
	for _, c := range children {
		names[c.ID] = c.DisplayName()
	}
	nameOf := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}

	target := schoolyear.Day(day)
	out := []DetailLine{}
	for _, p := range payments {
		if p.PaymentDate.IsZero() || !schoolyear.Day(p.PaymentDate).Equal(target) {
			continue
		}
		out = append(out, DetailLine{
			Kind:           KindTuition,
			PaymentID:      p.ID,
			ChildID:        p.ChildID,
			ChildName:      nameOf(p.ChildID),
			Amount:         p.Amount,
			Method:         p.Method,
			PaymentDate:    p.PaymentDate,
			ConcernedMonth: p.ConcernedMonth,
			Status:         p.Status,
		})
	}
	for _, f := range fees {
		if f.PaymentDate.IsZero() || !schoolyear.Day(f.PaymentDate).Equal(target) {
			continue
		}
		out = append(out, DetailLine{
			Kind:        KindRegistration,
			PaymentID:   f.ID,
			ChildID:     f.ChildID,
			ChildName:   nameOf(f.ChildID),
			Amount:      f.Amount,
			Method:      f.Method,
			PaymentDate: f.PaymentDate,
			Status:      core.PaymentComplete,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].ChildName), strings.ToLower(out[j].ChildName)
		if a != b {
			return a < b
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind > out[j].Kind // tuition first
		}
		return out[i].PaymentID < out[j].PaymentID
	})
	return out
}
