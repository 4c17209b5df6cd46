package core

import (
	"errors"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseYearMonth(t *testing.T) {
	cases := []struct {
		in   string
		want YearMonth
		ok   bool
	}{
		{"2024-01", YearMonth{Year: 2024, Month: time.January}, true},
		{"2023-09", YearMonth{Year: 2023, Month: time.September}, true},
		{"Janvier", YearMonth{Month: time.January}, true},
		{"october", YearMonth{Month: time.October}, true},
		{"2024-13", YearMonth{}, false},
		{"soon", YearMonth{}, false},
		{"", YearMonth{}, false},
	}
	for _, tc := range cases {
		got, err := ParseYearMonth(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.want, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("%q expected ErrInvalidMonth, got %v", tc.in, err)
		}
	}
}

func TestYearMonthValidate(t *testing.T) {
	if err := (YearMonth{Year: 2024, Month: time.January}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (YearMonth{Year: 2024, Month: time.July}).Validate(); !errors.Is(err, ErrUnbillableMonth) {
		t.Fatalf("expected ErrUnbillableMonth, got %v", err)
	}
	if err := (YearMonth{}).Validate(); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestPaymentBucket(t *testing.T) {
	cases := []struct {
		name     string
		p        Payment
		wantSY   int
		wantSlot int
		ok       bool
	}{
		{
			name:     "tag wins",
			p:        Payment{ConcernedMonth: YearMonth{Year: 2025, Month: time.January}, SchoolYear: "2023-2024"},
			wantSY:   2023,
			wantSlot: 4,
			ok:       true,
		},
		{
			name:     "inferred from concerned month",
			p:        Payment{ConcernedMonth: YearMonth{Year: 2023, Month: time.October}},
			wantSY:   2023,
			wantSlot: 1,
			ok:       true,
		},
		{
			name:     "invalid tag falls back",
			p:        Payment{ConcernedMonth: YearMonth{Year: 2024, Month: time.June}, SchoolYear: "2024"},
			wantSY:   2023,
			wantSlot: 9,
			ok:       true,
		},
		{
			name:     "month only with tag",
			p:        Payment{ConcernedMonth: YearMonth{Month: time.March}, SchoolYear: "2022-2023"},
			wantSY:   2022,
			wantSlot: 6,
			ok:       true,
		},
		{
			name: "month only without tag",
			p:    Payment{ConcernedMonth: YearMonth{Month: time.March}},
		},
		{
			name: "summer month",
			p:    Payment{ConcernedMonth: YearMonth{Year: 2024, Month: time.July}, SchoolYear: "2023-2024"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sy, slot, ok := tc.p.Bucket()
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if !ok {
				return
			}
			if sy.Start != tc.wantSY || slot != tc.wantSlot {
				t.Fatalf("got %s/%d, want %d/%d", sy, slot, tc.wantSY, tc.wantSlot)
			}
		})
	}
}

func TestChildHelpers(t *testing.T) {
	c := Child{ID: "c1", FirstName: " Léa ", LastName: "Martin"}
	if got := c.DisplayName(); got != "Léa Martin" {
		t.Fatalf("display name: %q", got)
	}
	if got := (Child{ID: "c2"}).DisplayName(); got != "c2" {
		t.Fatalf("fallback display name: %q", got)
	}

	fee := RegistrationFee{Total: Units(300), Paid: Units(100)}
	if got := fee.Outstanding(); got != Units(200) {
		t.Fatalf("outstanding: %v", got)
	}
	fee.Paid = Units(350)
	if got := fee.Outstanding(); !got.IsZero() {
		t.Fatalf("overpaid outstanding: %v", got)
	}
}

func TestChildValidate(t *testing.T) {
	good := Child{
		FirstName:      "Léa",
		EnrollmentDate: day(2023, time.September, 1),
		MonthlyTuition: Units(800),
		SchoolYear:     "2023-2024",
		Status:         StatusActive,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []func(c *Child){
		func(c *Child) { c.FirstName = "" },
		func(c *Child) { c.EnrollmentDate = time.Time{} },
		func(c *Child) { c.MonthlyTuition = Money{Cents: -1} },
		func(c *Child) { c.RegistrationFee.Total = Money{Cents: -1} },
		func(c *Child) { c.SchoolYear = "2023-2025" },
		func(c *Child) { c.Status = "gone" },
	}
	for i, mutate := range bads {
		c := good
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestPaymentValidate(t *testing.T) {
	good := Payment{
		ChildID:        "c1",
		Amount:         Units(800),
		PaymentDate:    day(2024, time.January, 5),
		ConcernedMonth: YearMonth{Year: 2024, Month: time.January},
		Method:         MethodTransfer,
		Status:         PaymentComplete,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []func(p *Payment){
		func(p *Payment) { p.ChildID = " " },
		func(p *Payment) { p.Amount = Money{} },
		func(p *Payment) { p.PaymentDate = time.Time{} },
		func(p *Payment) { p.ConcernedMonth = YearMonth{Year: 2024, Month: time.August} },
		func(p *Payment) { p.SchoolYear = "nope" },
		func(p *Payment) { p.Method = "bitcoin" },
		func(p *Payment) { p.Status = "" },
	}
	for i, mutate := range bads {
		p := good
		mutate(&p)
		if err := p.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestFeePaymentValidate(t *testing.T) {
	good := FeePayment{ChildID: "c1", Amount: Units(150), PaymentDate: day(2023, time.September, 2), Method: MethodCash}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bad := good
	bad.Amount = Money{}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
