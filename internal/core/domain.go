package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"creche/internal/schoolyear"
)

const (
	StatusActive   ChildStatus = "active"
	StatusInactive ChildStatus = "inactive"
)

const (
	PaymentComplete PaymentStatus = "complete"
	PaymentPending  PaymentStatus = "pending"
)

const (
	MethodCash     PaymentMethod = "cash"
	MethodCheque   PaymentMethod = "cheque"
	MethodTransfer PaymentMethod = "transfer"
	MethodCard     PaymentMethod = "card"
)

type (
	ChildStatus   string
	PaymentStatus string
	PaymentMethod string

	// YearMonth is the billing period a tuition payment settles. A zero Year
	// means only the month name was recorded.
	YearMonth struct {
		Year  int
		Month time.Month
	}

	RegistrationFee struct {
		Total    Money
		Paid     Money
		Payments []FeePayment
	}

	Child struct {
		ID              string
		FirstName       string
		LastName        string
		EnrollmentDate  time.Time
		Class           string
		SchoolYear      string // assigned school-year identifier, may be empty
		MonthlyTuition  Money
		RegistrationFee RegistrationFee
		Status          ChildStatus
		LastReminder    *time.Time
	}

	Payment struct {
		ID             string
		ChildID        string
		Amount         Money
		PaymentDate    time.Time
		ConcernedMonth YearMonth
		Method         PaymentMethod
		Status         PaymentStatus
		SchoolYear     string // optional tag, e.g. "2023-2024"
		Comment        string
		LastReminder   *time.Time
	}

	FeePayment struct {
		ID          string
		ChildID     string
		Amount      Money
		PaymentDate time.Time
		Method      PaymentMethod
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyChildID        = errors.New("empty child id")
	ErrEmptyName           = errors.New("empty name")
	ErrMissingDate         = errors.New("date cannot be zero")
	ErrInvalidMonth        = errors.New("invalid month")
	ErrUnbillableMonth     = errors.New("month is outside the billable school year")
	ErrInvalidMethod       = errors.New("invalid payment method")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidTuition      = errors.New("monthly tuition cannot be negative")
	ErrInvalidRegistration = errors.New("registration fee cannot be negative")
)

// ParseYearMonth accepts "2024-01" or a bare English or French month name.
func ParseYearMonth(s string) (YearMonth, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return YearMonth{}, ErrInvalidMonth
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return YearMonth{Year: t.Year(), Month: t.Month()}, nil
	}
	if m, ok := schoolyear.ParseMonthName(s); ok {
		return YearMonth{Month: m}, nil
	}
	return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
}

func (ym YearMonth) HasYear() bool {
	return ym.Year != 0
}

// FirstDay returns the first day of the month. It is the zero time when the
// year is unknown.
func (ym YearMonth) FirstDay() time.Time {
	if !ym.HasYear() {
		return time.Time{}
	}
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
}

func (ym YearMonth) String() string {
	if !ym.HasYear() {
		return ym.Month.String()
	}
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

func (ym YearMonth) Validate() error {
	if ym.Month < time.January || ym.Month > time.December {
		return ErrInvalidMonth
	}
	if _, ok := schoolyear.SlotOfMonth(ym.Month); !ok {
		return ErrUnbillableMonth
	}
	return nil
}

func (s ChildStatus) Validate() error {
	switch s {
	case StatusActive, StatusInactive:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

func (s PaymentStatus) Validate() error {
	switch s {
	case PaymentComplete, PaymentPending:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

func (m PaymentMethod) Validate() error {
	switch m {
	case MethodCash, MethodCheque, MethodTransfer, MethodCard:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMethod, m)
	}
}

// DisplayName is "First Last", or the ID when both names are blank.
func (c Child) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
	if name == "" {
		return c.ID
	}
	return name
}

func (c Child) IsActive() bool {
	return c.Status == StatusActive
}

// Outstanding is what remains of the registration fee. Overpayment yields zero.
func (f RegistrationFee) Outstanding() Money {
	if f.Paid.Cents >= f.Total.Cents {
		return Money{}
	}
	return f.Total.Sub(f.Paid)
}

func (c Child) Validate() error {
	if strings.TrimSpace(c.FirstName) == "" && strings.TrimSpace(c.LastName) == "" {
		return ErrEmptyName
	}
	if c.EnrollmentDate.IsZero() {
		return fmt.Errorf("enrollment: %w", ErrMissingDate)
	}
	if c.MonthlyTuition.Cents < 0 {
		return ErrInvalidTuition
	}
	if c.RegistrationFee.Total.Cents < 0 || c.RegistrationFee.Paid.Cents < 0 {
		return ErrInvalidRegistration
	}
	if c.SchoolYear != "" {
		if _, err := schoolyear.Parse(c.SchoolYear); err != nil {
			return err
		}
	}
	return c.Status.Validate()
}

// IsComplete reports whether the payment counts towards settling its month.
func (p Payment) IsComplete() bool {
	return p.Status == PaymentComplete
}

// Bucket resolves the school year and slot the payment settles. A valid tag
// wins; otherwise the year is inferred from the concerned month. Payments for
// July or August, or with no tag and no year, have no bucket.
func (p Payment) Bucket() (schoolyear.SchoolYear, int, bool) {
	slot, ok := schoolyear.SlotOfMonth(p.ConcernedMonth.Month)
	if !ok {
		return schoolyear.SchoolYear{}, 0, false
	}
	if sy, err := schoolyear.Parse(p.SchoolYear); err == nil {
		return sy, slot, true
	}
	if !p.ConcernedMonth.HasYear() {
		return schoolyear.SchoolYear{}, 0, false
	}
	first := p.ConcernedMonth.FirstDay()
	return schoolyear.Of(first), slot, true
}

func (p Payment) Validate() error {
	if strings.TrimSpace(p.ChildID) == "" {
		return ErrEmptyChildID
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if p.PaymentDate.IsZero() {
		return fmt.Errorf("payment: %w", ErrMissingDate)
	}
	if err := p.ConcernedMonth.Validate(); err != nil {
		return err
	}
	if p.SchoolYear != "" {
		if _, err := schoolyear.Parse(p.SchoolYear); err != nil {
			return err
		}
	}
	if err := p.Method.Validate(); err != nil {
		return err
	}
	return p.Status.Validate()
}

func (f FeePayment) Validate() error {
	if strings.TrimSpace(f.ChildID) == "" {
		return ErrEmptyChildID
	}
	if err := f.Amount.Validate(); err != nil {
		return err
	}
	if f.PaymentDate.IsZero() {
		return fmt.Errorf("fee payment: %w", ErrMissingDate)
	}
	return f.Method.Validate()
}
