// Package services orchestrates the billing core over a record store:
// loading, memoizing, exporting and reminding.
package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"creche/internal/cache"
	"creche/internal/core"
	"creche/internal/store"
)

// Snapshot is a consistent-enough read of every record the billing core
// needs. Computations never write back into it.
type Snapshot struct {
	Children []core.Child
	Payments []core.Payment
	Fees     []core.FeePayment
}

// LoadSnapshot reads children, payments and fee payments concurrently.
func LoadSnapshot(ctx context.Context, r store.Reader) (Snapshot, error) {
	var s Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		children, err := r.ListChildren(ctx)
		if err != nil {
			return fmt.Errorf("list children: %w", err)
		}
		s.Children = children
		return nil
	})
	g.Go(func() error {
		payments, err := r.ListPayments(ctx)
		if err != nil {
			return fmt.Errorf("list payments: %w", err)
		}
		s.Payments = payments
		return nil
	})
	g.Go(func() error {
		fees, err := r.ListFeePayments(ctx)
		if err != nil {
			return fmt.Errorf("list fee payments: %w", err)
		}
		s.Fees = fees
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Fingerprint hashes every field that can change a derived result. Two
// snapshots with the same fingerprint produce the same reports.
func (s Snapshot) Fingerprint() string {
	parts := make([]string, 0, 3+len(s.Children)*10+len(s.Payments)*8+len(s.Fees)*4)
	parts = append(parts, strconv.Itoa(len(s.Children)), strconv.Itoa(len(s.Payments)), strconv.Itoa(len(s.Fees)))
	for _, c := range s.Children {
		parts = append(parts,
			c.ID, c.FirstName, c.LastName, c.Class, c.SchoolYear, string(c.Status),
			day(c.EnrollmentDate),
			cents(c.MonthlyTuition), cents(c.RegistrationFee.Total), cents(c.RegistrationFee.Paid),
			stamp(c.LastReminder),
		)
	}
	for _, p := range s.Payments {
		parts = append(parts,
			p.ID, p.ChildID, cents(p.Amount), day(p.PaymentDate),
			p.ConcernedMonth.String(), string(p.Method), string(p.Status), p.SchoolYear,
			stamp(p.LastReminder),
		)
	}
	for _, f := range s.Fees {
		parts = append(parts, f.ID, f.ChildID, cents(f.Amount), day(f.PaymentDate), string(f.Method))
	}
	return cache.Key(parts...)
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func stamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func cents(m core.Money) string {
	return strconv.FormatInt(m.Cents, 10)
}
