// Package memory is an in-process record store, seeded from a JSON file.
package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"creche/internal/core"
	"creche/internal/store"

	"github.com/google/uuid"
)

// SeedFile is the file NewFromFiles looks for in its base directory.
const SeedFile = "seed.json"

type Store struct {
	mu       sync.Mutex
	children []core.Child
	payments []core.Payment
	fees     []core.FeePayment
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// NewFromFiles loads base/seed.json. A missing file yields an empty store.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	b, err := os.ReadFile(filepath.Join(base, SeedFile))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read seed: %w", err)
	}
	if err := s.load(b); err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}
	return s, nil
}

func (s *Store) ListChildren(_ context.Context) ([]core.Child, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Child, 0, len(s.children))
	for _, c := range s.children {
		out = append(out, s.withFees(c))
	}
	return out, nil
}

func (s *Store) GetChild(_ context.Context, id string) (core.Child, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.childIndex(id)
	if i < 0 {
		return core.Child{}, fmt.Errorf("child %s: %w", id, store.ErrNotFound)
	}
	return s.withFees(s.children[i]), nil
}

func (s *Store) ListPayments(_ context.Context) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Payment(nil), s.payments...), nil
}

func (s *Store) ListFeePayments(_ context.Context) ([]core.FeePayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.FeePayment(nil), s.fees...), nil
}

func (s *Store) MarkReminded(_ context.Context, childID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.childIndex(childID)
	if i < 0 {
		return fmt.Errorf("child %s: %w", childID, store.ErrNotFound)
	}
	t := at.UTC()
	s.children[i].LastReminder = &t
	return nil
}

func (s *Store) CreateChild(_ context.Context, c core.Child) (core.Child, error) {
	if err := c.Validate(); err != nil {
		return core.Child{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.RegistrationFee.Payments = nil
	s.children = append(s.children, c)
	return c, nil
}

func (s *Store) UpdateChild(_ context.Context, c core.Child) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.childIndex(c.ID)
	if i < 0 {
		return fmt.Errorf("child %s: %w", c.ID, store.ErrNotFound)
	}
	c.RegistrationFee.Payments = nil
	s.children[i] = c
	return nil
}

// DeleteChild removes the child together with its payments.
func (s *Store) DeleteChild(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.childIndex(id)
	if i < 0 {
		return fmt.Errorf("child %s: %w", id, store.ErrNotFound)
	}
	s.children = append(s.children[:i], s.children[i+1:]...)

	payments := s.payments[:0]
	for _, p := range s.payments {
		if p.ChildID != id {
			payments = append(payments, p)
		}
	}
	s.payments = payments

	fees := s.fees[:0]
	for _, f := range s.fees {
		if f.ChildID != id {
			fees = append(fees, f)
		}
	}
	s.fees = fees
	return nil
}

func (s *Store) CreatePayment(_ context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.childIndex(p.ChildID) < 0 {
		return core.Payment{}, fmt.Errorf("child %s: %w", p.ChildID, store.ErrNotFound)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.payments = append(s.payments, p)
	return p, nil
}

func (s *Store) DeletePayment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.payments {
		if p.ID == id {
			s.payments = append(s.payments[:i], s.payments[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("payment %s: %w", id, store.ErrNotFound)
}

func (s *Store) CreateFeePayment(_ context.Context, f core.FeePayment) (core.FeePayment, error) {
	if err := f.Validate(); err != nil {
		return core.FeePayment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.childIndex(f.ChildID)
	if i < 0 {
		return core.FeePayment{}, fmt.Errorf("child %s: %w", f.ChildID, store.ErrNotFound)
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	s.fees = append(s.fees, f)
	s.children[i].RegistrationFee.Paid = s.children[i].RegistrationFee.Paid.Add(f.Amount)
	return f, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) childIndex(id string) int {
	for i, c := range s.children {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// withFees returns a copy of c carrying its own fee payments. Callers must hold mu.
func (s *Store) withFees(c core.Child) core.Child {
	c.RegistrationFee.Payments = nil
	for _, f := range s.fees {
		if f.ChildID == c.ID {
			c.RegistrationFee.Payments = append(c.RegistrationFee.Payments, f)
		}
	}
	return c
}
