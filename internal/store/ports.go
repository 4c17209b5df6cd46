// Package store declares the record-store ports the billing core reads from
// and the adapters write through.
package store

import (
	"context"
	"errors"
	"time"

	"creche/internal/core"
)

var ErrNotFound = errors.New("record not found")

// Ports for the record store.
type (
	ChildReader interface {
		ListChildren(ctx context.Context) ([]core.Child, error)
		GetChild(ctx context.Context, id string) (core.Child, error)
	}

	PaymentReader interface {
		ListPayments(ctx context.Context) ([]core.Payment, error)
	}

	FeePaymentReader interface {
		ListFeePayments(ctx context.Context) ([]core.FeePayment, error)
	}

	// ReminderMarker records that a reminder went out to a child's family.
	ReminderMarker interface {
		MarkReminded(ctx context.Context, childID string, at time.Time) error
	}

	ChildWriter interface {
		CreateChild(ctx context.Context, c core.Child) (core.Child, error)
		UpdateChild(ctx context.Context, c core.Child) error
		DeleteChild(ctx context.Context, id string) error
	}

	PaymentWriter interface {
		CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error)
		DeletePayment(ctx context.Context, id string) error
	}

	// FeePaymentWriter records registration-fee payments. Recording one also
	// raises the owning child's paid amount.
	FeePaymentWriter interface {
		CreateFeePayment(ctx context.Context, f core.FeePayment) (core.FeePayment, error)
	}

	Reader interface {
		ChildReader
		PaymentReader
		FeePaymentReader
	}

	Store interface {
		Reader
		ReminderMarker
		ChildWriter
		PaymentWriter
		FeePaymentWriter
		Close() error
	}
)
