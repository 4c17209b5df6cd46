package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"creche/internal/core"
	"creche/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "creche.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creche.db")
	v1, err := RunMigrations(path)
	require.NoError(t, err)
	v2, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v1)
	assert.Equal(t, v1, v2)
}

func TestChildRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	reminded := time.Date(2023, time.November, 2, 10, 0, 0, 0, time.UTC)
	created, err := repo.CreateChild(ctx, core.Child{
		FirstName:       "Léa",
		LastName:        "Martin",
		EnrollmentDate:  day(2023, time.September, 1),
		Class:           "petits",
		SchoolYear:      "2023-2024",
		MonthlyTuition:  core.Units(800),
		RegistrationFee: core.RegistrationFee{Total: core.Units(300)},
		Status:          core.StatusActive,
		LastReminder:    &reminded,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := repo.GetChild(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Léa Martin", got.DisplayName())
	assert.Equal(t, day(2023, time.September, 1), got.EnrollmentDate)
	assert.Equal(t, core.Units(800), got.MonthlyTuition)
	assert.Equal(t, core.Units(300), got.RegistrationFee.Total)
	require.NotNil(t, got.LastReminder)
	assert.True(t, reminded.Equal(*got.LastReminder))

	got.Class = "moyens"
	got.LastReminder = nil
	require.NoError(t, repo.UpdateChild(ctx, got))
	got, err = repo.GetChild(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "moyens", got.Class)
	assert.Nil(t, got.LastReminder)

	_, err = repo.GetChild(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateChild(ctx, core.Child{ID: "missing", FirstName: "x", EnrollmentDate: day(2023, 9, 1), Status: core.StatusActive}), store.ErrNotFound)
}

func TestPaymentsAndFees(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	c, err := repo.CreateChild(ctx, core.Child{
		FirstName:       "Adam",
		EnrollmentDate:  day(2023, time.September, 1),
		MonthlyTuition:  core.Units(650),
		RegistrationFee: core.RegistrationFee{Total: core.Units(300)},
		Status:          core.StatusActive,
	})
	require.NoError(t, err)

	p, err := repo.CreatePayment(ctx, core.Payment{
		ChildID:        c.ID,
		Amount:         core.Money{Cents: 65050},
		PaymentDate:    day(2023, time.September, 4),
		ConcernedMonth: core.YearMonth{Month: time.September},
		Method:         core.MethodTransfer,
		Status:         core.PaymentComplete,
		SchoolYear:     "2023-2024",
		Comment:        "virement",
	})
	require.NoError(t, err)

	_, err = repo.CreatePayment(ctx, core.Payment{
		ChildID:        "missing",
		Amount:         core.Units(1),
		PaymentDate:    day(2023, time.September, 4),
		ConcernedMonth: core.YearMonth{Year: 2023, Month: time.September},
		Method:         core.MethodCash,
		Status:         core.PaymentComplete,
	})
	assert.ErrorIs(t, err, store.ErrNotFound)

	payments, err := repo.ListPayments(ctx)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, p.ID, payments[0].ID)
	assert.Equal(t, core.YearMonth{Month: time.September}, payments[0].ConcernedMonth)
	assert.Equal(t, "2023-2024", payments[0].SchoolYear)
	assert.Equal(t, "virement", payments[0].Comment)

	for _, amount := range []int64{100, 50} {
		_, err := repo.CreateFeePayment(ctx, core.FeePayment{
			ChildID:     c.ID,
			Amount:      core.Units(amount),
			PaymentDate: day(2023, time.September, 2),
			Method:      core.MethodCash,
		})
		require.NoError(t, err)
	}
	_, err = repo.CreateFeePayment(ctx, core.FeePayment{ChildID: "missing", Amount: core.Units(1), PaymentDate: day(2023, 9, 2), Method: core.MethodCash})
	assert.ErrorIs(t, err, store.ErrNotFound)

	children, err := repo.ListChildren(ctx)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, core.Units(150), children[0].RegistrationFee.Paid)
	assert.Len(t, children[0].RegistrationFee.Payments, 2)
	assert.Equal(t, core.Units(150), children[0].RegistrationFee.Outstanding())

	require.NoError(t, repo.MarkReminded(ctx, c.ID, time.Date(2023, time.October, 5, 8, 0, 0, 0, time.UTC)))
	got, err := repo.GetChild(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastReminder)
	assert.ErrorIs(t, repo.MarkReminded(ctx, "missing", time.Now()), store.ErrNotFound)

	require.NoError(t, repo.DeletePayment(ctx, p.ID))
	assert.ErrorIs(t, repo.DeletePayment(ctx, p.ID), store.ErrNotFound)

	require.NoError(t, repo.DeleteChild(ctx, c.ID))
	fees, err := repo.ListFeePayments(ctx)
	require.NoError(t, err)
	assert.Empty(t, fees)
	assert.ErrorIs(t, repo.DeleteChild(ctx, c.ID), store.ErrNotFound)
}
