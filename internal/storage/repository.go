package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"creche/internal/core"
	"creche/internal/store"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	dateLayout  = "2006-01-02"
	stampLayout = time.RFC3339
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const childColumns = `id, first_name, last_name, enrollment_date, class, school_year,
	monthly_tuition_cents, registration_fee_cents, registration_paid_cents, status, last_reminder`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChild(row rowScanner) (core.Child, error) {
	var (
		c        core.Child
		enrolled string
		status   string
		reminder sql.NullString
	)
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &enrolled, &c.Class, &c.SchoolYear,
		&c.MonthlyTuition.Cents, &c.RegistrationFee.Total.Cents, &c.RegistrationFee.Paid.Cents,
		&status, &reminder)
	if err != nil {
		return core.Child{}, err
	}
	c.Status = core.ChildStatus(status)
	if c.EnrollmentDate, err = time.Parse(dateLayout, enrolled); err != nil {
		return core.Child{}, fmt.Errorf("child %s enrollment date: %w", c.ID, err)
	}
	if c.LastReminder, err = parseStamp(reminder); err != nil {
		return core.Child{}, fmt.Errorf("child %s last reminder: %w", c.ID, err)
	}
	return c, nil
}

// ListChildren implements store.ChildReader. Each child carries its fee payments.
func (r *SQLiteRepository) ListChildren(ctx context.Context) ([]core.Child, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+childColumns+` FROM children ORDER BY last_name, first_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var children []core.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate children: %w", err)
	}

	fees, err := r.ListFeePayments(ctx)
	if err != nil {
		return nil, err
	}
	byChild := make(map[string][]core.FeePayment)
	for _, f := range fees {
		byChild[f.ChildID] = append(byChild[f.ChildID], f)
	}
	for i := range children {
		children[i].RegistrationFee.Payments = byChild[children[i].ID]
	}
	return children, nil
}

// GetChild implements store.ChildReader.
func (r *SQLiteRepository) GetChild(ctx context.Context, id string) (core.Child, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+childColumns+` FROM children WHERE id = ?`, id)
	c, err := scanChild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Child{}, fmt.Errorf("child %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.Child{}, fmt.Errorf("get child %s: %w", id, err)
	}

	fees, err := r.feePayments(ctx, `WHERE child_id = ?`, id)
	if err != nil {
		return core.Child{}, err
	}
	c.RegistrationFee.Payments = fees
	return c, nil
}

// ListPayments implements store.PaymentReader.
func (r *SQLiteRepository) ListPayments(ctx context.Context) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, child_id, amount_cents, payment_date, concerned_year,
		concerned_month, method, status, school_year, comment, last_reminder
		FROM tuition_payments ORDER BY payment_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		var (
			p        core.Payment
			paidOn   string
			month    int
			method   string
			status   string
			reminder sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.ChildID, &p.Amount.Cents, &paidOn, &p.ConcernedMonth.Year,
			&month, &method, &status, &p.SchoolYear, &p.Comment, &reminder); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.ConcernedMonth.Month = time.Month(month)
		p.Method = core.PaymentMethod(method)
		p.Status = core.PaymentStatus(status)
		if p.PaymentDate, err = time.Parse(dateLayout, paidOn); err != nil {
			return nil, fmt.Errorf("payment %s date: %w", p.ID, err)
		}
		if p.LastReminder, err = parseStamp(reminder); err != nil {
			return nil, fmt.Errorf("payment %s last reminder: %w", p.ID, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return out, nil
}

// ListFeePayments implements store.FeePaymentReader.
func (r *SQLiteRepository) ListFeePayments(ctx context.Context) ([]core.FeePayment, error) {
	return r.feePayments(ctx, "")
}

func (r *SQLiteRepository) feePayments(ctx context.Context, where string, args ...any) ([]core.FeePayment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, child_id, amount_cents, payment_date, method
		FROM fee_payments `+where+` ORDER BY payment_date, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list fee payments: %w", err)
	}
	defer rows.Close()

	var out []core.FeePayment
	for rows.Next() {
		var (
			f      core.FeePayment
			paidOn string
			method string
		)
		if err := rows.Scan(&f.ID, &f.ChildID, &f.Amount.Cents, &paidOn, &method); err != nil {
			return nil, fmt.Errorf("scan fee payment: %w", err)
		}
		f.Method = core.PaymentMethod(method)
		if f.PaymentDate, err = time.Parse(dateLayout, paidOn); err != nil {
			return nil, fmt.Errorf("fee payment %s date: %w", f.ID, err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fee payments: %w", err)
	}
	return out, nil
}

// MarkReminded implements store.ReminderMarker.
func (r *SQLiteRepository) MarkReminded(ctx context.Context, childID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE children SET last_reminder = ? WHERE id = ?`,
		at.UTC().Format(stampLayout), childID)
	if err != nil {
		return fmt.Errorf("mark child %s reminded: %w", childID, err)
	}
	return expectOne(res, "child", childID)
}

// CreateChild implements store.ChildWriter.
func (r *SQLiteRepository) CreateChild(ctx context.Context, c core.Child) (core.Child, error) {
	if err := c.Validate(); err != nil {
		return core.Child{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO children (`+childColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.FirstName, c.LastName, c.EnrollmentDate.Format(dateLayout), c.Class, c.SchoolYear,
		c.MonthlyTuition.Cents, c.RegistrationFee.Total.Cents, c.RegistrationFee.Paid.Cents,
		string(c.Status), formatStamp(c.LastReminder))
	if err != nil {
		return core.Child{}, fmt.Errorf("create child: %w", err)
	}

	slog.InfoContext(ctx, "Child saved to SQLite",
		"child_id", c.ID,
		"class", c.Class,
		"school_year", c.SchoolYear)

	c.RegistrationFee.Payments = nil
	return c, nil
}

// UpdateChild implements store.ChildWriter.
func (r *SQLiteRepository) UpdateChild(ctx context.Context, c core.Child) error {
	if err := c.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE children SET first_name = ?, last_name = ?, enrollment_date = ?,
		class = ?, school_year = ?, monthly_tuition_cents = ?, registration_fee_cents = ?,
		registration_paid_cents = ?, status = ?, last_reminder = ? WHERE id = ?`,
		c.FirstName, c.LastName, c.EnrollmentDate.Format(dateLayout), c.Class, c.SchoolYear,
		c.MonthlyTuition.Cents, c.RegistrationFee.Total.Cents, c.RegistrationFee.Paid.Cents,
		string(c.Status), formatStamp(c.LastReminder), c.ID)
	if err != nil {
		return fmt.Errorf("update child %s: %w", c.ID, err)
	}
	return expectOne(res, "child", c.ID)
}

// DeleteChild implements store.ChildWriter. Payments of the child go with it.
func (r *SQLiteRepository) DeleteChild(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM tuition_payments WHERE child_id = ?`,
		`DELETE FROM fee_payments WHERE child_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete payments of child %s: %w", id, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM children WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete child %s: %w", id, err)
	}
	if err := expectOne(res, "child", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Child deleted from SQLite", "child_id", id)
	return nil
}

// CreatePayment implements store.PaymentWriter.
func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	if err := r.childExists(ctx, r.db, p.ChildID); err != nil {
		return core.Payment{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO tuition_payments (id, child_id, amount_cents, payment_date,
		concerned_year, concerned_month, method, status, school_year, comment, last_reminder)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ChildID, p.Amount.Cents, p.PaymentDate.Format(dateLayout), p.ConcernedMonth.Year,
		int(p.ConcernedMonth.Month), string(p.Method), string(p.Status), p.SchoolYear, p.Comment,
		formatStamp(p.LastReminder))
	if err != nil {
		return core.Payment{}, fmt.Errorf("create payment: %w", err)
	}

	slog.InfoContext(ctx, "Payment saved to SQLite",
		"payment_id", p.ID,
		"child_id", p.ChildID,
		"amount_cents", p.Amount.Cents,
		"concerned_month", p.ConcernedMonth.String())

	return p, nil
}

// DeletePayment implements store.PaymentWriter.
func (r *SQLiteRepository) DeletePayment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tuition_payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete payment %s: %w", id, err)
	}
	return expectOne(res, "payment", id)
}

// CreateFeePayment implements store.FeePaymentWriter. The payment and the
// child's paid amount are written in one transaction.
func (r *SQLiteRepository) CreateFeePayment(ctx context.Context, f core.FeePayment) (core.FeePayment, error) {
	if err := f.Validate(); err != nil {
		return core.FeePayment{}, err
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.FeePayment{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.childExists(ctx, tx, f.ChildID); err != nil {
		return core.FeePayment{}, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO fee_payments (id, child_id, amount_cents, payment_date, method)
		VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.ChildID, f.Amount.Cents, f.PaymentDate.Format(dateLayout), string(f.Method)); err != nil {
		return core.FeePayment{}, fmt.Errorf("create fee payment: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE children SET registration_paid_cents = registration_paid_cents + ?
		WHERE id = ?`, f.Amount.Cents, f.ChildID); err != nil {
		return core.FeePayment{}, fmt.Errorf("update registration paid: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.FeePayment{}, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Fee payment saved to SQLite",
		"payment_id", f.ID,
		"child_id", f.ChildID,
		"amount_cents", f.Amount.Cents)

	return f, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteRepository) childExists(ctx context.Context, q queryer, id string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM children WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("child %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lookup child %s: %w", id, err)
	}
	return nil
}

func expectOne(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return nil
}

func formatStamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(stampLayout)
}

func parseStamp(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(stampLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
