package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creche/internal/amqp"
	"creche/internal/arrears"
	"creche/internal/core"
	"creche/internal/log"
	"creche/internal/metrics"
	"creche/internal/report"
	"creche/internal/schoolyear"
	sheetsmem "creche/internal/sheets/memory"
	"creche/internal/store"
	"creche/internal/store/memory"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Format: "json", Output: &bytes.Buffer{}})
}

// seeded returns a store holding one child enrolled on 2023-09-01 at 400 a
// month, with an unpaid 100 registration fee and September paid on the 3rd.
func seeded(t *testing.T) (*memory.Store, core.Child) {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	c, err := s.CreateChild(ctx, core.Child{
		FirstName:       "Léa",
		LastName:        "Martin",
		EnrollmentDate:  date(2023, time.September, 1),
		Class:           "Petits",
		MonthlyTuition:  core.Units(400),
		RegistrationFee: core.RegistrationFee{Total: core.Units(100)},
		Status:          core.StatusActive,
	})
	require.NoError(t, err)
	_, err = s.CreatePayment(ctx, core.Payment{
		ChildID:        c.ID,
		Amount:         core.Units(400),
		PaymentDate:    date(2023, time.September, 3),
		ConcernedMonth: core.YearMonth{Year: 2023, Month: time.September},
		Method:         core.MethodTransfer,
		Status:         core.PaymentComplete,
	})
	require.NoError(t, err)
	return s, c
}

func newBilling(r store.Reader) *BillingService {
	return NewBillingService(r, BillingOptions{Metrics: metrics.New(), Logger: quietLogger()})
}

func TestLoadSnapshotAndFingerprint(t *testing.T) {
	ctx := context.Background()
	s, c := seeded(t)

	a, err := LoadSnapshot(ctx, s)
	require.NoError(t, err)
	assert.Len(t, a.Children, 1)
	assert.Len(t, a.Payments, 1)
	assert.Empty(t, a.Fees)

	b, err := LoadSnapshot(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	require.NoError(t, s.MarkReminded(ctx, c.ID, date(2023, time.November, 2)))
	b, err = LoadSnapshot(ctx, s)
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

type failingReader struct {
	*memory.Store
}

func (failingReader) ListPayments(context.Context) ([]core.Payment, error) {
	return nil, errors.New("disk on fire")
}

func TestLoadSnapshotError(t *testing.T) {
	s, _ := seeded(t)
	_, err := LoadSnapshot(context.Background(), failingReader{s})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list payments")

	_, err = newBilling(failingReader{s}).Dashboard(context.Background(), schoolyear.New(2023))
	assert.Error(t, err)
}

func TestDashboardIsMemoized(t *testing.T) {
	ctx := context.Background()
	s, c := seeded(t)
	svc := newBilling(s)
	sy := schoolyear.New(2023)

	ov, err := svc.Dashboard(ctx, sy)
	require.NoError(t, err)
	assert.Equal(t, core.Units(400), ov.TuitionTotal)
	assert.Equal(t, 1, ov.ActiveChildren)

	_, err = svc.Dashboard(ctx, sy)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), svc.dashboards.Stats().Hits)

	_, err = s.CreateFeePayment(ctx, core.FeePayment{
		ChildID:     c.ID,
		Amount:      core.Units(100),
		PaymentDate: date(2023, time.October, 2),
		Method:      core.MethodCash,
	})
	require.NoError(t, err)

	ov, err = svc.Dashboard(ctx, sy)
	require.NoError(t, err)
	assert.Equal(t, core.Units(100), ov.FeeTotal)
	assert.Equal(t, core.Units(500), ov.Combined)
	assert.Equal(t, uint64(2), svc.dashboards.Stats().Misses)
}

func TestCachedResultsAreCopied(t *testing.T) {
	ctx := context.Background()
	s, _ := seeded(t)
	svc := newBilling(s)
	sy := schoolyear.New(2023)

	ov, err := svc.Dashboard(ctx, sy)
	require.NoError(t, err)
	ov.Monthly[0].Total = core.Units(1)
	ov.Fees["Septembre"] = core.Units(999)

	ov, err = svc.Dashboard(ctx, sy)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), svc.dashboards.Stats().Hits)
	assert.Equal(t, core.Units(400), ov.Monthly[0].Total)
	assert.NotEqual(t, core.Units(999), ov.Fees["Septembre"])

	rng := report.Range{From: date(2023, time.September, 1), To: date(2023, time.October, 31)}
	rows, _, err := svc.Report(ctx, rng, report.Monthly)
	require.NoError(t, err)
	require.Len(t, rows[0].PaidChildren, 1)
	rows[0].Tuition = core.Money{}
	rows[0].PaidChildren[0] = report.ChildRef{}

	rows, _, err = svc.Report(ctx, rng, report.Monthly)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), svc.reports.Stats().Hits)
	assert.Equal(t, core.Units(400), rows[0].Tuition)
	assert.NotEqual(t, report.ChildRef{}, rows[0].PaidChildren[0])
}

func TestArrears(t *testing.T) {
	s, _ := seeded(t)
	svc := newBilling(s)

	entries, stats, err := svc.Arrears(context.Background(), date(2023, time.December, 15), arrears.Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, arrears.Registration, entries[0].Obligation)
	assert.Equal(t, 105, entries[0].DaysLate)
	assert.Equal(t, arrears.Critical, entries[0].Band)

	assert.Equal(t, arrears.Tuition, entries[1].Obligation)
	assert.Equal(t, 75, entries[1].DaysLate)
	assert.Equal(t, 2, entries[1].OverdueMonths)
	assert.Equal(t, core.YearMonth{Year: 2023, Month: time.October}, entries[1].Period)

	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, core.Units(500), stats.TotalDue)

	filtered, stats, err := svc.Arrears(context.Background(), date(2023, time.December, 15),
		arrears.Filter{Bands: []arrears.Band{arrears.Critical}})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)
	assert.Equal(t, 2, stats.Critical)
}

func TestReportAndExport(t *testing.T) {
	ctx := context.Background()
	s, _ := seeded(t)
	svc := newBilling(s)
	rng := report.Range{From: date(2023, time.September, 1), To: date(2023, time.October, 31)}

	rows, summary, err := svc.Report(ctx, rng, report.Monthly)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, core.Units(400), rows[0].Tuition)
	assert.Equal(t, 1, rows[0].Expected)
	assert.Equal(t, 1, rows[0].Paid)
	assert.Equal(t, 1.0, rows[0].RecoveryRate)
	assert.Equal(t, 0, rows[1].Paid)
	assert.Equal(t, core.Units(400), summary.Total)
	assert.Equal(t, 0.5, summary.AverageRecoveryRate)

	_, _, err = svc.Report(ctx, rng, report.Monthly)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), svc.reports.Stats().Hits)

	w := sheetsmem.New()
	ref, err := svc.ExportReport(ctx, w, "Automne 2023", rng, report.Monthly)
	require.NoError(t, err)
	assert.Equal(t, "mem:1", ref)
	require.Len(t, w.Exports(), 1)
	assert.Equal(t, "Automne 2023", w.Exports()[0].Title)
}

func TestDayDetail(t *testing.T) {
	s, _ := seeded(t)
	lines, err := newBilling(s).DayDetail(context.Background(), date(2023, time.September, 3))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Léa Martin", lines[0].ChildName)

	lines, err = newBilling(s).DayDetail(context.Background(), date(2023, time.September, 4))
	require.NoError(t, err)
	assert.Empty(t, lines)
}

type fakePublisher struct {
	sent []*amqp.ReminderMessage
	err  error
}

func (f *fakePublisher) PublishReminder(_ context.Context, msg *amqp.ReminderMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestSendDue(t *testing.T) {
	ctx := context.Background()
	s, c := seeded(t)
	pub := &fakePublisher{}
	svc := NewReminderService(newBilling(s), s, pub, CooldownPolicy{Cooldown: 7 * 24 * time.Hour}, metrics.New(), quietLogger())
	now := date(2023, time.December, 15)

	res, err := svc.SendDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, ReminderResult{Due: 2, Sent: 2}, res)
	require.Len(t, pub.sent, 2)
	assert.Equal(t, "registration", pub.sent[0].Obligation)
	assert.Equal(t, "2023-10", pub.sent[1].Period)

	got, err := s.GetChild(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastReminder)
	assert.True(t, got.LastReminder.Equal(now))

	res, err = svc.SendDue(ctx, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, ReminderResult{}, res)

	res, err = svc.SendDue(ctx, now.Add(8*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
}

func TestSendDueFailuresDoNotMark(t *testing.T) {
	ctx := context.Background()
	s, c := seeded(t)
	pub := &fakePublisher{err: errors.New("connection refused")}
	svc := NewReminderService(newBilling(s), s, pub, nil, nil, quietLogger())

	res, err := svc.SendDue(ctx, date(2023, time.December, 15))
	require.NoError(t, err)
	assert.Equal(t, ReminderResult{Due: 2, Failed: 2}, res)

	got, _ := s.GetChild(ctx, c.ID)
	assert.Nil(t, got.LastReminder)
}

func TestSendDueWithoutPublisher(t *testing.T) {
	s, c := seeded(t)
	svc := NewReminderService(newBilling(s), s, nil, nil, nil, quietLogger())

	res, err := svc.SendDue(context.Background(), date(2023, time.December, 15))
	require.NoError(t, err)
	assert.Equal(t, ReminderResult{Due: 2, Skipped: 2}, res)

	got, _ := s.GetChild(context.Background(), c.ID)
	assert.Nil(t, got.LastReminder)
}

func TestReminderPolicies(t *testing.T) {
	now := date(2024, time.March, 10)
	fiveDaysAgo := now.Add(-5 * 24 * time.Hour)
	week := 7 * 24 * time.Hour

	fresh := arrears.Entry{Band: arrears.Mild}
	mild := arrears.Entry{Band: arrears.Mild, LastReminder: &fiveDaysAgo}
	critical := arrears.Entry{Band: arrears.Critical, LastReminder: &fiveDaysAgo}

	cooldown := PolicyFor("cooldown", week)
	assert.True(t, cooldown.Due(fresh, now))
	assert.False(t, cooldown.Due(mild, now))
	assert.False(t, cooldown.Due(critical, now))

	escalating := PolicyFor("escalating", week)
	assert.True(t, escalating.Due(fresh, now))
	assert.False(t, escalating.Due(mild, now))
	assert.True(t, escalating.Due(critical, now))
}
