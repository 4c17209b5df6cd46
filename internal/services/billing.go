package services

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"creche/internal/aggregate"
	"creche/internal/arrears"
	"creche/internal/cache"
	"creche/internal/log"
	"creche/internal/metrics"
	"creche/internal/report"
	"creche/internal/schoolyear"
	"creche/internal/sheets"
	"creche/internal/store"
)

// BillingOptions configures a BillingService. Zero values fall back to
// defaults; a nil Metrics records nothing.
type BillingOptions struct {
	CacheSize  int
	CacheTTL   time.Duration
	Caches     *cache.Manager
	Metrics    *metrics.Metrics
	Logger     *log.Logger
	Thresholds *arrears.Thresholds
}

type reportResult struct {
	Rows    []report.Row
	Summary report.Summary
}

// BillingService computes dashboards, arrears and reports from the record
// store. Results keyed by the snapshot fingerprint are memoized, so an
// unchanged store is not recomputed.
type BillingService struct {
	reader     store.Reader
	thresholds arrears.Thresholds
	dashboards *cache.LRUCache[aggregate.Overview]
	reports    *cache.LRUCache[reportResult]
	metrics    *metrics.Metrics
	logger     *log.Logger
}

func NewBillingService(reader store.Reader, opts BillingOptions) *BillingService {
	if opts.CacheSize < 1 {
		opts.CacheSize = 64
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	thresholds := arrears.DefaultThresholds
	if opts.Thresholds != nil {
		thresholds = *opts.Thresholds
	}

	s := &BillingService{
		reader:     reader,
		thresholds: thresholds,
		dashboards: cache.NewLRUCache[aggregate.Overview](opts.CacheSize, opts.CacheTTL),
		reports:    cache.NewLRUCache[reportResult](opts.CacheSize, opts.CacheTTL),
		metrics:    opts.Metrics,
		logger:     opts.Logger.WithComponent(log.ComponentBilling),
	}
	if opts.Caches != nil {
		opts.Caches.Register(s.dashboards)
		opts.Caches.Register(s.reports)
	}
	return s
}

func (s *BillingService) snapshot(ctx context.Context) (Snapshot, error) {
	snap, err := LoadSnapshot(ctx, s.reader)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load records",
			log.NewFields().WithOperation(log.OpLoad).WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		return Snapshot{}, fmt.Errorf("load records: %w", err)
	}
	return snap, nil
}

// Dashboard returns the overview of sy.
func (s *BillingService) Dashboard(ctx context.Context, sy schoolyear.SchoolYear) (ov aggregate.Overview, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveComputation(log.OpDash, start, err) }()

	snap, err := s.snapshot(ctx)
	if err != nil {
		return aggregate.Overview{}, err
	}

	key := cache.Key(log.OpDash, sy.String(), snap.Fingerprint())
	ov, hit, err := s.dashboards.GetOrCompute(key, func() (aggregate.Overview, error) {
		return aggregate.Dashboard(snap.Children, snap.Payments, snap.Fees, sy), nil
	})
	s.metrics.CacheLookup(hit)
	s.logger.DebugContext(ctx, "Dashboard computed",
		log.FieldSchoolYear, sy.String(),
		log.FieldCacheHit, hit,
		log.FieldDuration, time.Since(start).Milliseconds())
	return cloneOverview(ov), err
}

// Arrears detects outstanding obligations as of today and returns those
// matching filter together with their statistics. Band gauges always reflect
// the unfiltered result.
func (s *BillingService) Arrears(ctx context.Context, today time.Time, filter arrears.Filter) (entries []arrears.Entry, stats arrears.Stats, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveComputation(log.OpDetect, start, err) }()

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, arrears.Stats{}, err
	}

	all := s.thresholds.Detect(snap.Children, snap.Payments, today)
	overall := arrears.Summarize(all)
	s.metrics.SetArrears(overall.Mild, overall.Serious, overall.Critical, overall.TotalDue.Cents)

	entries = filter.Apply(all)
	stats = arrears.Summarize(entries)
	s.logger.InfoContext(ctx, "Arrears detected",
		log.FieldCount, len(all),
		"matching", len(entries),
		log.FieldAmountCents, overall.TotalDue.Cents,
		log.FieldDuration, time.Since(start).Milliseconds())
	return entries, stats, nil
}

// Report generates the rows of rng at granularity g and their summary.
func (s *BillingService) Report(ctx context.Context, rng report.Range, g report.Granularity) (rows []report.Row, summary report.Summary, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveComputation(log.OpReport, start, err) }()

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, report.Summary{}, err
	}

	key := cache.Key(log.OpReport, schoolyear.Day(rng.From).Format(time.DateOnly), schoolyear.Day(rng.To).Format(time.DateOnly),
		fmt.Sprint(int(g)), snap.Fingerprint())
	res, hit, err := s.reports.GetOrCompute(key, func() (reportResult, error) {
		rows := report.Generate(rng, g, snap.Children, snap.Payments, snap.Fees)
		return reportResult{Rows: rows, Summary: report.Summarize(rows)}, nil
	})
	s.metrics.CacheLookup(hit)
	if err != nil {
		return nil, report.Summary{}, err
	}
	s.logger.DebugContext(ctx, "Report generated",
		"periods", len(res.Rows),
		log.FieldCacheHit, hit,
		log.FieldDuration, time.Since(start).Milliseconds())
	return cloneRows(res.Rows), res.Summary, nil
}

// DayDetail lists the payments made on day.
func (s *BillingService) DayDetail(ctx context.Context, day time.Time) (lines []report.DetailLine, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveComputation(log.OpDetail, start, err) }()

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return report.DayDetail(day, snap.Children, snap.Payments, snap.Fees), nil
}

// ExportReport generates a report and hands it to w.
func (s *BillingService) ExportReport(ctx context.Context, w sheets.ReportWriter, title string, rng report.Range, g report.Granularity) (string, error) {
	rows, summary, err := s.Report(ctx, rng, g)
	if err != nil {
		return "", err
	}
	ref, err := w.WriteReport(ctx, title, rows, summary)
	if err != nil {
		s.logger.ErrorContext(ctx, "Report export failed",
			log.NewFields().WithOperation(log.OpExport).WithError(err, log.ErrorTypeNetwork).ToSlice()...)
		return "", fmt.Errorf("export report: %w", err)
	}
	s.logger.InfoContext(ctx, "Report exported", log.FieldSheetsRef, ref, "periods", len(rows))
	return ref, nil
}

// Cached results are shared between lookups; callers get their own copies.
func cloneOverview(ov aggregate.Overview) aggregate.Overview {
	ov.Monthly = slices.Clone(ov.Monthly)
	ov.Fees = maps.Clone(ov.Fees)
	return ov
}

func cloneRows(rows []report.Row) []report.Row {
	out := slices.Clone(rows)
	for i := range out {
		out[i].PaidChildren = slices.Clone(out[i].PaidChildren)
		out[i].UnpaidChildren = slices.Clone(out[i].UnpaidChildren)
	}
	return out
}
