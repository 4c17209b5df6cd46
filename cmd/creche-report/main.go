// Command creche-report prints billing views over the record store: the
// school-year dashboard, arrears, period reports and day details. It can
// also run one reminder pass.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"creche/internal/amqp"
	"creche/internal/arrears"
	"creche/internal/cli"
	"creche/internal/config"
	"creche/internal/log"
	"creche/internal/report"
	"creche/internal/schoolyear"
	"creche/internal/services"
	"creche/internal/sheets"
	gsheet "creche/internal/sheets/google"
	sheetsmem "creche/internal/sheets/memory"
)

const usage = `usage: creche-report <command> [flags]

commands:
  dashboard  -school-year 2023-2024
  arrears    [-today 2024-01-15] [-band mild,serious,critical] [-class C] [-school-year Y] [-reminded yes|no]
  report     -from 2023-09-01 -to 2024-06-30 [-daily] [-export] [-title T]
  day        -day 2023-09-03
  remind     [-today 2024-01-15]
`

var errUsage = errors.New("invalid usage")

func main() {
	cli.LoadEnvFile()
	bootLogger := cli.SetupLogger(nil, log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg, log.ComponentReport)

	ctx := context.Background()
	be := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if be.Cleanup != nil {
			_ = be.Cleanup()
		}
	}()

	billing := services.NewBillingService(be.Store, services.BillingOptions{
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
		Logger:    logger,
	})

	app := &app{cfg: cfg, billing: billing, logger: logger, out: os.Stdout, now: time.Now}
	app.remind = func(ctx context.Context, now time.Time) (services.ReminderResult, error) {
		var publisher services.ReminderPublisher
		if cfg.AMQPURL != "" {
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				return services.ReminderResult{}, fmt.Errorf("connect AMQP: %w", err)
			}
			defer client.Close()
			publisher = client
		}
		rs := services.NewReminderService(billing, be.Store, publisher,
			services.PolicyFor(cfg.ReminderPolicy, cfg.ReminderCooldown), nil, logger)
		return rs.SendDue(ctx, now)
	}

	if err := app.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		logger.Error("Command failed", log.FieldError, err)
		os.Exit(1)
	}
}

type app struct {
	cfg     *config.Config
	billing *services.BillingService
	logger  *log.Logger
	out     io.Writer
	now     func() time.Time
	remind  func(ctx context.Context, now time.Time) (services.ReminderResult, error)
	// writer overrides the export target
	writer sheets.ReportWriter
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "dashboard":
		return a.dashboard(ctx, rest)
	case "arrears":
		return a.arrears(ctx, rest)
	case "report":
		return a.report(ctx, rest)
	case "day":
		return a.day(ctx, rest)
	case "remind":
		return a.runRemind(ctx, rest)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (a *app) today() time.Time {
	return schoolyear.Day(a.now().In(a.location()))
}

func (a *app) location() *time.Location {
	if a.cfg == nil {
		return time.UTC
	}
	return a.cfg.Location()
}

func (a *app) dashboard(ctx context.Context, args []string) error {
	fs := newFlagSet("dashboard")
	syFlag := fs.String("school-year", "", "school year, e.g. 2023-2024")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	sy := schoolyear.Current(a.today())
	if *syFlag != "" {
		parsed, err := schoolyear.Parse(*syFlag)
		if err != nil {
			return err
		}
		sy = parsed
	}
	ov, err := a.billing.Dashboard(ctx, sy)
	if err != nil {
		return err
	}
	return renderDashboard(a.out, ov)
}

func (a *app) arrears(ctx context.Context, args []string) error {
	fs := newFlagSet("arrears")
	todayFlag := fs.String("today", "", "evaluation date, YYYY-MM-DD")
	bandFlag := fs.String("band", "", "comma separated bands")
	classFlag := fs.String("class", "", "class name")
	syFlag := fs.String("school-year", "", "school year, e.g. 2023-2024")
	remindedFlag := fs.String("reminded", "", "yes or no")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	today, err := a.dateOr(*todayFlag, a.today())
	if err != nil {
		return err
	}
	filter, err := parseFilter(*bandFlag, *classFlag, *syFlag, *remindedFlag)
	if err != nil {
		return err
	}

	entries, stats, err := a.billing.Arrears(ctx, today, filter)
	if err != nil {
		return err
	}
	return renderArrears(a.out, entries, stats)
}

func (a *app) report(ctx context.Context, args []string) error {
	fs := newFlagSet("report")
	fromFlag := fs.String("from", "", "first day, YYYY-MM-DD")
	toFlag := fs.String("to", "", "last day, YYYY-MM-DD")
	daily := fs.Bool("daily", false, "one row per day")
	export := fs.Bool("export", false, "append the report to the configured sheet")
	title := fs.String("title", "", "export title")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *fromFlag == "" || *toFlag == "" {
		return fmt.Errorf("%w: -from and -to are required", errUsage)
	}
	from, err := parseDate(*fromFlag)
	if err != nil {
		return err
	}
	to, err := parseDate(*toFlag)
	if err != nil {
		return err
	}

	rng := report.Range{From: from, To: to}
	g := report.Monthly
	if *daily {
		g = report.Daily
	}

	if *export {
		w, err := a.reportWriter(ctx)
		if err != nil {
			return err
		}
		t := *title
		if t == "" {
			t = fmt.Sprintf("Rapport %s au %s", *fromFlag, *toFlag)
		}
		ref, err := a.billing.ExportReport(ctx, w, t, rng, g)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "exported to %s\n", ref)
	}

	rows, summary, err := a.billing.Report(ctx, rng, g)
	if err != nil {
		return err
	}
	return renderReport(a.out, rows, summary)
}

func (a *app) reportWriter(ctx context.Context) (sheets.ReportWriter, error) {
	if a.writer != nil {
		return a.writer, nil
	}
	if a.cfg == nil || a.cfg.GoogleSpreadsheetID == "" {
		a.logger.Warn("No spreadsheet configured, keeping the export in memory")
		a.writer = sheetsmem.New()
		return a.writer, nil
	}
	creds, err := a.cfg.GoogleCredentials()
	if err != nil {
		return nil, err
	}
	w, err := gsheet.New(ctx, a.cfg.GoogleSpreadsheetID, a.cfg.GoogleSheetName, creds)
	if err != nil {
		return nil, err
	}
	a.writer = w
	return w, nil
}

func (a *app) day(ctx context.Context, args []string) error {
	fs := newFlagSet("day")
	dayFlag := fs.String("day", "", "day, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	day, err := a.dateOr(*dayFlag, a.today())
	if err != nil {
		return err
	}
	lines, err := a.billing.DayDetail(ctx, day)
	if err != nil {
		return err
	}
	return renderDayDetail(a.out, day, lines)
}

func (a *app) runRemind(ctx context.Context, args []string) error {
	fs := newFlagSet("remind")
	todayFlag := fs.String("today", "", "evaluation date, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	now := a.now()
	if *todayFlag != "" {
		d, err := parseDate(*todayFlag)
		if err != nil {
			return err
		}
		now = d
	}
	res, err := a.remind(ctx, now)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "due %d, sent %d, failed %d, skipped %d\n", res.Due, res.Sent, res.Failed, res.Skipped)
	return nil
}

func (a *app) dateOr(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	return parseDate(s)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

func parseFilter(bands, class, sy, reminded string) (arrears.Filter, error) {
	f := arrears.Filter{Class: strings.TrimSpace(class)}
	for _, b := range strings.Split(bands, ",") {
		b = strings.ToLower(strings.TrimSpace(b))
		switch arrears.Band(b) {
		case "":
		case arrears.Mild, arrears.Serious, arrears.Critical:
			f.Bands = append(f.Bands, arrears.Band(b))
		default:
			return arrears.Filter{}, fmt.Errorf("unknown band %q", b)
		}
	}
	if sy != "" {
		parsed, err := schoolyear.Parse(sy)
		if err != nil {
			return arrears.Filter{}, err
		}
		f.SchoolYear = &parsed
	}
	switch strings.ToLower(strings.TrimSpace(reminded)) {
	case "":
	case "yes", "true":
		f.Reminder = arrears.ReminderSent
	case "no", "false":
		f.Reminder = arrears.ReminderNotSent
	default:
		return arrears.Filter{}, fmt.Errorf("invalid -reminded value %q: use yes or no", reminded)
	}
	return f, nil
}
