package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"creche/internal/log"
	"creche/internal/services"
)

// Reminder runs one reminder pass as of now.
type Reminder interface {
	SendDue(ctx context.Context, now time.Time) (services.ReminderResult, error)
}

// Config holds the worker settings.
type Config struct {
	// Interval between runs. The first run starts immediately.
	Interval time.Duration
	// Location is the timezone in which "today" is evaluated.
	Location *time.Location
}

// ArrearsWorker periodically detects arrears and sends due reminders.
type ArrearsWorker struct {
	reminder Reminder
	config   Config
	logger   *log.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

func NewArrearsWorker(reminder Reminder, config Config, logger *log.Logger) *ArrearsWorker {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ArrearsWorker{
		reminder: reminder,
		config:   config,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
	}
}

// RunOnce performs a single pass.
func (w *ArrearsWorker) RunOnce(ctx context.Context) (services.ReminderResult, error) {
	start := w.now()
	res, err := w.reminder.SendDue(ctx, start.In(w.config.Location))
	if err != nil {
		w.logger.ErrorContext(ctx, "Arrears run failed",
			log.NewFields().WithOperation(log.OpDetect).WithError(err, log.ErrorTypeInternal).ToSlice()...)
		return res, err
	}
	w.logger.InfoContext(ctx, "Arrears run complete",
		log.FieldOperation, log.OpDetect,
		"sent", res.Sent,
		"failed", res.Failed,
		log.FieldDuration, w.now().Sub(start).Milliseconds())
	return res, nil
}

// Start runs passes every Interval until Stop is called or ctx ends.
func (w *ArrearsWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("arrears worker is already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.doneCh = make(chan struct{})

	go w.loop(ctx, w.doneCh)

	w.logger.InfoContext(ctx, "Arrears worker started", "interval", w.config.Interval.String())
	return nil
}

func (w *ArrearsWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		// errors are logged by RunOnce; the next tick retries
		_, _ = w.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels the loop and waits for the current pass to finish.
func (w *ArrearsWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	cancel, done := w.cancel, w.doneCh
	w.mu.Unlock()

	cancel()
	select {
	case <-done:
		w.logger.InfoContext(ctx, "Arrears worker stopped gracefully")
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Arrears worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

func (w *ArrearsWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
