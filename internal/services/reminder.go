package services

import (
	"context"
	"fmt"
	"time"

	"creche/internal/amqp"
	"creche/internal/arrears"
	"creche/internal/log"
	"creche/internal/metrics"
	"creche/internal/store"
)

// ReminderPublisher delivers reminder messages.
type ReminderPublisher interface {
	PublishReminder(ctx context.Context, msg *amqp.ReminderMessage) error
}

// ReminderResult counts the outcome of one reminder run.
type ReminderResult struct {
	Due     int
	Sent    int
	Failed  int
	Skipped int
}

// ReminderService publishes reminders for outstanding obligations and records
// on the child when one went out.
type ReminderService struct {
	billing   *BillingService
	marker    store.ReminderMarker
	publisher ReminderPublisher
	policy    ReminderPolicy
	metrics   *metrics.Metrics
	logger    *log.Logger
}

// NewReminderService wires a reminder run. A nil publisher disables
// delivery; runs then only log what would have been sent.
func NewReminderService(billing *BillingService, marker store.ReminderMarker, publisher ReminderPublisher, policy ReminderPolicy, m *metrics.Metrics, logger *log.Logger) *ReminderService {
	if policy == nil {
		policy = CooldownPolicy{Cooldown: 7 * 24 * time.Hour}
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReminderService{
		billing:   billing,
		marker:    marker,
		publisher: publisher,
		policy:    policy,
		metrics:   m,
		logger:    logger.WithComponent(log.ComponentReminder),
	}
}

// SendDue detects arrears as of now and publishes one reminder per entry the
// policy considers due. A failed publish is logged and the run continues;
// only a failure to load records aborts it.
func (s *ReminderService) SendDue(ctx context.Context, now time.Time) (ReminderResult, error) {
	entries, _, err := s.billing.Arrears(ctx, now, arrears.Filter{})
	if err != nil {
		return ReminderResult{}, fmt.Errorf("detect arrears: %w", err)
	}

	var res ReminderResult
	reminded := make(map[string]bool)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !s.policy.Due(e, now) {
			continue
		}
		res.Due++

		fields := log.NewFields().
			WithOperation(log.OpRemind).
			WithChild(e.ChildID).
			WithArrears(string(e.Obligation), e.Period.String(), e.DaysLate, e.AmountDue.Cents)

		if s.publisher == nil {
			res.Skipped++
			s.metrics.Reminder("skipped")
			s.logger.WarnContext(ctx, "Reminder publishing disabled, skipping", fields.ToSlice()...)
			continue
		}

		if err := s.publisher.PublishReminder(ctx, amqp.NewReminderMessage(e, now)); err != nil {
			res.Failed++
			s.metrics.Reminder("failed")
			s.logger.ErrorContext(ctx, "Failed to publish reminder", fields.WithError(err, log.ErrorTypeNetwork).ToSlice()...)
			continue
		}
		res.Sent++
		s.metrics.Reminder("sent")

		// both obligations of a child share the child's reminder stamp
		if reminded[e.ChildID] {
			continue
		}
		if err := s.marker.MarkReminded(ctx, e.ChildID, now); err != nil {
			s.logger.ErrorContext(ctx, "Failed to record reminder", fields.WithError(err, log.ErrorTypeDatabase).ToSlice()...)
			continue
		}
		reminded[e.ChildID] = true
	}

	s.logger.InfoContext(ctx, "Reminder run complete",
		"due", res.Due, "sent", res.Sent, "failed", res.Failed, "skipped", res.Skipped)
	return res, nil
}
