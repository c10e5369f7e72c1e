package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"cryptopay-bot/internal/ledger"
	"cryptopay-bot/internal/messages"
	"cryptopay-bot/internal/metrics"
	"cryptopay-bot/internal/notify"
)

const (
	day = 24 * time.Hour

	// Subscriptions ending within this window are candidates for a reminder.
	reminderHorizon = 4 * day
)

// Report summarises one pass.
type Report struct {
	Expired  int
	Reminded int
	Failed   int
}

// Checker periodically reminds users about expiring and expired
// subscriptions. It never writes to the ledger.
type Checker struct {
	Store    ledger.Store
	Notifier notify.Notifier
	Messages messages.Catalog
	Schedule string

	now func() time.Time
}

func NewChecker(store ledger.Store, notifier notify.Notifier, catalog messages.Catalog, schedule string) *Checker {
	return &Checker{
		Store:    store,
		Notifier: notifier,
		Messages: catalog,
		Schedule: schedule,
		now:      time.Now,
	}
}

// Start runs Run on the cron schedule (UTC) until ctx is cancelled.
func (c *Checker) Start(ctx context.Context) error {
	scheduler := cron.New(cron.WithLocation(time.UTC))
	if _, err := scheduler.AddFunc(c.Schedule, func() {
		if _, err := c.Run(ctx, c.now()); err != nil {
			log.Error().Err(err).Msg("Subscription check failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
	}

	scheduler.Start()
	log.Info().Str("schedule", c.Schedule).Msg("Background subscription worker started")

	<-ctx.Done()
	<-scheduler.Stop().Done()
	log.Info().Msg("Background subscription worker stopped")
	return nil
}

func (c *Checker) Run(ctx context.Context, now time.Time) (Report, error) {
	var report Report
	log.Info().Time("now", now).Msg("Running subscription check cycle...")

	expired, err := c.Store.ListExpired(ctx, now)
	if err != nil {
		metrics.SchedulerRunsTotal.WithLabelValues("error").Inc()
		return report, fmt.Errorf("query expired subscriptions: %w", err)
	}
	expiring, err := c.Store.ListExpiringWithin(ctx, now, reminderHorizon)
	if err != nil {
		metrics.SchedulerRunsTotal.WithLabelValues("error").Inc()
		return report, fmt.Errorf("query expiring subscriptions: %w", err)
	}

	for _, sub := range expired {
		if c.send(ctx, sub.UserID, "expired", c.Messages.Expired()) {
			report.Expired++
		} else {
			report.Failed++
		}
	}

	for _, sub := range expiring {
		daysLeft := DaysLeft(sub.EndDate, now)
		// The query window includes day 4, which gets no reminder.
		if daysLeft < 1 || daysLeft > 3 {
			continue
		}
		if c.send(ctx, sub.UserID, fmt.Sprintf("days_left_%d", daysLeft), c.Messages.DaysLeft(daysLeft)) {
			report.Reminded++
		} else {
			report.Failed++
		}
	}

	metrics.SchedulerRunsTotal.WithLabelValues("ok").Inc()
	log.Info().
		Int("expired", report.Expired).
		Int("reminded", report.Reminded).
		Int("failed", report.Failed).
		Msg("Subscription check cycle finished")
	return report, nil
}

func (c *Checker) send(ctx context.Context, userID int64, kind, text string) bool {
	if err := c.Notifier.Send(ctx, userID, text, messages.ParseMode); err != nil {
		metrics.NotificationsTotal.WithLabelValues(kind, "failed").Inc()
		log.Error().Err(err).Int64("user_id", userID).Str("kind", kind).Msg("Failed to send notification")
		return false
	}
	metrics.NotificationsTotal.WithLabelValues(kind, "sent").Inc()
	return true
}

// DaysLeft rounds the remaining time up to whole days.
func DaysLeft(endDate, now time.Time) int {
	remaining := endDate.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / day)
	if remaining%day != 0 {
		days++
	}
	return days
}
