// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/naturelicensing/trapreg/internal/services"
)

// Clock abstracts wall time so tests can drive ticks without sleeping.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Scheduler runs the reminder categories once a day at a configured hour.
// Which categories fire on a given day is decided by RunOnce's calendar
// gates, so a missed tick never replays old days.
type Scheduler struct {
	reminders *services.ReminderService
	clock     Clock
	hour      int
}

func New(reminders *services.ReminderService, hour int) *Scheduler {
	return NewWithClock(reminders, hour, systemClock{})
}

func NewWithClock(reminders *services.ReminderService, hour int, clock Clock) *Scheduler {
	return &Scheduler{
		reminders: reminders,
		clock:     clock,
		hour:      hour,
	}
}

// Start blocks until ctx is cancelled, waking at the configured hour each
// day. Callers run it in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	logrus.WithField("hour", s.hour).Info("Reminder scheduler started")

	for {
		now := s.clock.Now()
		select {
		case <-ctx.Done():
			logrus.Info("Reminder scheduler stopped")
			return
		case <-s.clock.After(s.untilNextTick(now)):
			s.RunOnce(ctx, s.clock.Now())
		}
	}
}

func (s *Scheduler) untilNextTick(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// RunOnce dispatches every category whose calendar gate matches now.
// Returns-due reminders go out when the reporting window opens on
// 1 December; stragglers are chased on 1 February and 1 March, and
// never-submitters on 1 April. Recently-expired-without-returns runs
// monthly; the two expiry reminders run daily.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) {
	day, month := now.Day(), now.Month()

	if month == time.December && day == 1 {
		s.run(ctx, now, "returns_due", s.reminders.ReturnsDue)
	}
	if (month == time.February || month == time.March) && day == 1 {
		s.run(ctx, now, "no_return_previous_year", s.reminders.NoReturnPreviousYear)
	}
	if month == time.April && day == 1 {
		s.run(ctx, now, "no_return_ever", s.reminders.NoReturnEver)
	}
	if day == 1 {
		s.run(ctx, now, "expired_recently_no_return", s.reminders.ExpiredRecentlyNoReturn)
	}

	s.run(ctx, now, "two_weeks_to_expiry", s.reminders.TwoWeeksToExpiry)
	s.run(ctx, now, "expired_yesterday_no_renewal", s.reminders.ExpiredYesterdayNoRenewal)
}

func (s *Scheduler) run(ctx context.Context, now time.Time, name string, category func(context.Context, time.Time) (int, error)) {
	count, err := category(ctx, now)
	if err != nil {
		logrus.WithError(err).WithField("job", name).Error("Reminder job failed")
		return
	}

	logrus.WithFields(logrus.Fields{
		"job":  name,
		"sent": count,
	}).Info("Reminder job completed")
}
