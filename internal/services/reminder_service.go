// internal/services/reminder_service.go
package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/naturelicensing/trapreg/internal/models"
	"github.com/naturelicensing/trapreg/internal/notify"
)

const maxConcurrentDispatches = 8

// ReminderService selects the registrations each reminder category applies
// to and fans the emails out. A failed send is logged and skipped; it never
// blocks the rest of the batch. Every method returns the number of emails
// actually dispatched.
type ReminderService struct {
	db            *gorm.DB
	notifications *NotificationService
}

func NewReminderService(db *gorm.DB, notifications *NotificationService) *ReminderService {
	return &ReminderService{db: db, notifications: notifications}
}

// ReturnsDue reminds every valid meat-bait licence holder that annual
// returns are open for submission.
func (s *ReminderService) ReturnsDue(ctx context.Context, now time.Time) (int, error) {
	regs, err := s.candidates(ctx, s.validMeatBait(ctx, now))
	if err != nil {
		return 0, err
	}

	return s.dispatch(ctx, notify.TemplateReturnReminder, regs), nil
}

// NoReturnPreviousYear reminds valid meat-bait holders who did not submit a
// return for the previous calendar year.
func (s *ReminderService) NoReturnPreviousYear(ctx context.Context, now time.Time) (int, error) {
	query := s.validMeatBait(ctx, now).
		Where("NOT EXISTS (SELECT 1 FROM returns WHERE returns.registration_id = registrations.id AND returns.year = ? AND returns.deleted_at IS NULL)", now.Year()-1)

	regs, err := s.candidates(ctx, query)
	if err != nil {
		return 0, err
	}

	return s.dispatch(ctx, notify.TemplatePreviousYearReturnReminder, regs), nil
}

// NoReturnEver reminds valid meat-bait holders who have never submitted any
// return. Registrations created in the current year are excluded; their
// first return is not owed yet.
func (s *ReminderService) NoReturnEver(ctx context.Context, now time.Time) (int, error) {
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	query := s.validMeatBait(ctx, now).
		Where("created_at < ?", yearStart).
		Where("NOT EXISTS (SELECT 1 FROM returns WHERE returns.registration_id = registrations.id AND returns.deleted_at IS NULL)")

	regs, err := s.candidates(ctx, query)
	if err != nil {
		return 0, err
	}

	return s.dispatch(ctx, notify.TemplateNeverSubmittedReturnReminder, regs), nil
}

// ExpiredRecentlyNoReturn chases meat-bait registrations that expired
// within the last two months without a single return on record.
func (s *ReminderService) ExpiredRecentlyNoReturn(ctx context.Context, now time.Time) (int, error) {
	windowStart := now.AddDate(0, -2, 0)
	query := s.base(ctx).
		Where("meat_baits = ?", true).
		Where("expiry_date > ? AND expiry_date <= ?", windowStart, now).
		Where("NOT EXISTS (SELECT 1 FROM returns WHERE returns.registration_id = registrations.id AND returns.deleted_at IS NULL)")

	regs, err := s.candidates(ctx, query)
	if err != nil {
		return 0, err
	}

	return s.dispatch(ctx, notify.TemplateExpiredRecentlyNoReturn, regs), nil
}

// TwoWeeksToExpiry warns holders whose licence expires exactly fourteen
// days from now and who have not renewed.
func (s *ReminderService) TwoWeeksToExpiry(ctx context.Context, now time.Time) (int, error) {
	dayStart, dayEnd := calendarDay(now.AddDate(0, 0, 14))
	query := s.base(ctx).
		Where("expiry_date >= ? AND expiry_date < ?", dayStart, dayEnd).
		Where(notRenewedCondition)

	regs, err := s.candidates(ctx, query)
	if err != nil {
		return 0, err
	}

	return s.dispatch(ctx, notify.TemplateTwoWeekExpiryRenewalReminder, regs), nil
}

// ExpiredYesterdayNoRenewal tells holders whose licence lapsed yesterday,
// without a renewal on record, that trapping must stop.
func (s *ReminderService) ExpiredYesterdayNoRenewal(ctx context.Context, now time.Time) (int, error) {
	dayStart, dayEnd := calendarDay(now.AddDate(0, 0, -1))
	query := s.base(ctx).
		Where("expiry_date >= ? AND expiry_date < ?", dayStart, dayEnd).
		Where(notRenewedCondition)

	regs, err := s.candidates(ctx, query)
	if err != nil {
		return 0, err
	}

	return s.dispatch(ctx, notify.TemplateExpiredRecentlyNoRenewal, regs), nil
}

const notRenewedCondition = "NOT EXISTS (SELECT 1 FROM renewals WHERE renewals.registration_id = registrations.id AND renewals.deleted_at IS NULL)"

func (s *ReminderService) base(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("email_address IS NOT NULL AND email_address <> ''")
}

func (s *ReminderService) validMeatBait(ctx context.Context, now time.Time) *gorm.DB {
	return s.base(ctx).
		Where("meat_baits = ?", true).
		Where("expiry_date > ?", now)
}

func (s *ReminderService) candidates(ctx context.Context, query *gorm.DB) ([]models.Registration, error) {
	var regs []models.Registration
	if err := query.Find(&regs).Error; err != nil {
		return nil, fmt.Errorf("failed to select reminder candidates: %w", err)
	}
	return regs, nil
}

func (s *ReminderService) dispatch(ctx context.Context, templateID string, regs []models.Registration) int {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDispatches)

	var sent atomic.Int64
	for i := range regs {
		reg := regs[i]
		g.Go(func() error {
			if err := s.notifications.SendReminder(ctx, templateID, &reg); err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{
					"registration": reg.RegNo(),
					"template":     templateID,
				}).Error("Failed to send reminder email")
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	g.Wait()

	return int(sent.Load())
}

// calendarDay returns the UTC day boundaries containing t.
func calendarDay(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
