// internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/naturelicensing/trapreg/internal/models"
	"github.com/naturelicensing/trapreg/internal/notify"
	"github.com/naturelicensing/trapreg/internal/services"
)

type recordingMailer struct {
	mtx       sync.Mutex
	templates []string
}

func (m *recordingMailer) SendEmail(_ context.Context, templateID, _ string, _ map[string]string, _, _ string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.templates = append(m.templates, templateID)
	return nil
}

func (m *recordingMailer) sentTemplates() []string {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return append([]string(nil), m.templates...)
}

func newTestReminders(t *testing.T) (*services.ReminderService, *recordingMailer, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Registration{}, &models.Return{}, &models.Renewal{}))

	mailer := &recordingMailer{}
	return services.NewReminderService(db, services.NewNotificationService(mailer)), mailer, db
}

func seedHolder(t *testing.T, db *gorm.DB) {
	t.Helper()

	meatBaits := true
	emailAddr := "holder@example.com"
	name := "Holder"
	expiry := time.Date(2029, time.December, 31, 0, 0, 0, 0, time.UTC)
	trapID := 1

	require.NoError(t, db.Create(&models.Registration{
		ID:           1,
		TrapID:       &trapID,
		MeatBaits:    &meatBaits,
		FullName:     &name,
		EmailAddress: &emailAddr,
		ExpiryDate:   &expiry,
		CreatedAt:    time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
	}).Error)
}

func TestRunOnceCalendarGates(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want []string
	}{
		{
			name: "first of december opens the returns window",
			now:  time.Date(2025, time.December, 1, 6, 0, 0, 0, time.UTC),
			want: []string{notify.TemplateReturnReminder},
		},
		{
			name: "first of february chases the previous year",
			now:  time.Date(2026, time.February, 1, 6, 0, 0, 0, time.UTC),
			want: []string{notify.TemplatePreviousYearReturnReminder},
		},
		{
			name: "first of march chases the previous year again",
			now:  time.Date(2026, time.March, 1, 6, 0, 0, 0, time.UTC),
			want: []string{notify.TemplatePreviousYearReturnReminder},
		},
		{
			name: "first of april chases holders who never reported",
			now:  time.Date(2026, time.April, 1, 6, 0, 0, 0, time.UTC),
			want: []string{notify.TemplateNeverSubmittedReturnReminder},
		},
		{
			name: "an ordinary day sends nothing for a healthy registration",
			now:  time.Date(2026, time.June, 15, 6, 0, 0, 0, time.UTC),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reminders, mailer, db := newTestReminders(t)
			seedHolder(t, db)

			s := New(reminders, 6)
			s.RunOnce(context.Background(), tt.now)

			assert.Equal(t, tt.want, mailer.sentTemplates())
		})
	}
}

func TestRunOnceDailyExpiryReminders(t *testing.T) {
	reminders, mailer, db := newTestReminders(t)
	seedHolder(t, db)

	// Move expiry to exactly fourteen days ahead of the tick.
	now := time.Date(2026, time.June, 15, 6, 0, 0, 0, time.UTC)
	expiry := time.Date(2026, time.June, 29, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Model(&models.Registration{}).Where("id = ?", 1).Update("expiry_date", expiry).Error)

	s := New(reminders, 6)
	s.RunOnce(context.Background(), now)

	assert.Contains(t, mailer.sentTemplates(), notify.TemplateTwoWeekExpiryRenewalReminder)

	// The day after expiry the lapse notice goes out instead.
	mailer.templates = nil
	dayAfter := time.Date(2026, time.June, 30, 6, 0, 0, 0, time.UTC)
	s.RunOnce(context.Background(), dayAfter)

	assert.Contains(t, mailer.sentTemplates(), notify.TemplateExpiredRecentlyNoRenewal)
	assert.NotContains(t, mailer.sentTemplates(), notify.TemplateTwoWeekExpiryRenewalReminder)
}

func TestUntilNextTick(t *testing.T) {
	s := New(nil, 6)

	before := time.Date(2026, time.June, 15, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Hour, s.untilNextTick(before))

	after := time.Date(2026, time.June, 15, 7, 0, 0, 0, time.UTC)
	assert.Equal(t, 23*time.Hour, s.untilNextTick(after))

	exactly := time.Date(2026, time.June, 15, 6, 0, 0, 0, time.UTC)
	assert.Equal(t, 24*time.Hour, s.untilNextTick(exactly))
}
