// internal/services/service_test.go
package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/naturelicensing/trapreg/internal/models"
	"github.com/naturelicensing/trapreg/internal/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Registration{},
		&models.Return{},
		&models.NonTargetSpecies{},
		&models.Revocation{},
		&models.Renewal{},
		&models.Note{},
		&models.RequestUUID{},
		&models.RegistrationHistory{},
	))

	return db
}

type sentEmail struct {
	TemplateID      string
	EmailAddress    string
	Personalisation map[string]string
	Reference       string
}

// fakeMailer records sends; addresses in failFor error out instead.
type fakeMailer struct {
	mtx     sync.Mutex
	sent    []sentEmail
	failFor map[string]bool
}

func (f *fakeMailer) SendEmail(_ context.Context, templateID, emailAddress string, personalisation map[string]string, reference, _ string) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	if f.failFor[emailAddress] {
		return fmt.Errorf("gateway rejected %s", emailAddress)
	}

	f.sent = append(f.sent, sentEmail{
		TemplateID:      templateID,
		EmailAddress:    emailAddress,
		Personalisation: personalisation,
		Reference:       reference,
	})
	return nil
}

func (f *fakeMailer) sentTo(templateID string) []sentEmail {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	var matched []sentEmail
	for _, e := range f.sent {
		if e.TemplateID == templateID {
			matched = append(matched, e)
		}
	}
	return matched
}

func newRegistrationService(t *testing.T, db *gorm.DB, mailer *fakeMailer) *RegistrationService {
	t.Helper()

	keys, err := utils.LoadOrGenerateLoginKeys("")
	require.NoError(t, err)

	return NewRegistrationService(db, NewNotificationService(mailer), keys, 30*time.Minute)
}

// sequentialDraw replaces the random draw with a deterministic counter.
func sequentialDraw(start int) func() int {
	next := start
	return func() int {
		id := next
		next++
		return id
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func intPtr(i int) *int       { return &i }
