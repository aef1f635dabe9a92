// internal/services/registration_service_test.go
package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naturelicensing/trapreg/internal/models"
	"github.com/naturelicensing/trapreg/internal/notify"
)

func assignRequest() *AssignRegistrationRequest {
	return &AssignRegistrationRequest{
		Convictions:     boolPtr(false),
		UsingGL01:       boolPtr(true),
		ComplyWithTerms: boolPtr(true),
		MeatBaits:       boolPtr(true),
		FullName:        strPtr("Morag Sutherland"),
		AddressLine1:    strPtr("1 Glen Road"),
		AddressTown:     strPtr("Inverness"),
		AddressPostcode: strPtr("IV3 8NW"),
		EmailAddress:    strPtr("morag@example.com"),
	}
}

func TestCreateAllocatesUniqueIDs(t *testing.T) {
	db := newTestDB(t)
	svc := newRegistrationService(t, db, &fakeMailer{})
	svc.draw = sequentialDraw(100)

	seen := make(map[int]bool)
	for i := 0; i < 25; i++ {
		reg, err := svc.Create(context.Background(), &CreateRegistrationRequest{})
		require.NoError(t, err)

		assert.False(t, seen[reg.ID], "id %d allocated twice", reg.ID)
		seen[reg.ID] = true

		require.NotNil(t, reg.TrapID)
		assert.Equal(t, reg.ID, *reg.TrapID)
		require.NotNil(t, reg.RegistrationType)
		assert.Equal(t, models.RegistrationTypeInitial, *reg.RegistrationType)
		assert.Nil(t, reg.ExpiryDate)
	}
}

func TestCreateRedrawsOnCollision(t *testing.T) {
	db := newTestDB(t)
	svc := newRegistrationService(t, db, &fakeMailer{})

	svc.draw = sequentialDraw(7)
	first, err := svc.Create(context.Background(), &CreateRegistrationRequest{})
	require.NoError(t, err)
	assert.Equal(t, 7, first.ID)

	// 7 is taken now; the next create must skip past it.
	svc.draw = sequentialDraw(7)
	second, err := svc.Create(context.Background(), &CreateRegistrationRequest{})
	require.NoError(t, err)
	assert.Equal(t, 8, second.ID)
}

func TestCreateExhaustsAfterTenAttempts(t *testing.T) {
	db := newTestDB(t)
	svc := newRegistrationService(t, db, &fakeMailer{})

	svc.draw = func() int { return 42 }
	_, err := svc.Create(context.Background(), &CreateRegistrationRequest{})
	require.NoError(t, err)

	attempts := 0
	svc.draw = func() int {
		attempts++
		return 42
	}
	_, err = svc.Create(context.Background(), &CreateRegistrationRequest{})
	assert.ErrorIs(t, err, ErrAllocationExhausted)
	assert.Equal(t, 10, attempts)
}

func TestCreateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newRegistrationService(t, db, &fakeMailer{})
	svc.draw = sequentialDraw(1)

	token := uuid.NewString()
	_, err := svc.Create(context.Background(), &CreateRegistrationRequest{RequestUUID: &token})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), &CreateRegistrationRequest{RequestUUID: &token})
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	var count int64
	require.NoError(t, db.Model(&models.Registration{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateRejectsMalformedToken(t *testing.T) {
	db := newTestDB(t)
	svc := newRegistrationService(t, db, &fakeMailer{})

	token := "not-a-uuid"
	_, err := svc.Create(context.Background(), &CreateRegistrationRequest{RequestUUID: &token})
	assert.Error(t, err)
}

func TestAssignAnchorsExpiryToCreationYear(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	svc := newRegistrationService(t, db, mailer)
	svc.draw = sequentialDraw(1)

	created, err := svc.Create(context.Background(), &CreateRegistrationRequest{})
	require.NoError(t, err)

	// Backdate creation to pin the anchor year.
	createdAt := time.Date(2023, time.June, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.Model(&models.Registration{}).Where("id = ?", created.ID).Update("created_at", createdAt).Error)

	reg, err := svc.Assign(context.Background(), created.ID, assignRequest())
	require.NoError(t, err)

	require.NotNil(t, reg.ExpiryDate)
	assert.Equal(t, time.Date(2027, time.December, 31, 0, 0, 0, 0, time.UTC), reg.ExpiryDate.UTC())

	confirmations := mailer.sentTo(notify.TemplateRegistrationConfirmation)
	require.Len(t, confirmations, 1)
	assert.Equal(t, "morag@example.com", confirmations[0].EmailAddress)
	assert.Equal(t, "NS-TRP-00001", confirmations[0].Personalisation["regNo"])
	assert.Equal(t, "yes", confirmations[0].Personalisation["meatBait"])
	assert.Equal(t, "no", confirmations[0].Personalisation["noMeatBait"])
	assert.Equal(t, "31 December 2027", confirmations[0].Personalisation["expiryDate"])
}

func TestAssignRejectsSecondClaim(t *testing.T) {
	db := newTestDB(t)
	svc := newRegistrationService(t, db, &fakeMailer{})
	svc.draw = sequentialDraw(1)

	created, err := svc.Create(context.Background(), &CreateRegistrationRequest{})
	require.NoError(t, err)

	_, err = svc.Assign(context.Background(), created.ID, assignRequest())
	require.NoError(t, err)

	_, err = svc.Assign(context.Background(), created.ID, assignRequest())
	assert.ErrorIs(t, err, ErrAlreadyAssigned)
}

func TestAssignCleansInput(t *testing.T) {
	db := newTestDB(t)
	svc := newRegistrationService(t, db, &fakeMailer{})
	svc.draw = sequentialDraw(1)

	created, err := svc.Create(context.Background(), &CreateRegistrationRequest{})
	require.NoError(t, err)

	req := assignRequest()
	req.FullName = strPtr("  Morag Sutherland  ")
	req.EmailAddress = strPtr(" Morag@Example.COM ")

	reg, err := svc.Assign(context.Background(), created.ID, req)
	require.NoError(t, err)

	assert.Equal(t, "Morag Sutherland", *reg.FullName)
	assert.Equal(t, "morag@example.com", *reg.EmailAddress)
}

func TestAssignFailsWhenConfirmationEmailFails(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{failFor: map[string]bool{"morag@example.com": true}}
	svc := newRegistrationService(t, db, mailer)
	svc.draw = sequentialDraw(1)

	created, err := svc.Create(context.Background(), &CreateRegistrationRequest{})
	require.NoError(t, err)

	_, err = svc.Assign(context.Background(), created.ID, assignRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confirmation email failed")
}

func TestDeleteRevokesEverythingAtomically(t *testing.T) {
	db := newTestDB(t)
	svc := newRegistrationService(t, db, &fakeMailer{})
	svc.draw = sequentialDraw(1)
	returns := NewReturnService(db)

	created, err := svc.Create(context.Background(), &CreateRegistrationRequest{})
	require.NoError(t, err)
	_, err = svc.Assign(context.Background(), created.ID, assignRequest())
	require.NoError(t, err)

	_, err = returns.Submit(context.Background(), created.ID, &SubmitReturnRequest{
		Year: 2024,
		NonTargetSpecies: []NonTargetSpeciesRequest{
			{GridReference: "NH664452", SpeciesCaught: "Buzzard", NumberCaught: 1, TrapType: "Larsen"},
		},
	})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), created.ID, &RevokeRegistrationRequest{Reason: "Licence conditions breached"})
	require.NoError(t, err)

	// Revocation recorded.
	var revocation models.Revocation
	require.NoError(t, db.First(&revocation, "registration_id = ?", created.ID).Error)
	assert.True(t, revocation.IsRevoked)
	assert.Equal(t, "Licence conditions breached", revocation.Reason)

	// Registration, returns and species all tombstoned.
	_, err = svc.Find(context.Background(), created.ID, false)
	assert.ErrorIs(t, err, ErrNotFound)

	var liveReturns, liveSpecies int64
	require.NoError(t, db.Model(&models.Return{}).Where("registration_id = ?", created.ID).Count(&liveReturns).Error)
	require.NoError(t, db.Model(&models.NonTargetSpecies{}).Count(&liveSpecies).Error)
	assert.Zero(t, liveReturns)
	assert.Zero(t, liveSpecies)

	// Still reachable when revoked rows are requested explicitly.
	reg, err := svc.Find(context.Background(), created.ID, true)
	require.NoError(t, err)
	assert.Len(t, reg.Returns, 1)
	require.NotNil(t, reg.Revocation)
}

func TestDeleteRollsBackOnFailure(t *testing.T) {
	db := newTestDB(t)
	svc := newRegistrationService(t, db, &fakeMailer{})
	svc.draw = sequentialDraw(1)
	returns := NewReturnService(db)

	created, err := svc.Create(context.Background(), &CreateRegistrationRequest{})
	require.NoError(t, err)
	_, err = svc.Assign(context.Background(), created.ID, assignRequest())
	require.NoError(t, err)
	_, err = returns.Submit(context.Background(), created.ID, &SubmitReturnRequest{Year: 2024})
	require.NoError(t, err)

	// Force a mid-transaction failure.
	require.NoError(t, db.Migrator().DropTable(&models.Revocation{}))

	err = svc.Delete(context.Background(), created.ID, &RevokeRegistrationRequest{Reason: "breach"})
	require.Error(t, err)

	// Nothing was tombstoned.
	_, err = svc.Find(context.Background(), created.ID, false)
	assert.NoError(t, err)

	var liveReturns int64
	require.NoError(t, db.Model(&models.Return{}).Where("registration_id = ?", created.ID).Count(&liveReturns).Error)
	assert.Equal(t, int64(1), liveReturns)
}

func TestDeleteUnknownRegistration(t *testing.T) {
	db := newTestDB(t)
	svc := newRegistrationService(t, db, &fakeMailer{})

	err := svc.Delete(context.Background(), 12345, &RevokeRegistrationRequest{Reason: "breach"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenewStartsFreshCycle(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	svc := newRegistrationService(t, db, mailer)
	svc.draw = sequentialDraw(1)

	created, err := svc.Create(context.Background(), &CreateRegistrationRequest{})
	require.NoError(t, err)
	old, err := svc.Assign(context.Background(), created.ID, assignRequest())
	require.NoError(t, err)
	oldExpiry := *old.ExpiryDate

	renewed, err := svc.Renew(context.Background(), old.ID)
	require.NoError(t, err)

	assert.NotEqual(t, old.ID, renewed.ID)
	require.NotNil(t, renewed.TrapID)
	assert.Equal(t, *old.TrapID, *renewed.TrapID)
	require.NotNil(t, renewed.RegistrationType)
	assert.Equal(t, models.RegistrationTypeRenewal, *renewed.RegistrationType)
	assert.Equal(t, *old.FullName, *renewed.FullName)

	require.NotNil(t, renewed.ExpiryDate)
	assert.Equal(t, time.Now().UTC().Year()+4, renewed.ExpiryDate.UTC().Year())
	assert.Equal(t, time.December, renewed.ExpiryDate.UTC().Month())
	assert.Equal(t, 31, renewed.ExpiryDate.UTC().Day())

	// Old cycle untouched, marker and snapshot recorded.
	oldAfter, err := svc.Find(context.Background(), old.ID, false)
	require.NoError(t, err)
	assert.True(t, oldExpiry.Equal(*oldAfter.ExpiryDate), "old cycle expiry changed")

	var marker models.Renewal
	require.NoError(t, db.First(&marker, "registration_id = ?", old.ID).Error)

	var snapshot models.RegistrationHistory
	require.NoError(t, db.First(&snapshot, "registration_id = ?", old.ID).Error)
	assert.Equal(t, *old.FullName, *snapshot.FullName)

	// Confirmation for the new cycle went out.
	confirmations := mailer.sentTo(notify.TemplateRegistrationConfirmation)
	require.Len(t, confirmations, 2)
	assert.Equal(t, renewed.RegNo(), confirmations[1].Reference)
}

func TestRequestLogin(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	svc := newRegistrationService(t, db, mailer)
	svc.draw = sequentialDraw(1)

	created, err := svc.Create(context.Background(), &CreateRegistrationRequest{})
	require.NoError(t, err)
	_, err = svc.Assign(context.Background(), created.ID, assignRequest())
	require.NoError(t, err)

	// Wrong postcode looks like an unknown registration.
	err = svc.RequestLogin(context.Background(), created.ID, "AB1 2CD", "https://trap.example/returns")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, mailer.sentTo(notify.TemplateLoginLink))

	// Formatting differences in the postcode do not matter.
	err = svc.RequestLogin(context.Background(), created.ID, " iv38nw ", "https://trap.example/returns")
	require.NoError(t, err)

	links := mailer.sentTo(notify.TemplateLoginLink)
	require.Len(t, links, 1)
	loginURL := links[0].Personalisation["loginUrl"]
	assert.True(t, strings.HasPrefix(loginURL, "https://trap.example/returns?token="), loginURL)
}
