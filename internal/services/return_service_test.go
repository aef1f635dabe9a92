// internal/services/return_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/naturelicensing/trapreg/internal/models"
)

// seedRegistration inserts a registration row directly, bypassing the
// allocator, with full control over creation and expiry dates.
func seedRegistration(t *testing.T, db *gorm.DB, id int, meatBaits bool, createdAt time.Time, expiry time.Time) *models.Registration {
	t.Helper()

	reg := &models.Registration{
		ID:           id,
		TrapID:       intPtr(id),
		MeatBaits:    boolPtr(meatBaits),
		FullName:     strPtr("Morag Sutherland"),
		EmailAddress: strPtr("morag@example.com"),
		ExpiryDate:   &expiry,
		CreatedAt:    createdAt,
	}
	require.NoError(t, db.Create(reg).Error)
	return reg
}

func TestSubmitCreatesParentAndChildren(t *testing.T) {
	db := newTestDB(t)
	svc := NewReturnService(db)
	seedRegistration(t, db, 1, true,
		time.Date(2022, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC))

	ret, err := svc.Submit(context.Background(), 1, &SubmitReturnRequest{
		Year:                     2024,
		NumberLarsenMate:         intPtr(2),
		NoMeatBaitsUsed:          boolPtr(false),
		NonTargetSpeciesToReport: boolPtr(true),
		NonTargetSpecies: []NonTargetSpeciesRequest{
			{GridReference: "NH664452", SpeciesCaught: "Buzzard", NumberCaught: 1, TrapType: "Larsen"},
			{GridReference: "NH664453", SpeciesCaught: "Raven", NumberCaught: 2, TrapType: "Larsen pod", Comment: strPtr("released unharmed")},
		},
	})
	require.NoError(t, err)
	assert.NotZero(t, ret.ID)

	stored, err := svc.Find(context.Background(), 1, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, 2024, stored.Year)
	require.Len(t, stored.NonTargetSpecies, 2)
	assert.Equal(t, "Buzzard", stored.NonTargetSpecies[0].SpeciesCaught)
}

func TestSubmitRollsBackWhenChildInsertFails(t *testing.T) {
	db := newTestDB(t)
	svc := NewReturnService(db)
	seedRegistration(t, db, 1, true,
		time.Date(2022, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC))

	require.NoError(t, db.Migrator().DropTable(&models.NonTargetSpecies{}))

	_, err := svc.Submit(context.Background(), 1, &SubmitReturnRequest{
		Year: 2024,
		NonTargetSpecies: []NonTargetSpeciesRequest{
			{GridReference: "NH664452", SpeciesCaught: "Buzzard", NumberCaught: 1, TrapType: "Larsen"},
		},
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Return{}).Count(&count).Error)
	assert.Zero(t, count, "parent return survived a failed child insert")
}

func TestSubmitUnknownRegistration(t *testing.T) {
	db := newTestDB(t)
	svc := NewReturnService(db)

	_, err := svc.Submit(context.Background(), 99999, &SubmitReturnRequest{Year: 2024})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateReplacesSpeciesList(t *testing.T) {
	db := newTestDB(t)
	svc := NewReturnService(db)
	seedRegistration(t, db, 1, true,
		time.Date(2022, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC))

	ret, err := svc.Submit(context.Background(), 1, &SubmitReturnRequest{
		Year: 2024,
		NonTargetSpecies: []NonTargetSpeciesRequest{
			{GridReference: "NH664452", SpeciesCaught: "Buzzard", NumberCaught: 1, TrapType: "Larsen"},
		},
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), 1, ret.ID, &UpdateReturnRequest{
		NumberLarsenPod: intPtr(3),
		NonTargetSpecies: []NonTargetSpeciesRequest{
			{GridReference: "NH700100", SpeciesCaught: "Kestrel", NumberCaught: 1, TrapType: "Larsen"},
			{GridReference: "NH700101", SpeciesCaught: "Raven", NumberCaught: 1, TrapType: "Larsen"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.NumberLarsenPod)
	assert.Equal(t, 3, *updated.NumberLarsenPod)

	stored, err := svc.Find(context.Background(), 1, ret.ID)
	require.NoError(t, err)
	require.Len(t, stored.NonTargetSpecies, 2)
	assert.Equal(t, "Kestrel", stored.NonTargetSpecies[0].SpeciesCaught)
}

func TestMissingYears(t *testing.T) {
	db := newTestDB(t)
	svc := NewReturnService(db)
	asOf := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	t.Run("owed range starts at the first reporting year", func(t *testing.T) {
		reg := seedRegistration(t, db, 1, true,
			time.Date(2020, time.May, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC))

		for _, year := range []int{2022, 2023} {
			_, err := svc.Submit(context.Background(), reg.ID, &SubmitReturnRequest{Year: year})
			require.NoError(t, err)
		}

		result, err := svc.MissingYears(context.Background(), reg, asOf)
		require.NoError(t, err)
		assert.Equal(t, []int{2024}, result.MissingYears)
		assert.True(t, result.AnythingOwed)
	})

	t.Run("nothing submitted", func(t *testing.T) {
		reg := seedRegistration(t, db, 2, true,
			time.Date(2022, time.May, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC))

		result, err := svc.MissingYears(context.Background(), reg, asOf)
		require.NoError(t, err)
		assert.Equal(t, []int{2022, 2023, 2024}, result.MissingYears)
		assert.True(t, result.AnythingOwed)
	})

	t.Run("non-meat-bait registrations owe nothing", func(t *testing.T) {
		reg := seedRegistration(t, db, 3, false,
			time.Date(2022, time.May, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC))

		result, err := svc.MissingYears(context.Background(), reg, asOf)
		require.NoError(t, err)
		assert.Empty(t, result.MissingYears)
		assert.False(t, result.AnythingOwed)
	})

	t.Run("no expiry date means nothing owed yet", func(t *testing.T) {
		reg := &models.Registration{ID: 4, MeatBaits: boolPtr(true)}
		require.NoError(t, db.Create(reg).Error)

		result, err := svc.MissingYears(context.Background(), reg, asOf)
		require.NoError(t, err)
		assert.False(t, result.AnythingOwed)
	})

	t.Run("fully reported", func(t *testing.T) {
		reg := seedRegistration(t, db, 5, true,
			time.Date(2022, time.May, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC))

		for _, year := range []int{2022, 2023, 2024} {
			_, err := svc.Submit(context.Background(), reg.ID, &SubmitReturnRequest{Year: year})
			require.NoError(t, err)
		}

		result, err := svc.MissingYears(context.Background(), reg, asOf)
		require.NoError(t, err)
		assert.Empty(t, result.MissingYears)
		assert.False(t, result.AnythingOwed)
	})
}
