// internal/services/registration_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/naturelicensing/trapreg/internal/database"
	"github.com/naturelicensing/trapreg/internal/models"
	"github.com/naturelicensing/trapreg/internal/utils"
)

// Registration ids are five digits, drawn at random. The attempt budget
// bounds worst-case latency when the id space fills up.
const (
	maxRegistrationID     = 99999
	maxAllocationAttempts = 10
)

type RegistrationService struct {
	db            *gorm.DB
	notifications *NotificationService
	loginKeys     *utils.LoginKeys
	loginTokenTTL time.Duration

	// draw produces candidate registration ids. Overridable in tests.
	draw func() int
}

func NewRegistrationService(db *gorm.DB, notifications *NotificationService, loginKeys *utils.LoginKeys, loginTokenTTL time.Duration) *RegistrationService {
	return &RegistrationService{
		db:            db,
		notifications: notifications,
		loginKeys:     loginKeys,
		loginTokenTTL: loginTokenTTL,
		draw:          func() int { return rand.Intn(maxRegistrationID) },
	}
}

type CreateRegistrationRequest struct {
	// Optional idempotency token; resubmitting the same token is a no-op.
	RequestUUID               *string `json:"request_uuid,omitempty"`
	CreatedByLicensingOfficer *string `json:"created_by_licensing_officer,omitempty"`
}

type AssignRegistrationRequest struct {
	Convictions     *bool `json:"convictions,omitempty"`
	UsingGL01       *bool `json:"using_gl01,omitempty"`
	UsingGL02       *bool `json:"using_gl02,omitempty"`
	UsingGL03       *bool `json:"using_gl03,omitempty"`
	ComplyWithTerms *bool `json:"comply_with_terms,omitempty"`
	MeatBaits       *bool `json:"meat_baits,omitempty"`

	FullName        *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=200"`
	AddressLine1    *string `json:"address_line_1,omitempty" validate:"omitempty,max=200"`
	AddressLine2    *string `json:"address_line_2,omitempty" validate:"omitempty,max=200"`
	AddressTown     *string `json:"address_town,omitempty" validate:"omitempty,max=100"`
	AddressCounty   *string `json:"address_county,omitempty" validate:"omitempty,max=100"`
	AddressPostcode *string `json:"address_postcode,omitempty" validate:"omitempty,uk_postcode"`
	PhoneNumber     *string `json:"phone_number,omitempty" validate:"omitempty,max=50"`
	EmailAddress    *string `json:"email_address,omitempty" validate:"omitempty,email"`
	UPRN            *string `json:"uprn,omitempty" validate:"omitempty,max=20"`

	CreatedByLicensingOfficer *string `json:"created_by_licensing_officer,omitempty"`
}

type RevokeRegistrationRequest struct {
	Reason    string  `json:"reason" validate:"required,min=1,max=1000"`
	CreatedBy *string `json:"created_by,omitempty"`
}

// Create allocates a blank registration: a fresh five-digit id with no
// holder details and no expiry. Holder data arrives via Assign.
func (s *RegistrationService) Create(ctx context.Context, req *CreateRegistrationRequest) (*models.Registration, error) {
	if req.RequestUUID != nil && *req.RequestUUID != "" {
		if err := s.recordRequestToken(ctx, *req.RequestUUID); err != nil {
			return nil, err
		}
	}

	regType := models.RegistrationTypeInitial
	reg := &models.Registration{
		RegistrationType:          &regType,
		CreatedByLicensingOfficer: utils.CleanString(req.CreatedByLicensingOfficer),
	}

	if err := s.allocate(ctx, s.db, reg); err != nil {
		return nil, err
	}

	logrus.WithField("registration", reg.RegNo()).Info("Registration created")
	return reg, nil
}

// Assign attaches the holder's details to an unassigned registration, sets
// the expiry date and sends the confirmation email. A send failure fails
// the whole operation so the caller knows the holder was not notified.
func (s *RegistrationService) Assign(ctx context.Context, id int, req *AssignRegistrationRequest) (*models.Registration, error) {
	reg, err := s.Find(ctx, id, false)
	if err != nil {
		return nil, err
	}

	if reg.Assigned() {
		return nil, ErrAlreadyAssigned
	}

	applyAssignment(reg, req)

	expiry := expiryDateFor(reg.CreatedAt)
	reg.ExpiryDate = &expiry

	if err := s.db.WithContext(ctx).Save(reg).Error; err != nil {
		return nil, fmt.Errorf("failed to update registration %s: %w", reg.RegNo(), err)
	}

	if err := s.notifications.SendRegistrationConfirmation(ctx, reg); err != nil {
		logrus.WithError(err).WithField("registration", reg.RegNo()).Error("Failed to send confirmation email")
		return nil, fmt.Errorf("registration %s updated but confirmation email failed: %w", reg.RegNo(), err)
	}

	logrus.WithField("registration", reg.RegNo()).Info("Registration assigned")
	return reg, nil
}

// Delete revokes a registration: the revocation record, the soft-delete of
// every child return and species row, and the soft-delete of the
// registration itself all land in one transaction.
func (s *RegistrationService) Delete(ctx context.Context, id int, req *RevokeRegistrationRequest) error {
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var reg models.Registration
		if err := tx.First(&reg, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load registration: %w", err)
		}

		revocation := models.Revocation{
			RegistrationID: id,
			Reason:         strings.TrimSpace(req.Reason),
			CreatedBy:      utils.CleanString(req.CreatedBy),
			IsRevoked:      true,
		}
		if err := tx.Create(&revocation).Error; err != nil {
			return fmt.Errorf("failed to record revocation: %w", err)
		}

		var returnIDs []uint
		if err := tx.Model(&models.Return{}).Where("registration_id = ?", id).Pluck("id", &returnIDs).Error; err != nil {
			return fmt.Errorf("failed to list returns for revocation: %w", err)
		}

		if len(returnIDs) > 0 {
			if err := tx.Where("return_id IN ?", returnIDs).Delete(&models.NonTargetSpecies{}).Error; err != nil {
				return fmt.Errorf("failed to delete species records: %w", err)
			}
			if err := tx.Where("registration_id = ?", id).Delete(&models.Return{}).Error; err != nil {
				return fmt.Errorf("failed to delete returns: %w", err)
			}
		}

		if err := tx.Delete(&reg).Error; err != nil {
			return fmt.Errorf("failed to delete registration: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithField("registration", models.FormatRegNo(id)).Info("Registration revoked")
	return nil
}

// Renew starts a fresh five-year cycle: the old row is snapshotted to the
// history table and left untouched, a new registration with its own id but
// the same trap id is allocated, and a renewal marker ties the two. All
// three writes share one transaction.
func (s *RegistrationService) Renew(ctx context.Context, id int) (*models.Registration, error) {
	old, err := s.Find(ctx, id, false)
	if err != nil {
		return nil, err
	}

	var renewed *models.Registration
	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Create(snapshotOf(old)).Error; err != nil {
			return fmt.Errorf("failed to snapshot registration %s: %w", old.RegNo(), err)
		}

		regType := models.RegistrationTypeRenewal
		expiry := expiryDateFor(time.Now().UTC())
		next := &models.Registration{
			TrapID:           old.TrapID,
			RegistrationType: &regType,
			Convictions:      old.Convictions,
			UsingGL01:        old.UsingGL01,
			UsingGL02:        old.UsingGL02,
			UsingGL03:        old.UsingGL03,
			ComplyWithTerms:  old.ComplyWithTerms,
			MeatBaits:        old.MeatBaits,
			FullName:         old.FullName,
			AddressLine1:     old.AddressLine1,
			AddressLine2:     old.AddressLine2,
			AddressTown:      old.AddressTown,
			AddressCounty:    old.AddressCounty,
			AddressPostcode:  old.AddressPostcode,
			PhoneNumber:      old.PhoneNumber,
			EmailAddress:     old.EmailAddress,
			UPRN:             old.UPRN,
			ExpiryDate:       &expiry,
		}
		if err := s.allocate(ctx, tx, next); err != nil {
			return err
		}

		marker := models.Renewal{RegistrationID: old.ID}
		if err := tx.Create(&marker).Error; err != nil {
			return fmt.Errorf("failed to record renewal of %s: %w", old.RegNo(), err)
		}

		renewed = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.notifications.SendRegistrationConfirmation(ctx, renewed); err != nil {
		logrus.WithError(err).WithField("registration", renewed.RegNo()).Error("Failed to send renewal confirmation email")
		return nil, fmt.Errorf("registration %s renewed but confirmation email failed: %w", renewed.RegNo(), err)
	}

	logrus.WithFields(logrus.Fields{
		"registration": renewed.RegNo(),
		"renewed_from": old.RegNo(),
	}).Info("Registration renewed")
	return renewed, nil
}

// Find loads a registration with its returns. includeRevoked resurrects
// tombstoned rows, children included; callers must ask for that explicitly.
func (s *RegistrationService) Find(ctx context.Context, id int, includeRevoked bool) (*models.Registration, error) {
	query := s.db.WithContext(ctx)
	if includeRevoked {
		unscoped := func(db *gorm.DB) *gorm.DB { return db.Unscoped() }
		query = query.Unscoped().
			Preload("Returns", unscoped).
			Preload("Returns.NonTargetSpecies", unscoped).
			Preload("Revocation", unscoped)
	} else {
		query = query.
			Preload("Returns.NonTargetSpecies").
			Preload("Revocation")
	}

	var reg models.Registration
	if err := query.First(&reg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load registration: %w", err)
	}

	return &reg, nil
}

func (s *RegistrationService) FindAll(ctx context.Context, includeRevoked bool, params utils.PaginationParams) ([]models.Registration, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Registration{})
	if includeRevoked {
		query = query.Unscoped()
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count registrations: %w", err)
	}

	var regs []models.Registration
	query = utils.ApplySort(query, params, []string{"created_at", "expiry_date", "id"})
	if err := utils.ApplyPagination(query, params).Find(&regs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list registrations: %w", err)
	}

	return regs, total, nil
}

// RenewalsOf lists the renewal markers recorded against a registration.
func (s *RegistrationService) RenewalsOf(ctx context.Context, id int) ([]models.Renewal, error) {
	if _, err := s.Find(ctx, id, false); err != nil {
		return nil, err
	}

	var renewals []models.Renewal
	if err := s.db.WithContext(ctx).Where("registration_id = ?", id).Order("created_at asc").Find(&renewals).Error; err != nil {
		return nil, fmt.Errorf("failed to list renewals: %w", err)
	}

	return renewals, nil
}

// HistoryOf lists the pre-renewal snapshots of a registration.
func (s *RegistrationService) HistoryOf(ctx context.Context, id int) ([]models.RegistrationHistory, error) {
	if _, err := s.Find(ctx, id, false); err != nil {
		return nil, err
	}

	var history []models.RegistrationHistory
	if err := s.db.WithContext(ctx).Where("registration_id = ?", id).Order("created_at asc").Find(&history).Error; err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	return history, nil
}

// RequestLogin emails the holder a short-lived signed login link, provided
// the supplied postcode matches the one on record. Mismatches report the
// same ErrNotFound as unknown registrations to prevent address probing.
func (s *RegistrationService) RequestLogin(ctx context.Context, id int, postcode, redirectBaseURL string) error {
	reg, err := s.Find(ctx, id, false)
	if err != nil {
		return err
	}

	if reg.AddressPostcode == nil || !utils.PostcodesMatch(*reg.AddressPostcode, postcode) {
		return ErrNotFound
	}
	if reg.EmailAddress == nil || *reg.EmailAddress == "" {
		return ErrNotFound
	}

	token, err := s.loginKeys.Sign(strconv.Itoa(reg.ID), s.loginTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to sign login token: %w", err)
	}

	loginURL := strings.TrimRight(redirectBaseURL, "/") + "?token=" + url.QueryEscape(token)
	if err := s.notifications.SendLoginLink(ctx, reg, loginURL); err != nil {
		return fmt.Errorf("failed to send login link for %s: %w", reg.RegNo(), err)
	}

	logrus.WithField("registration", reg.RegNo()).Info("Login link sent")
	return nil
}

// allocate draws random ids and relies on the primary-key constraint to
// arbitrate races: a duplicate-key failure means the id was taken, so we
// redraw. An unassigned TrapID is set to the drawn id (first cycle). Each
// attempt runs in a nested transaction so a collision inside an enclosing
// transaction rolls back to a savepoint instead of aborting the whole thing.
func (s *RegistrationService) allocate(ctx context.Context, db *gorm.DB, reg *models.Registration) error {
	ownTrap := reg.TrapID == nil

	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		id := s.draw()
		reg.ID = id
		if ownTrap {
			trapID := id
			reg.TrapID = &trapID
		}

		err := db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
			return inner.Create(reg).Error
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logrus.WithFields(logrus.Fields{
				"id":      id,
				"attempt": attempt,
			}).Warn("Registration id already taken, redrawing")
			continue
		}
		return fmt.Errorf("failed to persist registration: %w", err)
	}

	return ErrAllocationExhausted
}

func (s *RegistrationService) recordRequestToken(ctx context.Context, raw string) error {
	token, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid request token: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(&models.RequestUUID{UUID: token}).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateRequest
		}
		return fmt.Errorf("failed to record request token: %w", err)
	}

	return nil
}

func applyAssignment(reg *models.Registration, req *AssignRegistrationRequest) {
	if req.Convictions != nil {
		reg.Convictions = req.Convictions
	}
	if req.UsingGL01 != nil {
		reg.UsingGL01 = req.UsingGL01
	}
	if req.UsingGL02 != nil {
		reg.UsingGL02 = req.UsingGL02
	}
	if req.UsingGL03 != nil {
		reg.UsingGL03 = req.UsingGL03
	}
	if req.ComplyWithTerms != nil {
		reg.ComplyWithTerms = req.ComplyWithTerms
	}
	if req.MeatBaits != nil {
		reg.MeatBaits = req.MeatBaits
	}
	if req.FullName != nil {
		reg.FullName = utils.CleanString(req.FullName)
	}
	if req.AddressLine1 != nil {
		reg.AddressLine1 = utils.CleanString(req.AddressLine1)
	}
	if req.AddressLine2 != nil {
		reg.AddressLine2 = utils.CleanString(req.AddressLine2)
	}
	if req.AddressTown != nil {
		reg.AddressTown = utils.CleanString(req.AddressTown)
	}
	if req.AddressCounty != nil {
		reg.AddressCounty = utils.CleanString(req.AddressCounty)
	}
	if req.AddressPostcode != nil {
		reg.AddressPostcode = utils.CleanString(req.AddressPostcode)
	}
	if req.PhoneNumber != nil {
		reg.PhoneNumber = utils.CleanString(req.PhoneNumber)
	}
	if req.EmailAddress != nil {
		reg.EmailAddress = utils.CleanEmail(req.EmailAddress)
	}
	if req.UPRN != nil {
		reg.UPRN = utils.CleanString(req.UPRN)
	}
	if req.CreatedByLicensingOfficer != nil {
		reg.CreatedByLicensingOfficer = utils.CleanString(req.CreatedByLicensingOfficer)
	}
}

// expiryDateFor anchors expiry to the end of the fourth year after the
// reference year, so every licence expires on a 31 December.
func expiryDateFor(reference time.Time) time.Time {
	return time.Date(reference.UTC().Year()+4, time.December, 31, 0, 0, 0, 0, time.UTC)
}

func snapshotOf(reg *models.Registration) *models.RegistrationHistory {
	return &models.RegistrationHistory{
		RegistrationID:            reg.ID,
		Convictions:               reg.Convictions,
		UsingGL01:                 reg.UsingGL01,
		UsingGL02:                 reg.UsingGL02,
		UsingGL03:                 reg.UsingGL03,
		ComplyWithTerms:           reg.ComplyWithTerms,
		MeatBaits:                 reg.MeatBaits,
		FullName:                  reg.FullName,
		AddressLine1:              reg.AddressLine1,
		AddressLine2:              reg.AddressLine2,
		AddressTown:               reg.AddressTown,
		AddressCounty:             reg.AddressCounty,
		AddressPostcode:           reg.AddressPostcode,
		PhoneNumber:               reg.PhoneNumber,
		EmailAddress:              reg.EmailAddress,
		UPRN:                      reg.UPRN,
		CreatedByLicensingOfficer: reg.CreatedByLicensingOfficer,
		ExpiryDate:                reg.ExpiryDate,
	}
}
