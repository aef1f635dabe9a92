// internal/services/return_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/naturelicensing/trapreg/internal/database"
	"github.com/naturelicensing/trapreg/internal/models"
	"github.com/naturelicensing/trapreg/internal/utils"
)

// Annual returns were introduced with the 2022 licence terms; nothing is
// owed for years before that.
const firstReportingYear = 2022

type ReturnService struct {
	db *gorm.DB
}

func NewReturnService(db *gorm.DB) *ReturnService {
	return &ReturnService{db: db}
}

type NonTargetSpeciesRequest struct {
	GridReference string  `json:"grid_reference" validate:"required,max=20"`
	SpeciesCaught string  `json:"species_caught" validate:"required,max=100"`
	NumberCaught  int     `json:"number_caught" validate:"min=1"`
	TrapType      string  `json:"trap_type" validate:"required,max=100"`
	Comment       *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

type SubmitReturnRequest struct {
	Year                      int                       `json:"year" validate:"required,min=2020,max=2100"`
	NumberLarsenMate          *int                      `json:"number_larsen_mate,omitempty" validate:"omitempty,min=0"`
	NumberLarsenPod           *int                      `json:"number_larsen_pod,omitempty" validate:"omitempty,min=0"`
	NoMeatBaitsUsed           *bool                     `json:"no_meat_baits_used,omitempty"`
	NonTargetSpeciesToReport  *bool                     `json:"non_target_species_to_report,omitempty"`
	CreatedByLicensingOfficer *string                   `json:"created_by_licensing_officer,omitempty"`
	NonTargetSpecies          []NonTargetSpeciesRequest `json:"non_target_species,omitempty" validate:"dive"`
}

// Submit records an annual return with its nested species rows. Parent and
// children land in one transaction; if any child insert fails nothing is
// kept.
func (s *ReturnService) Submit(ctx context.Context, registrationID int, req *SubmitReturnRequest) (*models.Return, error) {
	var reg models.Registration
	if err := s.db.WithContext(ctx).First(&reg, "id = ?", registrationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load registration: %w", err)
	}

	ret := &models.Return{
		RegistrationID:            registrationID,
		Year:                      req.Year,
		NumberLarsenMate:          req.NumberLarsenMate,
		NumberLarsenPod:           req.NumberLarsenPod,
		NoMeatBaitsUsed:           req.NoMeatBaitsUsed,
		NonTargetSpeciesToReport:  req.NonTargetSpeciesToReport,
		CreatedByLicensingOfficer: utils.CleanString(req.CreatedByLicensingOfficer),
		NonTargetSpecies:          speciesFromRequests(req.NonTargetSpecies),
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Create(ret).Error; err != nil {
			return fmt.Errorf("failed to record return: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"registration": reg.RegNo(),
		"year":         ret.Year,
	}).Info("Return submitted")
	return ret, nil
}

func (s *ReturnService) ListFor(ctx context.Context, registrationID int) ([]models.Return, error) {
	var returns []models.Return
	err := s.db.WithContext(ctx).
		Preload("NonTargetSpecies").
		Where("registration_id = ?", registrationID).
		Order("year asc").
		Find(&returns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list returns: %w", err)
	}

	return returns, nil
}

func (s *ReturnService) Find(ctx context.Context, registrationID int, returnID uint) (*models.Return, error) {
	var ret models.Return
	err := s.db.WithContext(ctx).
		Preload("NonTargetSpecies").
		Where("id = ? AND registration_id = ?", returnID, registrationID).
		First(&ret).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load return: %w", err)
	}

	return &ret, nil
}

type UpdateReturnRequest struct {
	NumberLarsenMate         *int  `json:"number_larsen_mate,omitempty" validate:"omitempty,min=0"`
	NumberLarsenPod          *int  `json:"number_larsen_pod,omitempty" validate:"omitempty,min=0"`
	NoMeatBaitsUsed          *bool `json:"no_meat_baits_used,omitempty"`
	NonTargetSpeciesToReport *bool `json:"non_target_species_to_report,omitempty"`

	// Non-nil replaces the full species list; nil leaves it untouched.
	NonTargetSpecies []NonTargetSpeciesRequest `json:"non_target_species,omitempty" validate:"dive"`
}

// Update amends a submitted return. A supplied species list replaces the
// recorded one wholesale, in the same transaction as the scalar changes.
func (s *ReturnService) Update(ctx context.Context, registrationID int, returnID uint, req *UpdateReturnRequest) (*models.Return, error) {
	ret, err := s.Find(ctx, registrationID, returnID)
	if err != nil {
		return nil, err
	}

	if req.NumberLarsenMate != nil {
		ret.NumberLarsenMate = req.NumberLarsenMate
	}
	if req.NumberLarsenPod != nil {
		ret.NumberLarsenPod = req.NumberLarsenPod
	}
	if req.NoMeatBaitsUsed != nil {
		ret.NoMeatBaitsUsed = req.NoMeatBaitsUsed
	}
	if req.NonTargetSpeciesToReport != nil {
		ret.NonTargetSpeciesToReport = req.NonTargetSpeciesToReport
	}

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if req.NonTargetSpecies != nil {
			if err := tx.Where("return_id = ?", ret.ID).Delete(&models.NonTargetSpecies{}).Error; err != nil {
				return fmt.Errorf("failed to clear species records: %w", err)
			}
			ret.NonTargetSpecies = speciesFromRequests(req.NonTargetSpecies)
			for i := range ret.NonTargetSpecies {
				ret.NonTargetSpecies[i].ReturnID = ret.ID
			}
			if len(ret.NonTargetSpecies) > 0 {
				if err := tx.Create(&ret.NonTargetSpecies).Error; err != nil {
					return fmt.Errorf("failed to record species: %w", err)
				}
			}
		}

		if err := tx.Omit("NonTargetSpecies").Save(ret).Error; err != nil {
			return fmt.Errorf("failed to update return: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ret, nil
}

func (s *ReturnService) FindAllReturns(ctx context.Context, params utils.PaginationParams) ([]models.Return, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Return{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count returns: %w", err)
	}

	var returns []models.Return
	query = utils.ApplySort(query, params, []string{"created_at", "year", "registration_id"})
	if err := utils.ApplyPagination(query, params).Preload("NonTargetSpecies").Find(&returns).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list returns: %w", err)
	}

	return returns, total, nil
}

type MissingYearsResult struct {
	MissingYears []int `json:"missing_years"`
	AnythingOwed bool  `json:"anything_owed"`
}

// MissingYears computes which reporting years a registration still owes a
// return for, as of the given time. Only meat-bait registrations owe
// returns. The owed range runs from the later of the creation year and the
// first reporting year through the earlier of the expiry year and the
// current year.
func (s *ReturnService) MissingYears(ctx context.Context, reg *models.Registration, asOf time.Time) (*MissingYearsResult, error) {
	result := &MissingYearsResult{MissingYears: []int{}}

	if !reg.UsesMeatBaits() || reg.ExpiryDate == nil {
		return result, nil
	}

	start := reg.CreatedAt.UTC().Year()
	if start < firstReportingYear {
		start = firstReportingYear
	}
	end := reg.ExpiryDate.UTC().Year()
	if asOf.UTC().Year() < end {
		end = asOf.UTC().Year()
	}

	var submitted []int
	err := s.db.WithContext(ctx).
		Model(&models.Return{}).
		Where("registration_id = ?", reg.ID).
		Distinct().
		Pluck("year", &submitted).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load submitted years: %w", err)
	}

	have := make(map[int]bool, len(submitted))
	for _, y := range submitted {
		have[y] = true
	}

	for y := start; y <= end; y++ {
		if !have[y] {
			result.MissingYears = append(result.MissingYears, y)
		}
	}
	sort.Ints(result.MissingYears)
	result.AnythingOwed = len(result.MissingYears) > 0

	return result, nil
}

func speciesFromRequests(reqs []NonTargetSpeciesRequest) []models.NonTargetSpecies {
	species := make([]models.NonTargetSpecies, 0, len(reqs))
	for _, r := range reqs {
		species = append(species, models.NonTargetSpecies{
			GridReference: r.GridReference,
			SpeciesCaught: r.SpeciesCaught,
			NumberCaught:  r.NumberCaught,
			TrapType:      r.TrapType,
			Comment:       utils.CleanString(r.Comment),
		})
	}
	return species
}
