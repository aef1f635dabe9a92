// internal/models/return.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Return is an annual compliance report submitted against a registration.
// Returns are never hard-deleted; revoking the parent registration
// tombstones them along with their nested species records.
type Return struct {
	ID             uint `json:"id" gorm:"primaryKey"`
	RegistrationID int  `json:"registration_id" gorm:"index"`

	// Year the report covers, e.g. 2024.
	Year int `json:"year"`

	NumberLarsenMate         *int  `json:"number_larsen_mate,omitempty"`
	NumberLarsenPod          *int  `json:"number_larsen_pod,omitempty"`
	NoMeatBaitsUsed          *bool `json:"no_meat_baits_used,omitempty"`
	NonTargetSpeciesToReport *bool `json:"non_target_species_to_report,omitempty"`

	CreatedByLicensingOfficer *string `json:"created_by_licensing_officer,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	NonTargetSpecies []NonTargetSpecies `json:"non_target_species,omitempty" gorm:"foreignKey:ReturnID"`
}

// NonTargetSpecies records a single non-target catch event inside a return.
type NonTargetSpecies struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	ReturnID uint `json:"return_id" gorm:"index"`

	GridReference string  `json:"grid_reference"`
	SpeciesCaught string  `json:"species_caught"`
	NumberCaught  int     `json:"number_caught"`
	TrapType      string  `json:"trap_type"`
	Comment       *string `json:"comment,omitempty" gorm:"type:text"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
