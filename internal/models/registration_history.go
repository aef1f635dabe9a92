// internal/models/registration_history.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegistrationHistory is a snapshot of a registration's state taken just
// before a renewal rewrites its cycle. Snapshots are audit records and are
// never updated after creation.
type RegistrationHistory struct {
	RevisionID     uuid.UUID `json:"revision_id" gorm:"type:uuid;primaryKey"`
	RegistrationID int       `json:"registration_id" gorm:"index"`

	Convictions     *bool `json:"convictions,omitempty"`
	UsingGL01       *bool `json:"using_gl01,omitempty"`
	UsingGL02       *bool `json:"using_gl02,omitempty"`
	UsingGL03       *bool `json:"using_gl03,omitempty"`
	ComplyWithTerms *bool `json:"comply_with_terms,omitempty"`
	MeatBaits       *bool `json:"meat_baits,omitempty"`

	FullName        *string `json:"full_name,omitempty"`
	AddressLine1    *string `json:"address_line_1,omitempty"`
	AddressLine2    *string `json:"address_line_2,omitempty"`
	AddressTown     *string `json:"address_town,omitempty"`
	AddressCounty   *string `json:"address_county,omitempty"`
	AddressPostcode *string `json:"address_postcode,omitempty"`
	PhoneNumber     *string `json:"phone_number,omitempty"`
	EmailAddress    *string `json:"email_address,omitempty"`
	UPRN            *string `json:"uprn,omitempty"`

	CreatedByLicensingOfficer *string    `json:"created_by_licensing_officer,omitempty"`
	ExpiryDate                *time.Time `json:"expiry_date,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (h *RegistrationHistory) BeforeCreate(tx *gorm.DB) error {
	if h.RevisionID == uuid.Nil {
		h.RevisionID = uuid.New()
	}
	return nil
}
