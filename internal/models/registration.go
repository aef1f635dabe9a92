// internal/models/registration.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Registration is one trap-registration licence. Rows are created with a
// randomly allocated ID and no holder details; the holder's data is attached
// afterwards. A registration whose FullName is set is "assigned" and may not
// be claimed by a different applicant.
//
// TrapID is stable across a chain of renewals: the first cycle's TrapID
// equals its own ID, and every renewal row carries the same value.
type Registration struct {
	ID               int               `json:"id" gorm:"primaryKey;autoIncrement:false"`
	TrapID           *int              `json:"trap_id,omitempty" gorm:"index"`
	RegistrationType *RegistrationType `json:"registration_type,omitempty"`

	// Compliance declarations.
	Convictions     *bool `json:"convictions,omitempty"`
	UsingGL01       *bool `json:"using_gl01,omitempty"`
	UsingGL02       *bool `json:"using_gl02,omitempty"`
	UsingGL03       *bool `json:"using_gl03,omitempty"`
	ComplyWithTerms *bool `json:"comply_with_terms,omitempty"`
	MeatBaits       *bool `json:"meat_baits,omitempty"`

	// Holder contact details.
	FullName        *string `json:"full_name,omitempty"`
	AddressLine1    *string `json:"address_line_1,omitempty"`
	AddressLine2    *string `json:"address_line_2,omitempty"`
	AddressTown     *string `json:"address_town,omitempty"`
	AddressCounty   *string `json:"address_county,omitempty"`
	AddressPostcode *string `json:"address_postcode,omitempty"`
	PhoneNumber     *string `json:"phone_number,omitempty"`
	EmailAddress    *string `json:"email_address,omitempty"`
	UPRN            *string `json:"uprn,omitempty"`

	CreatedByLicensingOfficer *string `json:"created_by_licensing_officer,omitempty"`

	// ExpiryDate is nil while a registration is unassigned or while expiry
	// is suspended pending policy. When set it is always December 31st of
	// the creation year plus four.
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	Returns    []Return    `json:"returns,omitempty" gorm:"foreignKey:RegistrationID"`
	Notes      []Note      `json:"notes,omitempty" gorm:"foreignKey:RegistrationID"`
	Revocation *Revocation `json:"revocation,omitempty" gorm:"foreignKey:RegistrationID"`
}

// RegNo is the human-readable registration number derived from the ID.
func (r *Registration) RegNo() string {
	return FormatRegNo(r.ID)
}

// Assigned reports whether holder details have been attached. An assigned
// registration may no longer be claimed by a different applicant.
func (r *Registration) Assigned() bool {
	return r.FullName != nil && *r.FullName != ""
}

// UsesMeatBaits reports whether the holder declared meat-bait use, which
// brings the annual-return reporting obligation with it.
func (r *Registration) UsesMeatBaits() bool {
	return r.MeatBaits != nil && *r.MeatBaits
}
