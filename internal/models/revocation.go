// internal/models/revocation.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Revocation records why and when a registration's licence was withdrawn.
// Exactly one is created per revocation event, in the same transaction as
// the registration's soft-delete.
type Revocation struct {
	ID             uint `json:"id" gorm:"primaryKey"`
	RegistrationID int  `json:"registration_id" gorm:"index"`

	Reason    string  `json:"reason"`
	CreatedBy *string `json:"created_by,omitempty"`
	IsRevoked bool    `json:"is_revoked"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
