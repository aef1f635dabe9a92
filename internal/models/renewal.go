// internal/models/renewal.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Renewal marks that a registration cycle has been renewed. The referenced
// registration is the old cycle; the new cycle is a fresh Registration row
// sharing the same trap identifier.
type Renewal struct {
	ID             uint `json:"id" gorm:"primaryKey"`
	RegistrationID int  `json:"registration_id" gorm:"index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
