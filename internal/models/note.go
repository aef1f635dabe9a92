// internal/models/note.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Note is a free-text annotation attached to a registration by a licensing
// officer. Append-only.
type Note struct {
	ID             uint `json:"id" gorm:"primaryKey"`
	RegistrationID int  `json:"registration_id" gorm:"index"`

	Note      string  `json:"note" gorm:"type:text"`
	CreatedBy *string `json:"created_by,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
