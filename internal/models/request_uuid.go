// internal/models/request_uuid.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestUUID records a client-supplied idempotency token for a create
// request. A second request carrying the same token is recognized as a
// duplicate and not re-applied.
type RequestUUID struct {
	UUID uuid.UUID `json:"uuid" gorm:"type:uuid;primaryKey"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
