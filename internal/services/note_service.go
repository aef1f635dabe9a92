// internal/services/note_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/naturelicensing/trapreg/internal/models"
	"github.com/naturelicensing/trapreg/internal/utils"
)

// NoteService manages the append-only annotations licensing officers keep
// against registrations.
type NoteService struct {
	db *gorm.DB
}

func NewNoteService(db *gorm.DB) *NoteService {
	return &NoteService{db: db}
}

type CreateNoteRequest struct {
	Note      string  `json:"note" validate:"required,min=1,max=4000"`
	CreatedBy *string `json:"created_by,omitempty"`
}

func (s *NoteService) Create(ctx context.Context, registrationID int, req *CreateNoteRequest) (*models.Note, error) {
	var reg models.Registration
	if err := s.db.WithContext(ctx).First(&reg, "id = ?", registrationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load registration: %w", err)
	}

	note := &models.Note{
		RegistrationID: registrationID,
		Note:           strings.TrimSpace(req.Note),
		CreatedBy:      utils.CleanString(req.CreatedBy),
	}
	if err := s.db.WithContext(ctx).Create(note).Error; err != nil {
		return nil, fmt.Errorf("failed to record note: %w", err)
	}

	return note, nil
}

func (s *NoteService) ListFor(ctx context.Context, registrationID int) ([]models.Note, error) {
	var notes []models.Note
	err := s.db.WithContext(ctx).
		Where("registration_id = ?", registrationID).
		Order("created_at asc").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	return notes, nil
}
