// internal/handlers/note.go
package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/naturelicensing/trapreg/internal/services"
	"github.com/naturelicensing/trapreg/internal/utils"
)

type NoteHandler struct {
	notes *services.NoteService
}

func NewNoteHandler(notes *services.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

// List handles GET /registrations/:id/notes.
func (h *NoteHandler) List(c *gin.Context) {
	id, ok := parseRegistrationID(c)
	if !ok {
		return
	}

	notes, err := h.notes.ListFor(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, notes)
}

// Create handles POST /registrations/:id/notes.
func (h *NoteHandler) Create(c *gin.Context) {
	id, ok := parseRegistrationID(c)
	if !ok {
		return
	}

	var req services.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	note, err := h.notes.Create(c.Request.Context(), id, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("%s/%d", c.Request.URL.Path, note.ID))
	utils.CreatedResponse(c, note)
}
