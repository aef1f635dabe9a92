// internal/handlers/registration.go
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/naturelicensing/trapreg/internal/services"
	"github.com/naturelicensing/trapreg/internal/utils"
)

type RegistrationHandler struct {
	registrations *services.RegistrationService
	returns       *services.ReturnService
}

func NewRegistrationHandler(registrations *services.RegistrationService, returns *services.ReturnService) *RegistrationHandler {
	return &RegistrationHandler{
		registrations: registrations,
		returns:       returns,
	}
}

// List handles GET /registrations. Revoked rows are excluded unless
// include_revoked=true is passed.
func (h *RegistrationHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	includeRevoked := c.Query("include_revoked") == "true"

	regs, total, err := h.registrations.FindAll(c.Request.Context(), includeRevoked, params)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(regs, total, params))
}

// Create handles POST /registrations. The body is optional; a repeated
// idempotency token answers 200 without creating anything.
func (h *RegistrationHandler) Create(c *gin.Context) {
	var req services.CreateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return
	}

	reg, err := h.registrations.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateRequest) {
			utils.SuccessResponse(c, nil)
			return
		}
		if errors.Is(err, services.ErrAllocationExhausted) {
			logrus.Error("Registration id allocation exhausted")
			utils.InternalErrorResponse(c, "Unable to allocate a registration number")
			return
		}
		respondServiceError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("%s/%d", c.Request.URL.Path, reg.ID))
	utils.CreatedResponse(c, reg)
}

// Get handles GET /registrations/:id.
func (h *RegistrationHandler) Get(c *gin.Context) {
	id, ok := parseRegistrationID(c)
	if !ok {
		return
	}

	includeRevoked := c.Query("include_revoked") == "true"
	reg, err := h.registrations.Find(c.Request.Context(), id, includeRevoked)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, reg)
}

// Assign handles PUT /registrations/:id, attaching holder details to an
// unassigned registration.
func (h *RegistrationHandler) Assign(c *gin.Context) {
	id, ok := parseRegistrationID(c)
	if !ok {
		return
	}

	var req services.AssignRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	reg, err := h.registrations.Assign(c.Request.Context(), id, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, reg)
}

// Delete handles DELETE /registrations/:id, revoking the licence.
func (h *RegistrationHandler) Delete(c *gin.Context) {
	id, ok := parseRegistrationID(c)
	if !ok {
		return
	}

	var req services.RevokeRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	if err := h.registrations.Delete(c.Request.Context(), id, &req); err != nil {
		respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Renew handles POST /registrations/:id/renew.
func (h *RegistrationHandler) Renew(c *gin.Context) {
	id, ok := parseRegistrationID(c)
	if !ok {
		return
	}

	reg, err := h.registrations.Renew(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrAllocationExhausted) {
			logrus.Error("Registration id allocation exhausted during renewal")
			utils.InternalErrorResponse(c, "Unable to allocate a registration number")
			return
		}
		respondServiceError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/registrations/%d", reg.ID))
	utils.CreatedResponse(c, reg)
}

// Renewals handles GET /registrations/:id/renewals.
func (h *RegistrationHandler) Renewals(c *gin.Context) {
	id, ok := parseRegistrationID(c)
	if !ok {
		return
	}

	renewals, err := h.registrations.RenewalsOf(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, renewals)
}

// History handles GET /registrations/:id/history.
func (h *RegistrationHandler) History(c *gin.Context) {
	id, ok := parseRegistrationID(c)
	if !ok {
		return
	}

	history, err := h.registrations.HistoryOf(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, history)
}

// MissingYears handles GET /registrations/:id/missing-years.
func (h *RegistrationHandler) MissingYears(c *gin.Context) {
	id, ok := parseRegistrationID(c)
	if !ok {
		return
	}

	reg, err := h.registrations.Find(c.Request.Context(), id, false)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	result, err := h.returns.MissingYears(c.Request.Context(), reg, time.Now())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

// RequestLogin handles GET /registrations/:id/login. Postcode mismatches
// answer 404, the same as unknown registrations.
func (h *RegistrationHandler) RequestLogin(c *gin.Context) {
	id, ok := parseRegistrationID(c)
	if !ok {
		return
	}

	postcode := c.Query("postcode")
	redirectBaseURL := c.Query("redirectBaseUrl")
	if postcode == "" || redirectBaseURL == "" {
		utils.BadRequestResponse(c, "postcode and redirectBaseUrl are required", nil)
		return
	}

	if err := h.registrations.RequestLogin(c.Request.Context(), id, postcode, redirectBaseURL); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"sent": true})
}
