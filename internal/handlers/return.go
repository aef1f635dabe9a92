// internal/handlers/return.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/naturelicensing/trapreg/internal/middleware"
	"github.com/naturelicensing/trapreg/internal/services"
	"github.com/naturelicensing/trapreg/internal/utils"
)

type ReturnHandler struct {
	returns *services.ReturnService
}

func NewReturnHandler(returns *services.ReturnService) *ReturnHandler {
	return &ReturnHandler{returns: returns}
}

// ListForRegistration handles GET /registrations/:id/returns.
func (h *ReturnHandler) ListForRegistration(c *gin.Context) {
	id, ok := parseRegistrationID(c)
	if !ok {
		return
	}

	returns, err := h.returns.ListFor(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, returns)
}

// Submit handles POST /registrations/:id/returns. The login token's subject
// must match the registration being reported on.
func (h *ReturnHandler) Submit(c *gin.Context) {
	id, ok := parseRegistrationID(c)
	if !ok {
		return
	}
	if !h.tokenMatches(c, id) {
		return
	}

	var req services.SubmitReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	ret, err := h.returns.Submit(c.Request.Context(), id, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("%s/%d", c.Request.URL.Path, ret.ID))
	utils.CreatedResponse(c, ret)
}

// Get handles GET /registrations/:id/returns/:returnId.
func (h *ReturnHandler) Get(c *gin.Context) {
	id, ok := parseRegistrationID(c)
	if !ok {
		return
	}
	returnID, ok := parseReturnID(c)
	if !ok {
		return
	}

	ret, err := h.returns.Find(c.Request.Context(), id, returnID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, ret)
}

// Update handles PUT /registrations/:id/returns/:returnId.
func (h *ReturnHandler) Update(c *gin.Context) {
	id, ok := parseRegistrationID(c)
	if !ok {
		return
	}
	returnID, ok := parseReturnID(c)
	if !ok {
		return
	}
	if !h.tokenMatches(c, id) {
		return
	}

	var req services.UpdateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	ret, err := h.returns.Update(c.Request.Context(), id, returnID, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, ret)
}

// ListAll handles GET /returns, the licensing team's cross-registration
// view.
func (h *ReturnHandler) ListAll(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	returns, total, err := h.returns.FindAllReturns(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(returns, total, params))
}

func parseReturnID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("returnId"), 10, 32)
	if err != nil {
		utils.NotFoundResponse(c, "Return not found")
		return 0, false
	}
	return uint(id), true
}

// tokenMatches enforces that a login token only acts on its own
// registration. Requests without a token context were rejected by the
// middleware already.
func (h *ReturnHandler) tokenMatches(c *gin.Context, id int) bool {
	subject, exists := c.Get(middleware.LoginSubjectKey)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return false
	}
	if subject != strconv.Itoa(id) {
		utils.ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", "Token does not grant access to this registration", nil)
		return false
	}
	return true
}
