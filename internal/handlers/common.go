// internal/handlers/common.go
package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/naturelicensing/trapreg/internal/services"
	"github.com/naturelicensing/trapreg/internal/utils"
)

// parseRegistrationID treats malformed ids the same as unknown ones, so
// probing the id format gets a 404 either way.
func parseRegistrationID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 0 {
		utils.NotFoundResponse(c, "Registration not found")
		return 0, false
	}
	return id, true
}

func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, "Registration not found")
	case errors.Is(err, services.ErrAlreadyAssigned):
		utils.ConflictResponse(c, "Registration is already assigned")
	default:
		logrus.WithError(err).Error("Request handling failed")
		utils.InternalErrorResponse(c, "")
	}
}
