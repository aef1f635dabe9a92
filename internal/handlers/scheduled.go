// internal/handlers/scheduled.go
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/naturelicensing/trapreg/internal/services"
	"github.com/naturelicensing/trapreg/internal/utils"
)

// ScheduledHandler exposes the reminder categories as manual triggers, so
// the licensing team can re-run a day's dispatch after an outage without
// waiting for the next tick.
type ScheduledHandler struct {
	reminders *services.ReminderService
}

func NewScheduledHandler(reminders *services.ReminderService) *ScheduledHandler {
	return &ScheduledHandler{reminders: reminders}
}

func (h *ScheduledHandler) ReturnsDue(c *gin.Context) {
	h.trigger(c, "returns_due", h.reminders.ReturnsDue)
}

func (h *ScheduledHandler) NoReturnPreviousYear(c *gin.Context) {
	h.trigger(c, "no_return_previous_year", h.reminders.NoReturnPreviousYear)
}

func (h *ScheduledHandler) NoReturnEver(c *gin.Context) {
	h.trigger(c, "no_return_ever", h.reminders.NoReturnEver)
}

func (h *ScheduledHandler) ExpiredRecentlyNoReturn(c *gin.Context) {
	h.trigger(c, "expired_recently_no_return", h.reminders.ExpiredRecentlyNoReturn)
}

func (h *ScheduledHandler) TwoWeeksToExpiry(c *gin.Context) {
	h.trigger(c, "two_weeks_to_expiry", h.reminders.TwoWeeksToExpiry)
}

func (h *ScheduledHandler) ExpiredYesterdayNoRenewal(c *gin.Context) {
	h.trigger(c, "expired_yesterday_no_renewal", h.reminders.ExpiredYesterdayNoRenewal)
}

func (h *ScheduledHandler) trigger(c *gin.Context, name string, category func(context.Context, time.Time) (int, error)) {
	count, err := category(c.Request.Context(), time.Now())
	if err != nil {
		logrus.WithError(err).WithField("job", name).Error("Reminder trigger failed")
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"job": name, "sent": count})
}
