// internal/services/notification_service.go
package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/naturelicensing/trapreg/internal/models"
	"github.com/naturelicensing/trapreg/internal/notify"
	"github.com/naturelicensing/trapreg/internal/utils"
)

// NotificationService shapes outbound emails for the gateway: it picks the
// template, builds the personalisation map and sets the shared reply-to
// address. A nil mailer (no API key configured) turns every send into a
// logged no-op, which keeps local development working without credentials.
type NotificationService struct {
	mailer notify.Mailer
}

func NewNotificationService(mailer notify.Mailer) *NotificationService {
	return &NotificationService{mailer: mailer}
}

const expiryDateFormat = "2 January 2006"

func (s *NotificationService) SendRegistrationConfirmation(ctx context.Context, reg *models.Registration) error {
	if reg.EmailAddress == nil || *reg.EmailAddress == "" {
		logrus.WithField("registration", reg.RegNo()).Warn("No email address on registration, skipping confirmation")
		return nil
	}

	return s.send(ctx, notify.TemplateRegistrationConfirmation, *reg.EmailAddress, confirmationPersonalisation(reg), reg.RegNo())
}

// SendReminder dispatches one of the scheduled reminder templates. All of
// them share the same minimal personalisation.
func (s *NotificationService) SendReminder(ctx context.Context, templateID string, reg *models.Registration) error {
	if reg.EmailAddress == nil || *reg.EmailAddress == "" {
		return nil
	}

	personalisation := map[string]string{
		"regNo": reg.RegNo(),
	}
	if reg.ExpiryDate != nil {
		personalisation["expiryDate"] = reg.ExpiryDate.Format(expiryDateFormat)
	}

	return s.send(ctx, templateID, *reg.EmailAddress, personalisation, reg.RegNo())
}

func (s *NotificationService) SendLoginLink(ctx context.Context, reg *models.Registration, loginURL string) error {
	if reg.EmailAddress == nil || *reg.EmailAddress == "" {
		return nil
	}

	personalisation := map[string]string{
		"regNo":    reg.RegNo(),
		"loginUrl": loginURL,
	}

	return s.send(ctx, notify.TemplateLoginLink, *reg.EmailAddress, personalisation, reg.RegNo())
}

func (s *NotificationService) send(ctx context.Context, templateID, emailAddress string, personalisation map[string]string, reference string) error {
	if s.mailer == nil {
		logrus.WithFields(logrus.Fields{
			"template":  templateID,
			"reference": reference,
		}).Info("Email gateway not configured, skipping send")
		return nil
	}

	return s.mailer.SendEmail(ctx, templateID, emailAddress, personalisation, reference, notify.ReplyToLicensing)
}

// confirmationPersonalisation renders every declaration as a yes/no pair;
// the template shows one conditional paragraph per side.
func confirmationPersonalisation(reg *models.Registration) map[string]string {
	personalisation := map[string]string{
		"regNo":         reg.RegNo(),
		"convictions":   utils.YesNo(reg.Convictions),
		"noConvictions": utils.NotYesNo(reg.Convictions),
		"general1":      utils.YesNo(reg.UsingGL01),
		"noGeneral1":    utils.NotYesNo(reg.UsingGL01),
		"general2":      utils.YesNo(reg.UsingGL02),
		"noGeneral2":    utils.NotYesNo(reg.UsingGL02),
		"general3":      utils.YesNo(reg.UsingGL03),
		"noGeneral3":    utils.NotYesNo(reg.UsingGL03),
		"comply":        utils.YesNo(reg.ComplyWithTerms),
		"noComply":      utils.NotYesNo(reg.ComplyWithTerms),
		"meatBait":      utils.YesNo(reg.MeatBaits),
		"noMeatBait":    utils.NotYesNo(reg.MeatBaits),
	}
	if reg.ExpiryDate != nil {
		personalisation["expiryDate"] = reg.ExpiryDate.Format(expiryDateFormat)
	}
	return personalisation
}
