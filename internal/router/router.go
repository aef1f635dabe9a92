// internal/router/router.go
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/naturelicensing/trapreg/internal/config"
	"github.com/naturelicensing/trapreg/internal/handlers"
	"github.com/naturelicensing/trapreg/internal/middleware"
	"github.com/naturelicensing/trapreg/internal/services"
	"github.com/naturelicensing/trapreg/internal/utils"
)

// Dependencies carries everything the route tree needs. Services are
// constructed once in main and shared with the scheduler.
type Dependencies struct {
	Config        *config.Config
	LoginKeys     *utils.LoginKeys
	Registrations *services.RegistrationService
	Returns       *services.ReturnService
	Notes         *services.NoteService
	Reminders     *services.ReminderService
}

func Setup(deps Dependencies) *gin.Engine {
	if deps.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	if deps.Config.Environment != "test" {
		r.Use(middleware.GeneralRateLimit())
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
		})
	})

	registrationHandler := handlers.NewRegistrationHandler(deps.Registrations, deps.Returns)
	returnHandler := handlers.NewReturnHandler(deps.Returns)
	noteHandler := handlers.NewNoteHandler(deps.Notes)
	scheduledHandler := handlers.NewScheduledHandler(deps.Reminders)

	api := r.Group(deps.Config.Server.PathPrefix)

	v1 := api.Group("/v1")
	{
		v1.GET("/public-key", publicKeyHandler(deps.LoginKeys))

		v1.GET("/registrations", registrationHandler.List)
		v1.POST("/registrations", registrationHandler.Create)

		reg := v1.Group("/registrations/:id")
		{
			reg.GET("", registrationHandler.Get)
			reg.PUT("", registrationHandler.Assign)
			reg.DELETE("", registrationHandler.Delete)

			reg.POST("/renew", registrationHandler.Renew)
			reg.GET("/renewals", registrationHandler.Renewals)
			reg.GET("/history", registrationHandler.History)
			reg.GET("/missing-years", registrationHandler.MissingYears)

			reg.GET("/returns", returnHandler.ListForRegistration)
			reg.GET("/returns/:returnId", returnHandler.Get)

			// Submitting and amending returns is the holder's self-service
			// flow; it requires a login-link token.
			authed := reg.Group("")
			authed.Use(middleware.LoginTokenAuth(deps.LoginKeys))
			{
				authed.POST("/returns", returnHandler.Submit)
				authed.PUT("/returns/:returnId", returnHandler.Update)
			}

			reg.GET("/notes", noteHandler.List)
			reg.POST("/notes", noteHandler.Create)

			reg.GET("/login", middleware.LoginRateLimit(), registrationHandler.RequestLogin)
		}

		v1.GET("/returns", returnHandler.ListAll)

		scheduled := v1.Group("/scheduled")
		{
			scheduled.POST("/returns-due", scheduledHandler.ReturnsDue)
			scheduled.POST("/no-return-previous-year", scheduledHandler.NoReturnPreviousYear)
			scheduled.POST("/no-return-ever", scheduledHandler.NoReturnEver)
			scheduled.POST("/expired-recently-no-return", scheduledHandler.ExpiredRecentlyNoReturn)
			scheduled.POST("/two-weeks-to-expiry", scheduledHandler.TwoWeeksToExpiry)
			scheduled.POST("/expired-yesterday-no-renewal", scheduledHandler.ExpiredYesterdayNoRenewal)
		}
	}

	// v2 is reserved for the next public API surface; routes answer 501
	// until it lands.
	v2 := api.Group("/v2")
	{
		notImplemented := func(c *gin.Context) { utils.NotImplementedResponse(c) }
		v2.GET("/registrations", notImplemented)
		v2.GET("/registrations/:id", notImplemented)
		v2.GET("/registrations/:id/login", notImplemented)
	}

	return r
}

func publicKeyHandler(keys *utils.LoginKeys) gin.HandlerFunc {
	return func(c *gin.Context) {
		pemData, err := keys.PublicKeyPEM()
		if err != nil {
			logrus.WithError(err).Error("Failed to export public key")
			utils.InternalErrorResponse(c, "")
			return
		}
		utils.SuccessResponse(c, gin.H{"public_key": pemData})
	}
}
