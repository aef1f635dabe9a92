// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/naturelicensing/trapreg/internal/config"
	"github.com/naturelicensing/trapreg/internal/database"
	"github.com/naturelicensing/trapreg/internal/notify"
	"github.com/naturelicensing/trapreg/internal/router"
	"github.com/naturelicensing/trapreg/internal/scheduler"
	"github.com/naturelicensing/trapreg/internal/services"
	"github.com/naturelicensing/trapreg/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	// Email gateway client; without an API key sends become logged no-ops.
	var mailer notify.Mailer
	if cfg.Notify.APIKey != "" {
		client, err := notify.NewClient(cfg.Notify)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize email gateway client")
		}
		mailer = client
	} else {
		logrus.Warn("No email gateway API key configured, emails will not be sent")
	}

	// Login-link signing keys
	loginKeys, err := utils.LoadOrGenerateLoginKeys(cfg.Login.PrivateKeyPEM)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load login keys")
	}

	// Services
	notifications := services.NewNotificationService(mailer)
	registrations := services.NewRegistrationService(db, notifications, loginKeys, time.Duration(cfg.Login.TokenTTL)*time.Minute)
	returns := services.NewReturnService(db)
	notes := services.NewNoteService(db)
	reminders := services.NewReminderService(db, notifications)

	// Router
	r := router.Setup(router.Dependencies{
		Config:        cfg,
		LoginKeys:     loginKeys,
		Registrations: registrations,
		Returns:       returns,
		Notes:         notes,
		Reminders:     reminders,
	})

	// Reminder scheduler
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	if cfg.Scheduler.Enabled {
		go scheduler.New(reminders, cfg.Scheduler.Hour).Start(schedulerCtx)
	} else {
		logrus.Info("Reminder scheduler disabled")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	stopScheduler()

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown server
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Fatal("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}
