package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/http/middleware"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/http/routes"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/mail"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/repositories"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/config"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/services"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/password"

	"github.com/gofiber/fiber/v2"

	_ "github.com/RusinduKasun/ITP-Project-2025-sub000/docs" // Swagger docs
)

// @title ITP Accounts API
// @version 1.0
// @description Account registration, login with emailed two-factor codes, and password recovery.

// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}
	password.SetCost(cfg.Security.BcryptCost)

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := config.Migrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}

	accountRepo := repositories.NewAccountRepository(db)

	// Seed bootstrap admin
	if err := config.NewSeeder(accountRepo, cfg.Seed).Run(context.Background()); err != nil {
		log.Printf("⚠️ Warning: Failed to seed data: %v", err)
	}

	// Redis is optional
	rdb, err := config.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Notification chain, in fixed order
	channels, err := buildChannels(context.Background(), cfg.Mail)
	if err != nil {
		log.Fatalf("❌ Failed to set up mail channels: %v", err)
	}

	// Start Cron Service for OTP cleanup
	cronService := services.NewCronService(accountRepo, nil)
	if err := cronService.Start(); err != nil {
		log.Fatalf("❌ Failed to start cron: %v", err)
	}
	defer cronService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "ITP Accounts API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	routes.Setup(app, db, rdb, channels, cfg)

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// buildChannels returns ses, http-api, smtp-primary and smtp-secondary in
// that order. Channels without credentials are kept and report unconfigured.
func buildChannels(ctx context.Context, cfg config.MailConfig) ([]services.Channel, error) {
	sesChannel, err := mail.NewSESChannelFromRegion(ctx, cfg.SES.Region, cfg.SES.From)
	if err != nil {
		return nil, err
	}

	channels := []services.Channel{
		sesChannel,
		mail.NewHTTPAPIChannel(mail.HTTPAPIConfig{
			BaseURL:  cfg.API.BaseURL,
			APIKey:   cfg.API.Key,
			From:     cfg.API.From,
			FromName: cfg.API.FromName,
		}),
		mail.NewSMTPChannel("smtp-primary", smtpConfig(cfg.SMTP)),
		mail.NewSMTPChannel("smtp-secondary", smtpConfig(cfg.SMTP2)),
	}
	return channels, nil
}

func smtpConfig(c config.SMTPConfig) mail.SMTPConfig {
	return mail.SMTPConfig{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.User,
		Password: c.Password,
		From:     c.From,
		FromName: c.FromName,
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
