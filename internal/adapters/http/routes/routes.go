package routes

import (
	"log"
	"strings"
	"time"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/http/handlers"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/http/middleware"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/repositories"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/config"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/services"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Setup configures all routes for the application. rdb may be nil, which
// turns off attempt limiting and logout revocation. channels is the ordered
// notification chain.
func Setup(app *fiber.App, db *gorm.DB, rdb *redis.Client, channels []services.Channel, cfg *config.Config) {
	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)

	// Initialize services
	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.AccessTokenTTL(), cfg.OTP.Lifetime)
	otpService := services.NewOTPService(cfg.OTP.Lifetime, time.Now)
	notifyService := services.NewNotificationService(channels, cfg.Mail.ChannelTimeout, cfg.Mail.TotalBudget)
	if notifyService.IsEnabled() {
		log.Printf("📧 Mail channels ready: %s", strings.Join(notifyService.ConfiguredChannels(), " → "))
	} else {
		log.Println("⚠️ No mail channel configured: codes will not be delivered")
	}
	limiter := services.NewAttemptLimiter(rdb, cfg.Security.AttemptLimitMax, cfg.Security.AttemptLimitWindow)
	revoker := services.NewSessionRevoker(rdb)

	twoFactorService := services.NewTwoFactorService(accountRepo, tokens, otpService, notifyService, limiter)
	authService := services.NewAuthService(accountRepo, tokens, twoFactorService, limiter, revoker)
	recoveryService := services.NewRecoveryService(
		accountRepo,
		otpService,
		notifyService,
		limiter,
		cfg.Security.RecoveryRevealUnknownEmail,
	)

	gate := middleware.NewGate(tokens, accountRepo, revoker)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, notifyService, cfg)
	authHandler := handlers.NewAuthHandler(authService, twoFactorService, recoveryService, cfg)
	accountHandler := handlers.NewAccountHandler(authService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")

	// Auth routes
	authRoutes := apiV1.Group("/auth", middleware.NoCacheHeaders())
	setupAuthRoutes(authRoutes, authHandler, gate, cfg)

	// Account administration (Admin only)
	adminRoutes := apiV1.Group("/admin", middleware.NoCacheHeaders(), gate.RequireSession(), gate.AdminOnly())
	adminRoutes.Get("/accounts", accountHandler.ListAccounts)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, gate *middleware.Gate, cfg *config.Config) {
	authLimit := cfg.Security.AuthRateLimit
	strictLimit := cfg.Security.StrictRateLimit

	// Public routes
	router.Post("/register", middleware.AuthRateLimiter(authLimit), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(authLimit), handler.Login)
	router.Post("/verify-2fa", middleware.AuthRateLimiter(authLimit), handler.VerifyTwoFactor)

	// Recovery (public, strict)
	router.Post("/forgot-password", middleware.StrictRateLimiter(strictLimit), handler.ForgotPassword)
	router.Post("/reset-password", middleware.StrictRateLimiter(strictLimit), handler.ResetPassword)

	// Protected routes
	session := gate.RequireSession()
	router.Post("/logout", session, handler.Logout)
	router.Get("/me", session, handler.Me)
	router.Post("/enable-2fa", session, handler.EnableTwoFactor)
	router.Post("/disable-2fa", session, handler.DisableTwoFactor)
	router.Put("/password", session, handler.ChangePassword)
}
