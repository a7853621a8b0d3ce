package handlers

import (
	"strings"
	"time"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/http/middleware"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/config"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/services"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService      *services.AuthService
	twoFactorService *services.TwoFactorService
	recoveryService  *services.RecoveryService
	cfg              *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	authService *services.AuthService,
	twoFactorService *services.TwoFactorService,
	recoveryService *services.RecoveryService,
	cfg *config.Config,
) *AuthHandler {
	return &AuthHandler{
		authService:      authService,
		twoFactorService: twoFactorService,
		recoveryService:  recoveryService,
		cfg:              cfg,
	}
}

// LoginRequest represents login request body. Identifier may be a username
// or an email; the username and email fields are accepted for older clients.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

func (r *LoginRequest) identifier() string {
	for _, v := range []string{r.Identifier, r.Username, r.Email} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Register handles account registration
// @Summary Register new account
// @Description Create an account with role "user" and sign it in
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.RegisterInput true "Registration data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.authService.Register(c.UserContext(), &req)
	if err != nil {
		return writeError(c, err, "Failed to register user")
	}

	h.setSessionCookie(c, result.AccessToken)
	return response.Created(c, "User registered successfully", result)
}

// Login handles account login
// @Summary Login
// @Description Authenticate with username or email. Accounts with two-factor
// @Description enabled receive a challenge token and an emailed code instead of a session.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.authService.Login(c.UserContext(), &services.LoginInput{
		Identifier: req.identifier(),
		Password:   req.Password,
	})
	if err != nil {
		return writeError(c, err, "Failed to login")
	}

	if result.ChallengeRequired {
		return response.Success(c, "Verification code sent to your email", fiber.Map{
			"challenge_required": true,
			"challenge_token":    result.ChallengeToken,
		})
	}

	h.setSessionCookie(c, result.Session.AccessToken)
	return response.Success(c, "Login successful", result.Session)
}

// VerifyTwoFactor completes a two-factor login
// @Summary Verify two-factor code
// @Description Exchange a challenge token and the emailed code for a session
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.VerifyTwoFactorInput true "Challenge token and code"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /auth/verify-2fa [post]
func (h *AuthHandler) VerifyTwoFactor(c *fiber.Ctx) error {
	var req services.VerifyTwoFactorInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.twoFactorService.Verify(c.UserContext(), req.ChallengeToken, req.OTP)
	if err != nil {
		return writeError(c, err, "Failed to verify code")
	}

	h.setSessionCookie(c, result.AccessToken)
	return response.Success(c, "Login successful", result)
}

// Logout handles account logout
// @Summary Logout
// @Description Revoke the current session token and clear the cookie
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.authService.Logout(c.UserContext(), middleware.GetClaims(c)); err != nil {
		return writeError(c, err, "Failed to logout")
	}

	h.clearSessionCookie(c)
	return response.Success(c, "Logged out successfully", nil)
}

// Me returns the current account
// @Summary Get current account
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	account := middleware.GetCurrentAccount(c)
	if account == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	return response.Success(c, "User retrieved successfully", fiber.Map{
		"user": account.ToResponse(),
	})
}

// EnableTwoFactor turns on emailed login codes for the current account
// @Summary Enable two-factor authentication
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/enable-2fa [post]
func (h *AuthHandler) EnableTwoFactor(c *fiber.Ctx) error {
	account := middleware.GetCurrentAccount(c)
	if account == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	updated, err := h.twoFactorService.Enable(c.UserContext(), account.ID)
	if err != nil {
		return writeError(c, err, "Failed to enable two-factor authentication")
	}

	return response.Success(c, "Two-factor authentication enabled", fiber.Map{
		"user": updated.ToResponse(),
	})
}

// DisableTwoFactor turns off emailed login codes for the current account
// @Summary Disable two-factor authentication
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/disable-2fa [post]
func (h *AuthHandler) DisableTwoFactor(c *fiber.Ctx) error {
	account := middleware.GetCurrentAccount(c)
	if account == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	updated, err := h.twoFactorService.Disable(c.UserContext(), account.ID)
	if err != nil {
		return writeError(c, err, "Failed to disable two-factor authentication")
	}

	return response.Success(c, "Two-factor authentication disabled", fiber.Map{
		"user": updated.ToResponse(),
	})
}

// ChangePassword changes the current account's password
// @Summary Change password
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ChangePasswordInput true "Current and new password"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/password [put]
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	account := middleware.GetCurrentAccount(c)
	if account == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req services.ChangePasswordInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.authService.ChangePassword(c.UserContext(), account.ID, &req); err != nil {
		return writeError(c, err, "Failed to change password")
	}

	return response.Success(c, "Password changed successfully", nil)
}

// ForgotPassword emails a password reset code
// @Summary Request password reset code
// @Description Always answers with the same acknowledgement, whether or not the email is known or the mail went out
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.ForgotPasswordInput true "Account email"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req services.ForgotPasswordInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	ack, err := h.recoveryService.ForgotPassword(c.UserContext(), &req)
	if err != nil {
		return writeError(c, err, "Failed to process request")
	}

	return response.Success(c, ack.Message, nil)
}

// ResetPassword sets a new password using an emailed code
// @Summary Reset password
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.ResetPasswordInput true "Email, code and new password"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req services.ResetPasswordInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	ack, err := h.recoveryService.ResetPassword(c.UserContext(), &req)
	if err != nil {
		return writeError(c, err, "Failed to reset password")
	}

	return response.Success(c, ack.Message, nil)
}

// setSessionCookie mirrors the session token into an HTTP-only cookie
func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, accessToken string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(h.cfg.AccessTokenTTL().Seconds()),
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})
}

// clearSessionCookie expires the session cookie
func (h *AuthHandler) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Now().Add(-1 * time.Hour),
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})
}
