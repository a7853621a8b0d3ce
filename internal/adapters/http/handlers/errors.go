package handlers

import (
	"errors"
	"log"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/domain"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// writeError maps a service error onto a response by its kind. fallback is
// the message for errors without a kind.
func writeError(c *fiber.Ctx, err error, fallback string) error {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return response.ValidationFailed(c, "Validation failed", domain.FieldsOf(err))
	case domain.KindConflict:
		return response.Conflict(c, "Username or email already exists", domain.FieldsOf(err))
	case domain.KindAuthentication:
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return response.Unauthorized(c, "Invalid credentials")
		}
		return response.Unauthorized(c, "Authentication required")
	case domain.KindAuthorization:
		return response.Forbidden(c, "You don't have permission to access this resource")
	case domain.KindRecovery:
		return response.BadRequest(c, err.Error())
	case domain.KindNotFound:
		return response.NotFound(c, "User not found")
	case domain.KindRateLimited:
		return response.TooManyRequests(c, "Too many attempts, try again later")
	}

	log.Printf("❌ %s: %v", fallback, err)
	return response.InternalServerError(c, fallback)
}
