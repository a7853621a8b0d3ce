package handlers

import (
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/services"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/pagination"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AccountHandler handles account administration endpoints
type AccountHandler struct {
	authService *services.AuthService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(authService *services.AuthService) *AccountHandler {
	return &AccountHandler{
		authService: authService,
	}
}

// ListAccounts handles listing all accounts (Admin only)
// @Summary List all accounts
// @Description Get a paginated list of all accounts (Admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param role query string false "Only accounts holding this role"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/accounts [get]
func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	accounts, total, err := h.authService.ListAccounts(c.UserContext(), c.Query("role"), params.Offset, params.Limit)
	if err != nil {
		return writeError(c, err, "Failed to list accounts")
	}

	return response.Success(c, "Accounts retrieved successfully", pagination.NewResponse(accounts, params, total))
}
