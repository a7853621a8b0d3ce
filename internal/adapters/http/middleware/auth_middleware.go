package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/models"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/repositories"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/domain"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/jwt"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AccessTokenCookie is the cookie the session token is mirrored into
const AccessTokenCookie = "access_token"

const (
	localsAccount = "account"
	localsClaims  = "claims"
)

// RevocationChecker reports logged-out session IDs
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) bool
}

// Gate guards routes behind a session and, optionally, a role
type Gate struct {
	tokens   *jwt.Manager
	accounts repositories.AccountRepository
	revoker  RevocationChecker
}

// NewGate creates the authorization gate. revoker may be nil.
func NewGate(tokens *jwt.Manager, accounts repositories.AccountRepository, revoker RevocationChecker) *Gate {
	return &Gate{tokens: tokens, accounts: accounts, revoker: revoker}
}

// RequireSession admits only requests carrying a live session token for an
// active account. Challenge tokens are refused.
func (g *Gate) RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. Authorization header first, then cookie
		accessToken := bearerToken(c)
		if accessToken == "" {
			accessToken = c.Cookies(AccessTokenCookie)
		}
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		// 2. Validate token; only the session kind passes
		claims, err := g.tokens.ValidateSession(accessToken)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		// 3. Logged out?
		if g.revoker != nil && g.revoker.IsRevoked(c.UserContext(), claims.ID) {
			return response.Unauthorized(c, "Invalid access token")
		}

		// 4. Account must still exist and be active
		account, err := g.accounts.GetByID(c.UserContext(), claims.AccountID)
		if err != nil || !account.IsActive {
			return response.Unauthorized(c, "Invalid access token")
		}

		// 5. Set account info in context
		c.Locals(localsAccount, account)
		c.Locals(localsClaims, claims)

		return c.Next()
	}
}

// RequireRole admits accounts holding one of roles. It must run after
// RequireSession; the role comes from the stored account, not the token.
func (g *Gate) RequireRole(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		account := GetCurrentAccount(c)
		if account == nil {
			return response.Unauthorized(c, "Access token required")
		}

		for _, allowed := range roles {
			if account.Role == string(allowed) {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// AdminOnly middleware allows only the admin role
func (g *Gate) AdminOnly() fiber.Handler {
	return g.RequireRole(domain.RoleAdmin)
}

// GetCurrentAccount returns the account loaded by RequireSession
func GetCurrentAccount(c *fiber.Ctx) *models.Account {
	account, _ := c.Locals(localsAccount).(*models.Account)
	return account
}

// GetClaims returns the session claims loaded by RequireSession
func GetClaims(c *fiber.Ctx) *jwt.Claims {
	claims, _ := c.Locals(localsClaims).(*jwt.Claims)
	return claims
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
