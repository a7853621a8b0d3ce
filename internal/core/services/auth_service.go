package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/models"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/repositories"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/domain"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/jwt"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/password"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/validate"

	"gorm.io/gorm"
)

// AuthService handles authentication business logic
type AuthService struct {
	accounts  repositories.AccountRepository
	tokens    *jwt.Manager
	twoFactor *TwoFactorService
	limiter   *AttemptLimiter
	revoker   *SessionRevoker
}

// NewAuthService creates a new auth service. limiter and revoker may be nil.
func NewAuthService(
	accounts repositories.AccountRepository,
	tokens *jwt.Manager,
	twoFactor *TwoFactorService,
	limiter *AttemptLimiter,
	revoker *SessionRevoker,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		tokens:    tokens,
		twoFactor: twoFactor,
		limiter:   limiter,
		revoker:   revoker,
	}
}

// RegisterInput represents registration input
type RegisterInput struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email,max=100"`
	Password  string `json:"password" validate:"required,min=6,maxbytes=72"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Phone     string `json:"phone" validate:"max=20"`
}

// LoginInput represents login input. Identifier is a username or an email.
type LoginInput struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,maxbytes=72"`
}

// AuthResult is a completed authentication
type AuthResult struct {
	Account     *models.AccountResponse `json:"user"`
	AccessToken string                  `json:"access_token"`
	TokenType   string                  `json:"token_type"`
	ExpiresIn   int64                   `json:"expires_in"`
}

// LoginResult is either a session or a pending two-factor challenge
type LoginResult struct {
	ChallengeRequired bool        `json:"challenge_required"`
	ChallengeToken    string      `json:"challenge_token,omitempty"`
	Session           *AuthResult `json:"session,omitempty"`
}

// Register registers a new account and signs it in
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*AuthResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = repositories.NormalizeEmail(input.Email)

	// 1. Validate input
	if fields := validate.Struct(input); fields != nil {
		return nil, domain.NewValidationError(fields)
	}

	// 2. Check if username already exists
	exists, err := s.accounts.ExistsByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.NewConflictError("username")
	}

	// 3. Check if email already exists
	exists, err = s.accounts.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.NewConflictError("email")
	}

	// 4. Hash password
	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	// 5. Create account
	account := &models.Account{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashed,
		Role:         string(domain.RoleUser),
		IsActive:     true,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        strings.TrimSpace(input.Phone),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.duplicateConflict(ctx, input.Username)
		}
		return nil, err
	}

	log.Printf("✅ Account registered: %s", account.Username)

	// 6. Issue session
	return s.issueSession(account)
}

// duplicateConflict names the field a concurrent registration took first
func (s *AuthService) duplicateConflict(ctx context.Context, username string) error {
	if taken, err := s.accounts.ExistsByUsername(ctx, username); err == nil && taken {
		return domain.NewConflictError("username")
	}
	return domain.NewConflictError("email")
}

// Login authenticates an account. Every credential failure returns the same
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*LoginResult, error) {
	if fields := validate.Struct(input); fields != nil {
		return nil, domain.NewValidationError(fields)
	}

	key := LoginKey(input.Identifier)
	if err := s.limiter.Check(ctx, key); err != nil {
		return nil, err
	}

	// 1. Find account by username or email
	account, err := s.accounts.GetByIdentifier(ctx, input.Identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			password.VerifyMissing(input.Password)
			s.limiter.Fail(ctx, key)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// 2. Verify password, then activity, so an inactive account looks like any other failure
	if !password.Verify(input.Password, account.PasswordHash) || !account.IsActive {
		s.limiter.Fail(ctx, key)
		return nil, domain.ErrInvalidCredentials
	}
	s.limiter.Reset(ctx, key)

	// 3. Second factor
	if account.TwoFactorEnabled {
		challenge, err := s.twoFactor.BeginChallenge(ctx, account)
		if err != nil {
			return nil, err
		}
		log.Printf("🔐 Two-factor challenge issued for: %s", account.Username)
		return &LoginResult{ChallengeRequired: true, ChallengeToken: challenge}, nil
	}

	session, err := s.issueSession(account)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ User logged in: %s", account.Username)
	return &LoginResult{Session: session}, nil
}

// ChangePassword replaces the password after re-checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, accountID uint, input *ChangePasswordInput) error {
	if fields := validate.Struct(input); fields != nil {
		return domain.NewValidationError(fields)
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUnauthenticated
		}
		return err
	}

	if !password.Verify(input.CurrentPassword, account.PasswordHash) {
		return domain.ErrInvalidCredentials
	}

	hashed, err := password.Hash(input.NewPassword)
	if err != nil {
		return err
	}
	account.PasswordHash = hashed

	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	log.Printf("✅ Password changed for: %s", account.Username)
	return nil
}

// GetAccount gets an account by ID
func (s *AuthService) GetAccount(ctx context.Context, id uint) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	return account, nil
}

// Logout revokes the session until it would have expired anyway
func (s *AuthService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if claims == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, s.tokens.RemainingTTL(claims)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	log.Printf("✅ User logged out: %s", claims.Username)
	return nil
}

// ListAccounts lists accounts for administrators, optionally only those
// holding role
func (s *AuthService) ListAccounts(ctx context.Context, role string, offset, limit int) ([]*models.AccountResponse, int64, error) {
	if role != "" && !domain.Role(role).Valid() {
		return nil, 0, domain.NewValidationError(map[string]string{"role": "is not a known role"})
	}

	accounts, total, err := s.accounts.List(ctx, role, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*models.AccountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = a.ToResponse()
	}
	return out, total, nil
}

// issueSession signs a session token for account
func (s *AuthService) issueSession(account *models.Account) (*AuthResult, error) {
	return issueSession(s.tokens, account)
}

func issueSession(tokens *jwt.Manager, account *models.Account) (*AuthResult, error) {
	token, _, err := tokens.IssueSession(account.ID, account.Username, account.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Account:     account.ToResponse(),
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(tokens.SessionTTL().Seconds()),
	}, nil
}

func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
