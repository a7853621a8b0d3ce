package services

import (
	"context"
	"errors"
	"log"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/models"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/repositories"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/domain"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/jwt"

	"gorm.io/gorm"
)

// TwoFactorService issues and settles emailed second-factor challenges.
//
// A login with two-factor enabled moves the account to "awaiting challenge":
// a code is stored in its OTP slot bound to the challenge token's ID, and the
// token is handed back instead of a session. Verify completes the login.
// A wrong or expired code leaves the challenge pending.
type TwoFactorService struct {
	accounts repositories.AccountRepository
	tokens   *jwt.Manager
	otp      *OTPService
	notifier *NotificationService
	limiter  *AttemptLimiter
}

// NewTwoFactorService creates a new two-factor service. limiter may be nil.
func NewTwoFactorService(
	accounts repositories.AccountRepository,
	tokens *jwt.Manager,
	otp *OTPService,
	notifier *NotificationService,
	limiter *AttemptLimiter,
) *TwoFactorService {
	return &TwoFactorService{
		accounts: accounts,
		tokens:   tokens,
		otp:      otp,
		notifier: notifier,
		limiter:  limiter,
	}
}

// VerifyTwoFactorInput represents the second login step
type VerifyTwoFactorInput struct {
	ChallengeToken string `json:"challenge_token" validate:"required"`
	OTP            string `json:"otp" validate:"required"`
}

// BeginChallenge stores a fresh code for account, emails it and returns the
// challenge token. Delivery failures do not affect the result.
func (s *TwoFactorService) BeginChallenge(ctx context.Context, account *models.Account) (string, error) {
	token, claims, err := s.tokens.IssueChallenge(account.ID)
	if err != nil {
		return "", err
	}

	code, err := s.otp.Issue(account, domain.OTPPurposeTwoFactor, claims.ID)
	if err != nil {
		return "", err
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return "", err
	}

	s.notifier.SendOTP(ctx, account.Email, code, domain.OTPPurposeTwoFactor, s.otp.Lifetime())
	return token, nil
}

// Verify settles a challenge. Every failure returns ErrInvalidCode.
func (s *TwoFactorService) Verify(ctx context.Context, challengeToken, code string) (*AuthResult, error) {
	claims, err := s.tokens.ValidateChallenge(challengeToken)
	if err != nil {
		return nil, domain.ErrInvalidCode
	}

	key := OTPKey(claims.AccountID, domain.OTPPurposeTwoFactor)
	if err := s.limiter.Check(ctx, key); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCode
		}
		return nil, err
	}
	if !account.IsActive || !account.TwoFactorEnabled {
		return nil, domain.ErrInvalidCode
	}

	if !s.otp.Check(account, domain.OTPPurposeTwoFactor, claims.ID, code) {
		s.limiter.Fail(ctx, key)
		return nil, domain.ErrInvalidCode
	}

	// single use
	consumed, err := s.otp.Consume(ctx, s.accounts, account, nil)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, domain.ErrInvalidCode
	}
	s.limiter.Reset(ctx, key)

	log.Printf("✅ Two-factor verified for: %s", account.Username)
	return issueSession(s.tokens, account)
}

// Enable turns two-factor on. Enabling twice is harmless.
func (s *TwoFactorService) Enable(ctx context.Context, accountID uint) (*models.Account, error) {
	return s.setEnabled(ctx, accountID, true)
}

// Disable turns two-factor off and drops any pending challenge code
func (s *TwoFactorService) Disable(ctx context.Context, accountID uint) (*models.Account, error) {
	return s.setEnabled(ctx, accountID, false)
}

func (s *TwoFactorService) setEnabled(ctx context.Context, accountID uint, enabled bool) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}

	pending := account.OTPPurpose != nil && *account.OTPPurpose == string(domain.OTPPurposeTwoFactor)
	if account.TwoFactorEnabled == enabled && !(pending && !enabled) {
		return account, nil
	}

	account.TwoFactorEnabled = enabled
	if !enabled && pending {
		account.ClearOTP()
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}

	if enabled {
		log.Printf("🔐 Two-factor enabled for: %s", account.Username)
	} else {
		log.Printf("🔓 Two-factor disabled for: %s", account.Username)
	}
	return account, nil
}
