package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/models"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/repositories"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/domain"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/password"
)

// ============================================================
// OTP Service - codes held in the account's single OTP slot
// ============================================================

// OTPService issues and checks one-time codes
type OTPService struct {
	lifetime time.Duration
	now      func() time.Time
}

// NewOTPService creates a new OTP service. A nil clock means time.Now.
func NewOTPService(lifetime time.Duration, now func() time.Time) *OTPService {
	if lifetime <= 0 {
		lifetime = domain.OTPLifetime
	}
	if now == nil {
		now = time.Now
	}
	return &OTPService{lifetime: lifetime, now: now}
}

// Lifetime returns how long an issued code stays valid
func (s *OTPService) Lifetime() time.Duration {
	return s.lifetime
}

// Issue generates a fresh code and writes it into the account's slot,
// overwriting whatever was there. The caller persists the account.
func (s *OTPService) Issue(account *models.Account, purpose domain.OTPPurpose, challengeID string) (string, error) {
	code, err := generateSecureOTP(domain.OTPDigits)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	account.SetOTP(code, purpose, challengeID, s.now().Add(s.lifetime))
	return code, nil
}

// Check reports whether code is live in the slot for purpose. challengeID
// must match the slot's binding; password reset codes carry none.
func (s *OTPService) Check(account *models.Account, purpose domain.OTPPurpose, challengeID, code string) bool {
	if !account.HasOTPFor(purpose, s.now()) {
		return false
	}
	if account.ChallengeID() != challengeID {
		return false
	}
	return password.EqualCode(*account.OTPCode, strings.TrimSpace(code))
}

// Consume clears the slot that Check accepted and writes extra columns in the
// same conditional update. It returns false when a concurrent request
// consumed or replaced the code first.
func (s *OTPService) Consume(ctx context.Context, accounts repositories.AccountRepository, account *models.Account, extra map[string]interface{}) (bool, error) {
	ok, err := accounts.ConsumeOTP(ctx, account, s.now(), extra)
	if err != nil || !ok {
		return false, err
	}
	account.ClearOTP()
	return true, nil
}

// generateSecureOTP generates a cryptographically secure random OTP
func generateSecureOTP(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
