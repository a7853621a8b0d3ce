package services

import (
	"context"
	"errors"
	"log"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/repositories"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/domain"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/password"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/validate"

	"gorm.io/gorm"
)

// Recovery acknowledgements
const (
	MsgRecoverySent  = "If an account exists for that email, a reset code has been sent"
	MsgPasswordReset = "Password has been reset"
)

// RecoveryService handles forgotten passwords
type RecoveryService struct {
	accounts      repositories.AccountRepository
	otp           *OTPService
	notifier      *NotificationService
	limiter       *AttemptLimiter
	revealUnknown bool
}

// NewRecoveryService creates a new recovery service. With revealUnknown an
// unknown email gets ErrAccountNotFound instead of the generic acknowledgement.
func NewRecoveryService(
	accounts repositories.AccountRepository,
	otp *OTPService,
	notifier *NotificationService,
	limiter *AttemptLimiter,
	revealUnknown bool,
) *RecoveryService {
	return &RecoveryService{
		accounts:      accounts,
		otp:           otp,
		notifier:      notifier,
		limiter:       limiter,
		revealUnknown: revealUnknown,
	}
}

// ForgotPasswordInput represents forgot password input
type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordInput represents reset password input
type ResetPasswordInput struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,maxbytes=72"`
}

// ForgotPassword emails a reset code when the account exists. The answer
// never depends on whether the email went out.
func (s *RecoveryService) ForgotPassword(ctx context.Context, input *ForgotPasswordInput) (*domain.Ack, error) {
	input.Email = repositories.NormalizeEmail(input.Email)
	if fields := validate.Struct(input); fields != nil {
		return nil, domain.NewValidationError(fields)
	}

	account, err := s.accounts.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if s.revealUnknown {
				return nil, domain.ErrAccountNotFound
			}
			return &domain.Ack{Message: MsgRecoverySent}, nil
		}
		return nil, err
	}

	code, err := s.otp.Issue(account, domain.OTPPurposePasswordReset, "")
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}

	log.Printf("🔑 Password reset requested for: %s", account.Username)
	s.notifier.SendOTP(ctx, account.Email, code, domain.OTPPurposePasswordReset, s.otp.Lifetime())

	return &domain.Ack{Message: MsgRecoverySent}, nil
}

// ResetPassword sets a new password when the emailed code matches. Every
// code or account failure returns ErrInvalidOTP and leaves the slot as is.
func (s *RecoveryService) ResetPassword(ctx context.Context, input *ResetPasswordInput) (*domain.Ack, error) {
	input.Email = repositories.NormalizeEmail(input.Email)
	if fields := validate.Struct(input); fields != nil {
		return nil, domain.NewValidationError(fields)
	}

	account, err := s.accounts.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidOTP
		}
		return nil, err
	}

	key := OTPKey(account.ID, domain.OTPPurposePasswordReset)
	if err := s.limiter.Check(ctx, key); err != nil {
		return nil, err
	}

	if !s.otp.Check(account, domain.OTPPurposePasswordReset, "", input.OTP) {
		s.limiter.Fail(ctx, key)
		return nil, domain.ErrInvalidOTP
	}

	hashed, err := password.Hash(input.NewPassword)
	if err != nil {
		return nil, err
	}

	// the code and the new hash are written together, once
	consumed, err := s.otp.Consume(ctx, s.accounts, account, map[string]interface{}{"password_hash": hashed})
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, domain.ErrInvalidOTP
	}
	account.PasswordHash = hashed
	s.limiter.Reset(ctx, key)

	log.Printf("✅ Password reset for: %s", account.Username)
	return &domain.Ack{Message: MsgPasswordReset}, nil
}
