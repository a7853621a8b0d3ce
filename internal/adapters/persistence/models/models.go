package models

import (
	"time"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/domain"

	"gorm.io/gorm"
)

// ============================================================
// Accounts
// ============================================================

// Account represents accounts table
type Account struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	Username         string `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email            string `gorm:"uniqueIndex;size:100;not null" json:"email"`
	PasswordHash     string `gorm:"size:255;not null" json:"-"`
	Role             string `gorm:"size:30;default:'user'" json:"role"`
	TwoFactorEnabled bool   `gorm:"default:false" json:"two_factor_enabled"`
	IsActive         bool   `gorm:"default:true" json:"is_active"`

	// Single OTP slot. Issuing a new code overwrites all four columns.
	OTPCode        *string    `gorm:"column:otp_code;size:10" json:"-"`
	OTPExpiresAt   *time.Time `gorm:"column:otp_expires_at;index" json:"-"`
	OTPPurpose     *string    `gorm:"column:otp_purpose;size:20" json:"-"`
	OTPChallengeID *string    `gorm:"column:otp_challenge_id;size:36" json:"-"`

	// Opaque profile fields accepted at registration
	FirstName string `gorm:"size:100" json:"first_name"`
	LastName  string `gorm:"size:100" json:"last_name"`
	Phone     string `gorm:"size:20" json:"phone"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Account) TableName() string {
	return "accounts"
}

// AccountResponse DTO
type AccountResponse struct {
	ID               uint      `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	IsActive         bool      `json:"is_active"`
	FirstName        string    `json:"first_name,omitempty"`
	LastName         string    `json:"last_name,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func (a *Account) ToResponse() *AccountResponse {
	return &AccountResponse{
		ID:               a.ID,
		Username:         a.Username,
		Email:            a.Email,
		Role:             a.Role,
		TwoFactorEnabled: a.TwoFactorEnabled,
		IsActive:         a.IsActive,
		FirstName:        a.FirstName,
		LastName:         a.LastName,
		Phone:            a.Phone,
		CreatedAt:        a.CreatedAt,
	}
}

// SetOTP fills the slot, replacing whatever was there. Expiry is kept in UTC
// because it is compared inside the database.
func (a *Account) SetOTP(code string, purpose domain.OTPPurpose, challengeID string, expiresAt time.Time) {
	p := string(purpose)
	expiresAt = expiresAt.UTC()
	a.OTPCode = &code
	a.OTPPurpose = &p
	a.OTPExpiresAt = &expiresAt
	if challengeID != "" {
		a.OTPChallengeID = &challengeID
	} else {
		a.OTPChallengeID = nil
	}
}

// ClearOTP empties the slot
func (a *Account) ClearOTP() {
	a.OTPCode = nil
	a.OTPPurpose = nil
	a.OTPExpiresAt = nil
	a.OTPChallengeID = nil
}

// HasOTPFor reports whether the slot holds a live code for purpose at now
func (a *Account) HasOTPFor(purpose domain.OTPPurpose, now time.Time) bool {
	if a.OTPCode == nil || a.OTPExpiresAt == nil || a.OTPPurpose == nil {
		return false
	}
	if *a.OTPPurpose != string(purpose) {
		return false
	}
	return !now.After(*a.OTPExpiresAt)
}

// ChallengeID returns the challenge the slot is bound to, or ""
func (a *Account) ChallengeID() string {
	if a.OTPChallengeID == nil {
		return ""
	}
	return *a.OTPChallengeID
}

// AutoMigrate creates or updates the tables this service owns
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Account{},
	)
}
