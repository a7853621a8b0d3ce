package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// accountRepository implements AccountRepository interface
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create creates a new account
func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	account.Email = NormalizeEmail(account.Email)
	return r.db.WithContext(ctx).Create(account).Error
}

// GetByID gets an account by ID
func (r *accountRepository) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByEmail gets an account by normalized email
func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByIdentifier gets an account by username or email
func (r *accountRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.Account, error) {
	identifier = strings.TrimSpace(identifier)
	var account models.Account
	err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, NormalizeEmail(identifier)).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Update updates an account, including a cleared OTP slot
func (r *accountRepository) Update(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// List lists accounts with pagination. An empty role lists every account.
func (r *accountRepository) List(ctx context.Context, role string, offset, limit int) ([]*models.Account, int64, error) {
	var accounts []*models.Account
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Account{})
	if role != "" {
		query = query.Where("role = ?", role)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&accounts).Error; err != nil {
		return nil, 0, err
	}

	return accounts, total, nil
}

// ExistsByUsername checks if username exists
func (r *accountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Account{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// ExistsByEmail checks if email exists
func (r *accountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Account{}).Where("email = ?", NormalizeEmail(email)).Count(&count).Error
	return count > 0, err
}

// CountByRole counts accounts holding role
func (r *accountRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Account{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

// ClearExpiredOTPs empties OTP slots whose expiry is before now (cleanup job)
func (r *accountRepository) ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("otp_expires_at IS NOT NULL").
		Where("otp_expires_at < ?", now.UTC()).
		Updates(clearedSlot())
	return result.RowsAffected, result.Error
}

// ConsumeOTP clears the slot only while it still holds the code, purpose and
// challenge loaded into account and that code is live at now. extra columns
// are written in the same statement. It reports false when another request
// consumed or replaced the code first.
func (r *accountRepository) ConsumeOTP(ctx context.Context, account *models.Account, now time.Time, extra map[string]interface{}) (bool, error) {
	if account.OTPCode == nil || account.OTPPurpose == nil {
		return false, nil
	}

	updates := clearedSlot()
	for column, value := range extra {
		updates[column] = value
	}

	query := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", account.ID).
		Where("otp_code = ? AND otp_purpose = ?", *account.OTPCode, *account.OTPPurpose).
		Where("otp_expires_at >= ?", now.UTC())
	if account.OTPChallengeID != nil {
		query = query.Where("otp_challenge_id = ?", *account.OTPChallengeID)
	} else {
		query = query.Where("otp_challenge_id IS NULL")
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func clearedSlot() map[string]interface{} {
	return map[string]interface{}{
		"otp_code":         nil,
		"otp_expires_at":   nil,
		"otp_purpose":      nil,
		"otp_challenge_id": nil,
	}
}
