package repositories

import (
	"context"
	"time"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/models"
)

// AccountRepository defines account repository interface.
// Lookups return gorm.ErrRecordNotFound when nothing matches.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uint) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByIdentifier(ctx context.Context, identifier string) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	List(ctx context.Context, role string, offset, limit int) ([]*models.Account, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountByRole(ctx context.Context, role string) (int64, error)
	ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
	ConsumeOTP(ctx context.Context, account *models.Account, now time.Time, extra map[string]interface{}) (bool, error)
}
