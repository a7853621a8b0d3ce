package services

import (
	"context"
	"log"
	"time"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
)

// OTPCleanupSpec is how often expired OTP slots are emptied
const OTPCleanupSpec = "@every 30m"

// CronService runs maintenance jobs
type CronService struct {
	accounts repositories.AccountRepository
	cron     *cron.Cron
	now      func() time.Time
}

// NewCronService creates a new cron service
func NewCronService(accounts repositories.AccountRepository, now func() time.Time) *CronService {
	if now == nil {
		now = time.Now
	}
	return &CronService{
		accounts: accounts,
		cron:     cron.New(),
		now:      now,
	}
}

// Start registers the jobs and starts the scheduler
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(OTPCleanupSpec, func() {
		s.ClearExpiredOTPs(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("⏰ Cron started: otp cleanup %s", OTPCleanupSpec)
	return nil
}

// Stop stops the scheduler and waits for a running job
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	log.Println("⏰ Cron stopped")
}

// ClearExpiredOTPs empties slots whose codes have lapsed. Expiry is still
// checked when a code is used, so a missed run is harmless.
func (s *CronService) ClearExpiredOTPs(ctx context.Context) int64 {
	n, err := s.accounts.ClearExpiredOTPs(ctx, s.now())
	if err != nil {
		log.Printf("❌ OTP cleanup failed: %v", err)
		return 0
	}
	if n > 0 {
		log.Printf("🧹 Cleared %d expired OTP slots", n)
	}
	return n
}
