package config

import (
	"context"
	"log"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/models"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/repositories"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/domain"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/password"
)

// Seeder handles database seeding
type Seeder struct {
	accounts repositories.AccountRepository
	cfg      SeedConfig
}

// NewSeeder creates a new seeder instance
func NewSeeder(accounts repositories.AccountRepository, cfg SeedConfig) *Seeder {
	return &Seeder{accounts: accounts, cfg: cfg}
}

// Run executes all seeders
func (s *Seeder) Run(ctx context.Context) error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedAdmin(ctx); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedAdmin creates the first admin when none exists and a password is configured
func (s *Seeder) seedAdmin(ctx context.Context) error {
	if s.cfg.AdminPassword == "" {
		return nil
	}

	// Check if admin already exists
	count, err := s.accounts.CountByRole(ctx, string(domain.RoleAdmin))
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	taken, err := s.accounts.ExistsByUsername(ctx, s.cfg.AdminUsername)
	if err != nil {
		return err
	}
	if taken {
		log.Printf("⚠️ Skipping admin seed: username %q already in use", s.cfg.AdminUsername)
		return nil
	}

	hashed, err := password.Hash(s.cfg.AdminPassword)
	if err != nil {
		return err
	}

	admin := &models.Account{
		Username:     s.cfg.AdminUsername,
		Email:        s.cfg.AdminEmail,
		PasswordHash: hashed,
		Role:         string(domain.RoleAdmin),
		IsActive:     true,
	}
	if err := s.accounts.Create(ctx, admin); err != nil {
		return err
	}

	log.Printf("✅ Admin account created: %s", admin.Username)
	return nil
}
