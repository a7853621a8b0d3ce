// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/models"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/password"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database that lives as long as t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	password.SetCost(4)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("failed automigrating: %v", err)
	}
	return db
}

// AccountOpts tweaks a seeded account
type AccountOpts struct {
	Role      string
	TwoFactor bool
	Inactive  bool
}

// CreateAccount inserts an account whose password is plain.
func CreateAccount(t *testing.T, db *gorm.DB, username, email, plain string, opts AccountOpts) *models.Account {
	t.Helper()

	hash, err := password.Hash(plain)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}
	role := opts.Role
	if role == "" {
		role = "user"
	}
	account := &models.Account{
		Username:         username,
		Email:            email,
		PasswordHash:     hash,
		Role:             role,
		TwoFactorEnabled: opts.TwoFactor,
		IsActive:         true,
	}
	if err := db.WithContext(context.Background()).Create(account).Error; err != nil {
		t.Fatalf("failed creating account: %v", err)
	}
	// is_active has a column default, so false must be written explicitly
	if opts.Inactive {
		if err := db.Model(account).Update("is_active", false).Error; err != nil {
			t.Fatalf("failed deactivating account: %v", err)
		}
		account.IsActive = false
	}
	return account
}

// Reload reads the account back from db
func Reload(t *testing.T, db *gorm.DB, id uint) *models.Account {
	t.Helper()
	var account models.Account
	if err := db.First(&account, id).Error; err != nil {
		t.Fatalf("failed reloading account %d: %v", id, err)
	}
	return &account
}
