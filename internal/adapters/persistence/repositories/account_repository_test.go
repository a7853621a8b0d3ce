package repositories_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/models"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/repositories"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/domain"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/testutil"

	"gorm.io/gorm"
)

func TestAccountRepositoryLookups(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewAccountRepository(db)
	ctx := context.Background()

	account := &models.Account{Username: "alice", Email: "  Alice@X.com ", PasswordHash: "h", Role: "user", IsActive: true}
	if err := repo.Create(ctx, account); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if account.Email != "alice@x.com" {
		t.Fatalf("email not normalized: %q", account.Email)
	}

	t.Run("by identifier username", func(t *testing.T) {
		got, err := repo.GetByIdentifier(ctx, "alice")
		if err != nil || got.ID != account.ID {
			t.Fatalf("got %v, %v", got, err)
		}
	})

	t.Run("by identifier mixed-case email", func(t *testing.T) {
		got, err := repo.GetByIdentifier(ctx, "ALICE@x.com")
		if err != nil || got.ID != account.ID {
			t.Fatalf("got %v, %v", got, err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, "nobody@x.com")
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			t.Fatalf("err = %v, want ErrRecordNotFound", err)
		}
	})

	t.Run("exists", func(t *testing.T) {
		ok, err := repo.ExistsByEmail(ctx, "ALICE@X.COM")
		if err != nil || !ok {
			t.Fatalf("ExistsByEmail = %v, %v", ok, err)
		}
		ok, err = repo.ExistsByUsername(ctx, "bob")
		if err != nil || ok {
			t.Fatalf("ExistsByUsername(bob) = %v, %v", ok, err)
		}
	})
}

func TestAccountRepositoryUpdateClearsSlot(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewAccountRepository(db)
	ctx := context.Background()
	account := testutil.CreateAccount(t, db, "alice", "alice@x.com", "pw12345", testutil.AccountOpts{})

	account.SetOTP("123456", domain.OTPPurposePasswordReset, "", time.Now().Add(time.Minute))
	if err := repo.Update(ctx, account); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := testutil.Reload(t, db, account.ID); got.OTPCode == nil || *got.OTPCode != "123456" {
		t.Fatalf("slot not persisted: %+v", got.OTPCode)
	}

	account.ClearOTP()
	if err := repo.Update(ctx, account); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := testutil.Reload(t, db, account.ID); got.OTPCode != nil || got.OTPExpiresAt != nil {
		t.Fatal("slot should be NULL after clear")
	}
}

func TestClearExpiredOTPs(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewAccountRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	stale := testutil.CreateAccount(t, db, "stale", "stale@x.com", "pw12345", testutil.AccountOpts{})
	stale.SetOTP("111111", domain.OTPPurposePasswordReset, "", now.Add(-time.Minute))
	if err := repo.Update(ctx, stale); err != nil {
		t.Fatalf("Update: %v", err)
	}

	fresh := testutil.CreateAccount(t, db, "fresh", "fresh@x.com", "pw12345", testutil.AccountOpts{})
	fresh.SetOTP("222222", domain.OTPPurposePasswordReset, "", now.Add(time.Minute))
	if err := repo.Update(ctx, fresh); err != nil {
		t.Fatalf("Update: %v", err)
	}

	n, err := repo.ClearExpiredOTPs(ctx, now)
	if err != nil {
		t.Fatalf("ClearExpiredOTPs: %v", err)
	}
	if n != 1 {
		t.Fatalf("cleared %d rows, want 1", n)
	}
	if testutil.Reload(t, db, stale.ID).OTPCode != nil {
		t.Fatal("stale slot should be cleared")
	}
	if testutil.Reload(t, db, fresh.ID).OTPCode == nil {
		t.Fatal("fresh slot should survive")
	}
}

func TestListAndCountByRole(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewAccountRepository(db)
	ctx := context.Background()

	testutil.CreateAccount(t, db, "a1", "a1@x.com", "pw12345", testutil.AccountOpts{Role: "admin"})
	testutil.CreateAccount(t, db, "u1", "u1@x.com", "pw12345", testutil.AccountOpts{})
	testutil.CreateAccount(t, db, "u2", "u2@x.com", "pw12345", testutil.AccountOpts{})

	accounts, total, err := repo.List(ctx, "", 1, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(accounts) != 1 || accounts[0].Username != "u1" {
		t.Fatalf("List = %d items, total %d", len(accounts), total)
	}

	users, total, err := repo.List(ctx, "user", 0, 10)
	if err != nil || total != 2 || len(users) != 2 {
		t.Fatalf("List(user) = %d items, total %d, %v", len(users), total, err)
	}

	admins, err := repo.CountByRole(ctx, "admin")
	if err != nil || admins != 1 {
		t.Fatalf("CountByRole = %d, %v", admins, err)
	}
}

func TestConsumeOTPIsSingleUse(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewAccountRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	account := testutil.CreateAccount(t, db, "alice", "alice@x.com", "pw12345", testutil.AccountOpts{})
	account.SetOTP("123456", domain.OTPPurposePasswordReset, "", now.Add(time.Minute))
	if err := repo.Update(ctx, account); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// two requests that both loaded the live slot
	first := testutil.Reload(t, db, account.ID)
	second := testutil.Reload(t, db, account.ID)

	ok, err := repo.ConsumeOTP(ctx, first, now, map[string]interface{}{"password_hash": "new-hash"})
	if err != nil || !ok {
		t.Fatalf("first ConsumeOTP = %v, %v", ok, err)
	}
	ok, err = repo.ConsumeOTP(ctx, second, now, map[string]interface{}{"password_hash": "other-hash"})
	if err != nil || ok {
		t.Fatalf("second ConsumeOTP = %v, %v, want false", ok, err)
	}

	stored := testutil.Reload(t, db, account.ID)
	if stored.OTPCode != nil || stored.PasswordHash != "new-hash" {
		t.Fatalf("stored = %v / %q", stored.OTPCode, stored.PasswordHash)
	}
}

func TestConsumeOTPRejectsStaleSlot(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewAccountRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	account := testutil.CreateAccount(t, db, "alice", "alice@x.com", "pw12345", testutil.AccountOpts{})
	account.SetOTP("123456", domain.OTPPurposeTwoFactor, "jti-1", now.Add(time.Minute))
	if err := repo.Update(ctx, account); err != nil {
		t.Fatalf("Update: %v", err)
	}
	loaded := testutil.Reload(t, db, account.ID)

	t.Run("expired", func(t *testing.T) {
		ok, err := repo.ConsumeOTP(ctx, loaded, now.Add(2*time.Minute), nil)
		if err != nil || ok {
			t.Fatalf("ConsumeOTP = %v, %v, want false", ok, err)
		}
	})

	t.Run("replaced by a newer challenge", func(t *testing.T) {
		account.SetOTP("654321", domain.OTPPurposeTwoFactor, "jti-2", now.Add(time.Minute))
		if err := repo.Update(ctx, account); err != nil {
			t.Fatalf("Update: %v", err)
		}
		ok, err := repo.ConsumeOTP(ctx, loaded, now, nil)
		if err != nil || ok {
			t.Fatalf("ConsumeOTP = %v, %v, want false", ok, err)
		}
		if testutil.Reload(t, db, account.ID).OTPCode == nil {
			t.Fatal("newer slot must survive")
		}
	})
}

func TestCreateDuplicateIsTranslated(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewAccountRepository(db)
	testutil.CreateAccount(t, db, "alice", "alice@x.com", "pw12345", testutil.AccountOpts{})

	err := repo.Create(context.Background(), &models.Account{Username: "alice", Email: "other@x.com", PasswordHash: "h", Role: "user"})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("err = %v, want ErrDuplicatedKey", err)
	}
}
