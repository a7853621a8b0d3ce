package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/repositories"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/domain"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/services"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/password"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/testutil"
)

// 40 runes, 80 bytes
var longMultibyte = strings.Repeat("é", 40)

func TestRegister(t *testing.T) {
	e := newEnv(t, envOpts{})
	ctx := context.Background()

	res, err := e.auth.Register(ctx, &services.RegisterInput{
		Username: "alice",
		Email:    "Alice@X.com",
		Password: "pw12345",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Account.Role != "user" {
		t.Fatalf("role = %q, want user", res.Account.Role)
	}
	if res.Account.Email != "alice@x.com" {
		t.Fatalf("email = %q, want normalized", res.Account.Email)
	}
	claims, err := e.tokens.ValidateSession(res.AccessToken)
	if err != nil {
		t.Fatalf("session token invalid: %v", err)
	}
	if claims.AccountID != res.Account.ID || claims.Role != "user" {
		t.Fatalf("claims = %+v", claims)
	}

	stored := testutil.Reload(t, e.db, res.Account.ID)
	if stored.PasswordHash == "pw12345" || !password.Verify("pw12345", stored.PasswordHash) {
		t.Fatal("password should be stored hashed")
	}
}

func TestRegisterRejects(t *testing.T) {
	e := newEnv(t, envOpts{})
	ctx := context.Background()
	testutil.CreateAccount(t, e.db, "alice", "alice@x.com", "pw12345", testutil.AccountOpts{})

	tests := []struct {
		name  string
		in    services.RegisterInput
		kind  domain.Kind
		field string
	}{
		{"duplicate username", services.RegisterInput{Username: "alice", Email: "other@x.com", Password: "pw12345"}, domain.KindConflict, "username"},
		{"duplicate email any case", services.RegisterInput{Username: "alice2", Email: "ALICE@x.com", Password: "pw12345"}, domain.KindConflict, "email"},
		{"short username", services.RegisterInput{Username: "al", Email: "al@x.com", Password: "pw12345"}, domain.KindValidation, "username"},
		{"bad email", services.RegisterInput{Username: "bob", Email: "bob-at-x", Password: "pw12345"}, domain.KindValidation, "email"},
		{"short password", services.RegisterInput{Username: "bob", Email: "bob@x.com", Password: "pw1"}, domain.KindValidation, "password"},
		{"password over 72 bytes", services.RegisterInput{Username: "bob", Email: "bob@x.com", Password: longMultibyte}, domain.KindValidation, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			_, err := e.auth.Register(ctx, &in)
			assertKind(t, err, tt.kind)
			if _, ok := domain.FieldsOf(err)[tt.field]; !ok {
				t.Fatalf("fields = %v, want %q", domain.FieldsOf(err), tt.field)
			}
		})
	}
}

func TestLoginWithoutTwoFactor(t *testing.T) {
	e := newEnv(t, envOpts{})
	ctx := context.Background()
	testutil.CreateAccount(t, e.db, "alice", "alice@x.com", "pw12345", testutil.AccountOpts{})

	for _, identifier := range []string{"alice", "ALICE@x.com"} {
		res, err := e.auth.Login(ctx, &services.LoginInput{Identifier: identifier, Password: "pw12345"})
		if err != nil {
			t.Fatalf("Login(%s): %v", identifier, err)
		}
		if res.ChallengeRequired || res.ChallengeToken != "" || res.Session == nil {
			t.Fatalf("Login(%s) = %+v, want session only", identifier, res)
		}
		if _, err := e.tokens.ValidateSession(res.Session.AccessToken); err != nil {
			t.Fatalf("session invalid: %v", err)
		}
	}
	if e.mail.Calls() != 0 {
		t.Fatal("no mail should be sent without two-factor")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	e := newEnv(t, envOpts{})
	ctx := context.Background()
	testutil.CreateAccount(t, e.db, "alice", "alice@x.com", "pw12345", testutil.AccountOpts{})
	testutil.CreateAccount(t, e.db, "dormant", "dormant@x.com", "pw12345", testutil.AccountOpts{Inactive: true})

	tests := []struct {
		name string
		in   services.LoginInput
	}{
		{"wrong password", services.LoginInput{Identifier: "alice", Password: "wrong-pw"}},
		{"unknown user", services.LoginInput{Identifier: "mallory", Password: "pw12345"}},
		{"inactive account", services.LoginInput{Identifier: "dormant", Password: "pw12345"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			res, err := e.auth.Login(ctx, &in)
			if res != nil {
				t.Fatalf("unexpected result %+v", res)
			}
			if !errors.Is(err, domain.ErrInvalidCredentials) {
				t.Fatalf("err = %v, want ErrInvalidCredentials", err)
			}
			if err.Error() != "invalid credentials" {
				t.Fatalf("message = %q", err.Error())
			}
		})
	}
}

func TestLoginLimiter(t *testing.T) {
	_, rdb := newTestRedis(t)
	e := newEnv(t, envOpts{redis: rdb})
	ctx := context.Background()
	testutil.CreateAccount(t, e.db, "alice", "alice@x.com", "pw12345", testutil.AccountOpts{})

	// limit is 3 per window in newEnv
	for i := 0; i < 3; i++ {
		_, err := e.auth.Login(ctx, &services.LoginInput{Identifier: "alice", Password: "nope"})
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: err = %v", i+1, err)
		}
	}

	_, err := e.auth.Login(ctx, &services.LoginInput{Identifier: "alice", Password: "pw12345"})
	if !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("err = %v, want ErrTooManyAttempts", err)
	}
	assertKind(t, err, domain.KindRateLimited)

	// other identifiers are unaffected
	testutil.CreateAccount(t, e.db, "bob", "bob@x.com", "pw12345", testutil.AccountOpts{})
	if _, err := e.auth.Login(ctx, &services.LoginInput{Identifier: "bob", Password: "pw12345"}); err != nil {
		t.Fatalf("bob: %v", err)
	}
}

func TestLoginSuccessResetsLimiter(t *testing.T) {
	_, rdb := newTestRedis(t)
	e := newEnv(t, envOpts{redis: rdb})
	ctx := context.Background()
	testutil.CreateAccount(t, e.db, "alice", "alice@x.com", "pw12345", testutil.AccountOpts{})

	for round := 0; round < 3; round++ {
		for i := 0; i < 2; i++ {
			_, _ = e.auth.Login(ctx, &services.LoginInput{Identifier: "alice", Password: "nope"})
		}
		if _, err := e.auth.Login(ctx, &services.LoginInput{Identifier: "alice", Password: "pw12345"}); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
	}
}

func TestChangePassword(t *testing.T) {
	e := newEnv(t, envOpts{})
	ctx := context.Background()
	account := testutil.CreateAccount(t, e.db, "alice", "alice@x.com", "pw12345", testutil.AccountOpts{})
	before := account.PasswordHash

	err := e.auth.ChangePassword(ctx, account.ID, &services.ChangePasswordInput{CurrentPassword: "wrong", NewPassword: "newpw123"})
	assertKind(t, err, domain.KindAuthentication)
	if testutil.Reload(t, e.db, account.ID).PasswordHash != before {
		t.Fatal("hash changed after a failed attempt")
	}

	err = e.auth.ChangePassword(ctx, account.ID, &services.ChangePasswordInput{CurrentPassword: "pw12345", NewPassword: "123"})
	assertKind(t, err, domain.KindValidation)

	err = e.auth.ChangePassword(ctx, account.ID, &services.ChangePasswordInput{CurrentPassword: "pw12345", NewPassword: longMultibyte})
	assertKind(t, err, domain.KindValidation)
	if got := domain.FieldsOf(err)["new_password"]; got != "must be at most 72 bytes" {
		t.Fatalf("new_password = %q", got)
	}

	if err := e.auth.ChangePassword(ctx, account.ID, &services.ChangePasswordInput{CurrentPassword: "pw12345", NewPassword: "newpw123"}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := e.auth.Login(ctx, &services.LoginInput{Identifier: "alice", Password: "newpw123"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	_, rdb := newTestRedis(t)
	e := newEnv(t, envOpts{redis: rdb})
	ctx := context.Background()
	testutil.CreateAccount(t, e.db, "alice", "alice@x.com", "pw12345", testutil.AccountOpts{})

	res, err := e.auth.Login(ctx, &services.LoginInput{Identifier: "alice", Password: "pw12345"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := e.tokens.ValidateSession(res.Session.AccessToken)
	if err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}

	if e.revoker.IsRevoked(ctx, claims.ID) {
		t.Fatal("fresh session reported revoked")
	}
	if err := e.auth.Logout(ctx, claims); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if !e.revoker.IsRevoked(ctx, claims.ID) {
		t.Fatal("session should be revoked after logout")
	}
	ttl := rdb.TTL(ctx, "revoked:session:"+claims.ID).Val()
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("revocation ttl = %v", ttl)
	}
}

func TestLogoutWithoutRedis(t *testing.T) {
	e := newEnv(t, envOpts{})
	testutil.CreateAccount(t, e.db, "alice", "alice@x.com", "pw12345", testutil.AccountOpts{})

	res, err := e.auth.Login(context.Background(), &services.LoginInput{Identifier: "alice", Password: "pw12345"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, _ := e.tokens.ValidateSession(res.Session.AccessToken)
	if err := e.auth.Logout(context.Background(), claims); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if e.revoker.IsRevoked(context.Background(), claims.ID) {
		t.Fatal("revoker without redis must report nothing revoked")
	}
}

func TestListAccounts(t *testing.T) {
	e := newEnv(t, envOpts{})
	testutil.CreateAccount(t, e.db, "alice", "alice@x.com", "pw12345", testutil.AccountOpts{})
	testutil.CreateAccount(t, e.db, "root", "root@x.com", "pw12345", testutil.AccountOpts{Role: "admin"})

	list, total, err := e.auth.ListAccounts(context.Background(), "", 0, 10)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("got %d of %d", len(list), total)
	}
	if list[0].Username != "alice" || list[1].Role != "admin" {
		t.Fatalf("unexpected order or roles: %s/%s", list[0].Username, list[1].Role)
	}

	admins, total, err := e.auth.ListAccounts(context.Background(), "admin", 0, 10)
	if err != nil {
		t.Fatalf("ListAccounts(admin): %v", err)
	}
	if total != 1 || admins[0].Username != "root" {
		t.Fatalf("admins = %d of %d", len(admins), total)
	}

	_, _, err = e.auth.ListAccounts(context.Background(), "superuser", 0, 10)
	assertKind(t, err, domain.KindValidation)
	if _, ok := domain.FieldsOf(err)["role"]; !ok {
		t.Fatalf("fields = %v", domain.FieldsOf(err))
	}
}

// staleExists answers the pre-insert checks as if a concurrent registration
// had not committed yet
type staleExists struct {
	repositories.AccountRepository
}

func (staleExists) ExistsByEmail(context.Context, string) (bool, error) { return false, nil }

func (staleExists) ExistsByUsername(context.Context, string) (bool, error) { return false, nil }

func TestRegisterLosingInsertRaceIsConflict(t *testing.T) {
	e := newEnv(t, envOpts{})
	testutil.CreateAccount(t, e.db, "alice", "alice@x.com", "pw12345", testutil.AccountOpts{})
	auth := services.NewAuthService(staleExists{e.accounts}, e.tokens, e.twoFactor, nil, nil)

	_, err := auth.Register(context.Background(), &services.RegisterInput{Username: "alice2", Email: "alice@x.com", Password: "pw12345"})
	assertKind(t, err, domain.KindConflict)
	if _, ok := domain.FieldsOf(err)["email"]; !ok {
		t.Fatalf("fields = %v", domain.FieldsOf(err))
	}
}
