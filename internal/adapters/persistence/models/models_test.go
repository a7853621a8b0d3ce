package models

import (
	"testing"
	"time"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/domain"
)

func TestOTPSlot(t *testing.T) {
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := &Account{}

	a.SetOTP("123456", domain.OTPPurposePasswordReset, "", issued.Add(domain.OTPLifetime))

	if !a.HasOTPFor(domain.OTPPurposePasswordReset, issued.Add(10*time.Minute)) {
		t.Fatal("code should be live at exactly T+10m")
	}
	if a.HasOTPFor(domain.OTPPurposePasswordReset, issued.Add(10*time.Minute+time.Second)) {
		t.Fatal("code should be dead at T+10m01s")
	}
	if a.HasOTPFor(domain.OTPPurposeTwoFactor, issued) {
		t.Fatal("reset code must not satisfy two-factor purpose")
	}
	if a.ChallengeID() != "" {
		t.Fatalf("ChallengeID = %q, want empty", a.ChallengeID())
	}

	a.SetOTP("654321", domain.OTPPurposeTwoFactor, "jti-1", issued.Add(domain.OTPLifetime))
	if *a.OTPCode != "654321" || a.ChallengeID() != "jti-1" {
		t.Fatal("second issuance should overwrite the slot")
	}

	a.ClearOTP()
	if a.OTPCode != nil || a.OTPExpiresAt != nil || a.OTPPurpose != nil || a.OTPChallengeID != nil {
		t.Fatal("ClearOTP should empty every slot column")
	}
}

func TestToResponseOmitsSecrets(t *testing.T) {
	code := "123456"
	a := &Account{ID: 1, Username: "alice", Email: "alice@x.com", PasswordHash: "hash", Role: "user", OTPCode: &code}
	resp := a.ToResponse()
	if resp.Username != "alice" || resp.Email != "alice@x.com" || resp.Role != "user" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
