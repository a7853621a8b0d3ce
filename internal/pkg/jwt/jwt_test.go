package jwt

import (
	"errors"
	"testing"
	"time"
)

func newTestManager(now *time.Time) *Manager {
	return NewManager("test-secret", time.Hour, 10*time.Minute).WithClock(func() time.Time { return *now })
}

func TestIssueAndValidateSession(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(&now)

	token, issued, err := m.IssueSession(7, "alice", "user")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	claims, err := m.ValidateSession(token)
	if err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if claims.AccountID != 7 || claims.Username != "alice" || claims.Role != "user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Kind != KindSession {
		t.Fatalf("kind = %q, want %q", claims.Kind, KindSession)
	}
	if claims.ID == "" || claims.ID != issued.ID {
		t.Fatalf("jti mismatch: parsed %q issued %q", claims.ID, issued.ID)
	}
}

func TestKindsAreNotInterchangeable(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(&now)

	challenge, _, err := m.IssueChallenge(7)
	if err != nil {
		t.Fatalf("IssueChallenge: %v", err)
	}
	if _, err := m.ValidateSession(challenge); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("challenge as session: err = %v, want ErrWrongKind", err)
	}

	session, _, err := m.IssueSession(7, "alice", "user")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if _, err := m.ValidateChallenge(session); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("session as challenge: err = %v, want ErrWrongKind", err)
	}

	if _, err := m.ValidateChallenge(challenge); err != nil {
		t.Fatalf("ValidateChallenge: %v", err)
	}
}

func TestExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(&now)

	token, _, err := m.IssueChallenge(3)
	if err != nil {
		t.Fatalf("IssueChallenge: %v", err)
	}

	now = now.Add(9 * time.Minute)
	if _, err := m.ValidateChallenge(token); err != nil {
		t.Fatalf("expected valid at +9m, got %v", err)
	}

	now = now.Add(time.Minute)
	if _, err := m.ValidateChallenge(token); err != nil {
		t.Fatalf("expected valid at exactly +10m, got %v", err)
	}

	now = now.Add(time.Second)
	if _, err := m.ValidateChallenge(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at +10m01s, got %v", err)
	}
}

func TestRejectsForeignSignatureAndGarbage(t *testing.T) {
	now := time.Now()
	m := newTestManager(&now)
	other := NewManager("another-secret", time.Hour, time.Minute)

	token, _, err := other.IssueSession(1, "bob", "admin")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	tests := map[string]string{
		"foreign secret": token,
		"garbage":        "not-a-jwt",
		"empty":          "",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := m.ValidateSession(tok); !errors.Is(err, ErrTokenInvalid) {
				t.Fatalf("err = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestRemainingTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(&now)

	_, claims, err := m.IssueSession(1, "a", "user")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if got := m.RemainingTTL(claims); got != time.Hour {
		t.Fatalf("RemainingTTL = %v, want 1h", got)
	}
	now = now.Add(2 * time.Hour)
	if got := m.RemainingTTL(claims); got != 0 {
		t.Fatalf("RemainingTTL after expiry = %v, want 0", got)
	}
}
