package services_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/adapters/persistence/repositories"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/domain"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/services"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/jwt"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeChannel records what it was asked to deliver
type fakeChannel struct {
	name       string
	configured bool
	err        error
	hang       chan struct{}

	mu    sync.Mutex
	sent  []services.Message
	calls int
}

func okChannel(name string) *fakeChannel {
	return &fakeChannel{name: name, configured: true}
}

func failingChannel(name string) *fakeChannel {
	return &fakeChannel{name: name, configured: true, err: errors.New(name + " refused")}
}

func offChannel(name string) *fakeChannel {
	return &fakeChannel{name: name}
}

// hangingChannel blocks until the test ends, ignoring its context
func hangingChannel(t *testing.T, name string) *fakeChannel {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	return &fakeChannel{name: name, configured: true, hang: release}
}

func (f *fakeChannel) Name() string     { return f.name }
func (f *fakeChannel) Configured() bool { return f.configured }

func (f *fakeChannel) AttemptDeliver(ctx context.Context, to, subject, text string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.hang != nil {
		<-f.hang
		return nil
	}
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.sent = append(f.sent, services.Message{To: to, Subject: subject, Text: text})
	f.mu.Unlock()
	return nil
}

func (f *fakeChannel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

// LastCode pulls the code out of the most recent delivered message
func (f *fakeChannel) LastCode(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no message delivered")
	}
	m := codePattern.FindStringSubmatch(f.sent[len(f.sent)-1].Text)
	if m == nil {
		t.Fatalf("no code in message %q", f.sent[len(f.sent)-1].Text)
	}
	return m[1]
}

// wrongCode returns a well-formed code different from code
func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

type env struct {
	db        *gorm.DB
	accounts  repositories.AccountRepository
	clock     *fakeClock
	tokens    *jwt.Manager
	mail      *fakeChannel
	otp       *services.OTPService
	notifier  *services.NotificationService
	limiter   *services.AttemptLimiter
	revoker   *services.SessionRevoker
	auth      *services.AuthService
	twoFactor *services.TwoFactorService
	recovery  *services.RecoveryService
}

type envOpts struct {
	channels      []services.Channel
	redis         *redis.Client
	revealUnknown bool
}

func newEnv(t *testing.T, opts envOpts) *env {
	t.Helper()

	e := &env{clock: newClock(), mail: okChannel("fake")}
	e.db = testutil.NewDB(t)
	e.accounts = repositories.NewAccountRepository(e.db)
	e.tokens = jwt.NewManager("test-secret", time.Hour, domain.OTPLifetime).WithClock(e.clock.Now)

	channels := opts.channels
	if channels == nil {
		channels = []services.Channel{e.mail}
	}
	e.notifier = services.NewNotificationService(channels, time.Second, 2*time.Second)
	e.otp = services.NewOTPService(domain.OTPLifetime, e.clock.Now)
	e.limiter = services.NewAttemptLimiter(opts.redis, 3, time.Minute)
	e.revoker = services.NewSessionRevoker(opts.redis)

	e.twoFactor = services.NewTwoFactorService(e.accounts, e.tokens, e.otp, e.notifier, e.limiter)
	e.auth = services.NewAuthService(e.accounts, e.tokens, e.twoFactor, e.limiter, e.revoker)
	e.recovery = services.NewRecoveryService(e.accounts, e.otp, e.notifier, e.limiter, opts.revealUnknown)
	return e
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func assertKind(t *testing.T, err error, want domain.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := domain.KindOf(err); got != want {
		t.Fatalf("error kind = %q (%v), want %q", got, err, want)
	}
}
