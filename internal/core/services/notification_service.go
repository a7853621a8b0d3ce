package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/domain"
)

// Channel is one way of delivering a plain-text email
type Channel interface {
	Name() string
	Configured() bool
	AttemptDeliver(ctx context.Context, to, subject, text string) error
}

// Message is a single outbound notification
type Message struct {
	To      string
	Subject string
	Text    string
}

// Attempt records one channel try
type Attempt struct {
	Channel  string        `json:"channel"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// DeliveryReport describes how a Send went. Callers must not let it change
// what they return to the client.
type DeliveryReport struct {
	Delivered bool      `json:"delivered"`
	Channel   string    `json:"channel,omitempty"`
	Attempts  []Attempt `json:"attempts"`
}

// Default timing for the fallback chain
const (
	DefaultChannelTimeout = 10 * time.Second
	DefaultTotalBudget    = 25 * time.Second
)

var errChannelPanic = errors.New("channel panicked")

// NotificationService delivers messages through an ordered list of channels,
// stopping at the first one that succeeds
type NotificationService struct {
	channels       []Channel
	channelTimeout time.Duration
	totalBudget    time.Duration
}

// NewNotificationService creates a new notification service. Channels are
// tried in the order given.
func NewNotificationService(channels []Channel, channelTimeout, totalBudget time.Duration) *NotificationService {
	if channelTimeout <= 0 {
		channelTimeout = DefaultChannelTimeout
	}
	if totalBudget <= 0 {
		totalBudget = DefaultTotalBudget
	}
	return &NotificationService{
		channels:       channels,
		channelTimeout: channelTimeout,
		totalBudget:    totalBudget,
	}
}

// IsEnabled reports whether at least one channel is configured
func (s *NotificationService) IsEnabled() bool {
	for _, ch := range s.channels {
		if ch.Configured() {
			return true
		}
	}
	return false
}

// ConfiguredChannels lists the names of channels that will be tried
func (s *NotificationService) ConfiguredChannels() []string {
	names := make([]string, 0, len(s.channels))
	for _, ch := range s.channels {
		if ch.Configured() {
			names = append(names, ch.Name())
		}
	}
	return names
}

// Send walks the chain. It never fails; when nothing delivers it logs a
// DeliveryDegradation line and reports Delivered=false.
func (s *NotificationService) Send(ctx context.Context, msg Message) DeliveryReport {
	report := DeliveryReport{Attempts: []Attempt{}}

	// delivery outlives a client that hangs up mid-request
	budgetCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.totalBudget)
	defer cancel()

	for _, ch := range s.channels {
		if !ch.Configured() {
			continue
		}
		if budgetCtx.Err() != nil {
			log.Printf("⚠️ Mail budget exhausted before channel %s", ch.Name())
			break
		}

		start := time.Now()
		err := s.attempt(budgetCtx, ch, msg)
		a := Attempt{Channel: ch.Name(), Duration: time.Since(start)}
		if err != nil {
			a.Error = err.Error()
			report.Attempts = append(report.Attempts, a)
			log.Printf("⚠️ Mail channel %s failed for %s: %v", ch.Name(), maskEmail(msg.To), err)
			continue
		}

		report.Attempts = append(report.Attempts, a)
		report.Delivered = true
		report.Channel = ch.Name()
		log.Printf("📧 Mail sent to %s via %s", maskEmail(msg.To), ch.Name())
		return report
	}

	log.Printf("❌ DeliveryDegradation: no channel delivered to %s (%d attempts)", maskEmail(msg.To), len(report.Attempts))
	return report
}

// attempt runs one channel under its own timeout. A channel that ignores its
// context is abandoned when the timeout fires.
func (s *NotificationService) attempt(ctx context.Context, ch Channel, msg Message) error {
	attemptCtx, cancel := context.WithTimeout(ctx, s.channelTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: %v", errChannelPanic, r)
			}
		}()
		done <- ch.AttemptDeliver(attemptCtx, msg.To, msg.Subject, msg.Text)
	}()

	select {
	case err := <-done:
		return err
	case <-attemptCtx.Done():
		return attemptCtx.Err()
	}
}

// SendOTP composes and sends the code for purpose
func (s *NotificationService) SendOTP(ctx context.Context, to, code string, purpose domain.OTPPurpose, lifetime time.Duration) DeliveryReport {
	return s.Send(ctx, OTPMessage(to, code, purpose, lifetime))
}

// OTPMessage builds the plain-text email carrying code
func OTPMessage(to, code string, purpose domain.OTPPurpose, lifetime time.Duration) Message {
	minutes := int(lifetime / time.Minute)
	switch purpose {
	case domain.OTPPurposeTwoFactor:
		return Message{
			To:      to,
			Subject: "Your login verification code",
			Text: fmt.Sprintf("Your login verification code is %s.\n\n"+
				"It expires in %d minutes. If you did not try to sign in, change your password.", code, minutes),
		}
	default:
		return Message{
			To:      to,
			Subject: "Password reset code",
			Text: fmt.Sprintf("Your password reset code is %s.\n\n"+
				"It expires in %d minutes. If you did not request a reset, ignore this email.", code, minutes),
		}
	}
}

// maskEmail keeps logs useful without printing the whole address
func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
