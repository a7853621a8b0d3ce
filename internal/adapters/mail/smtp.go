package mail

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"
)

const (
	defaultSMTPPort    = 587
	defaultSMTPTimeout = 15 * time.Second
)

// SMTPConfig configures one SMTP relay
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPChannel delivers through an authenticated SMTP relay
type SMTPChannel struct {
	name string
	cfg  SMTPConfig
}

// NewSMTPChannel returns a relay channel named name. From falls back to the
// username, which is what consumer mailboxes require.
func NewSMTPChannel(name string, cfg SMTPConfig) *SMTPChannel {
	if cfg.Port == 0 {
		cfg.Port = defaultSMTPPort
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPChannel{name: name, cfg: cfg}
}

func (c *SMTPChannel) Name() string {
	return c.name
}

func (c *SMTPChannel) Configured() bool {
	return c.cfg.Host != "" && c.cfg.Username != "" && c.cfg.Password != ""
}

func (c *SMTPChannel) AttemptDeliver(ctx context.Context, to, subject, text string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	msg, err := c.buildMessage(to, subject, text)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(c.cfg.Host, c.clientOptions()...)
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	return nil
}

func (c *SMTPChannel) clientOptions() []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(c.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(c.cfg.Username),
		gomail.WithPassword(c.cfg.Password),
		gomail.WithTimeout(defaultSMTPTimeout),
	}
	// 465 speaks TLS from the first byte, everything else upgrades with STARTTLS
	if c.cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	}
	return opts
}

func (c *SMTPChannel) buildMessage(to, subject, text string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	var err error
	if c.cfg.FromName != "" {
		err = msg.FromFormat(c.cfg.FromName, c.cfg.From)
	} else {
		err = msg.From(c.cfg.From)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: invalid sender: %w", c.name, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("%s: invalid recipient: %w", c.name, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, text)
	return msg, nil
}
