package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAPIBaseURL = "https://api.brevo.com"
	defaultAPITimeout = 15 * time.Second
)

// HTTPAPIConfig configures a transactional email HTTP API
type HTTPAPIConfig struct {
	BaseURL  string
	APIKey   string
	From     string
	FromName string
}

// HTTPAPIChannel posts messages to a Brevo-compatible /v3/smtp/email endpoint
type HTTPAPIChannel struct {
	cfg        HTTPAPIConfig
	httpClient *http.Client
}

// NewHTTPAPIChannel returns a channel for the given API settings
func NewHTTPAPIChannel(cfg HTTPAPIConfig) *HTTPAPIChannel {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAPIBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &HTTPAPIChannel{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultAPITimeout},
	}
}

func (c *HTTPAPIChannel) Name() string {
	return "http-api"
}

func (c *HTTPAPIChannel) Configured() bool {
	return c.cfg.APIKey != "" && c.cfg.From != ""
}

type apiAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type apiEmail struct {
	Sender      apiAddress   `json:"sender"`
	To          []apiAddress `json:"to"`
	Subject     string       `json:"subject"`
	TextContent string       `json:"textContent"`
}

// AttemptDeliver sends one message. Any non-2xx answer is a failure.
func (c *HTTPAPIChannel) AttemptDeliver(ctx context.Context, to, subject, text string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	raw, err := json.Marshal(apiEmail{
		Sender:      apiAddress{Email: c.cfg.From, Name: c.cfg.FromName},
		To:          []apiAddress{{Email: to}},
		Subject:     subject,
		TextContent: text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v3/smtp/email", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("http-api: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
