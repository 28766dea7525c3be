package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	logx "lbwatch/pkg/logx"
)

var (
	// ErrRejected wraps any non-200 sendMessage response.
	ErrRejected = errors.New("telegram: message rejected")
	ErrNoToken  = errors.New("telegram: bot token is empty")
	ErrNoChat   = errors.New("telegram: chat id is empty")
)

const (
	DefaultAPIBase = "https://api.telegram.org"

	defaultTimeout = 10 * time.Second
	maxErrorBody   = 1024
)

// Config configures the Telegram sender.
type Config struct {
	Token  string
	ChatID string
	// APIBase defaults to DefaultAPIBase.
	APIBase string
	Timeout time.Duration
	// RatePerSec caps sends; defaults to 1 with a burst of 1.
	RatePerSec float64
	HTTPClient *http.Client
}

// Telegram posts text messages to one chat through the Bot API.
type Telegram struct {
	endpoint string
	chatID   string
	http     *http.Client
	limiter  *rate.Limiter
	log      logx.Logger
}

func NewTelegram(cfg Config, log logx.Logger) (*Telegram, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, ErrNoToken
	}
	chat := strings.TrimSpace(cfg.ChatID)
	if chat == "" {
		return nil, ErrNoChat
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if base == "" {
		base = DefaultAPIBase
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Telegram{
		endpoint: base + "/bot" + token + "/sendMessage",
		chatID:   chat,
		http:     hc,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		log:      log,
	}, nil
}

// Send posts text to the configured chat. It logs the outcome and returns
// the failure so callers can count it.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram: rate limit wait: %w", err)
	}

	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		// The error would echo the URL, which embeds the bot token.
		return errors.New("telegram: build request failed")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.http.Do(req)
	if err != nil {
		err = redactURLError(err)
		t.log.Warn("error sending telegram message", logx.Err(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		t.log.Info("notification sent", logx.String("chat_id", t.chatID))
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err = fmt.Errorf("%w: http %d: %s", ErrRejected, resp.StatusCode, describe(body))
	t.log.Warn("failed to send message", logx.Int("status", resp.StatusCode), logx.Err(err))
	return err
}

// describe prefers the Bot API's "description" field over the raw body.
func describe(body []byte) string {
	var out struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &out); err == nil && out.Description != "" {
		return out.Description
	}
	return strings.TrimSpace(string(body))
}

// redactURLError drops the request URL (and with it the bot token) from
// transport errors.
func redactURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("telegram: %s: %w", ue.Op, ue.Err)
	}
	return err
}

// NewHighScoreMessage formats the announcement for a new best entry.
func NewHighScoreMessage(title, score string) string {
	var b strings.Builder
	b.WriteString("New best kernel published!\n")
	b.WriteString("Title: ")
	b.WriteString(title)
	b.WriteString("\nScore: ")
	b.WriteString(score)
	return b.String()
}
