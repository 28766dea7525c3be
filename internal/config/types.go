package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultCompetition     = "drawing-with-llms"
	DefaultLanguage        = "python"
	DefaultInterval        = "3600"
	DefaultStorageDriver   = "file"
	DefaultStoragePath     = "best_score.txt"
	DefaultMetricsAddr     = "127.0.0.1:9108"
	DefaultKaggleAPIBase   = "https://www.kaggle.com/api/v1"
	DefaultTelegramAPIBase = "https://api.telegram.org"
)

// Config is the whole process configuration. It is loaded once at startup
// and treated as read-only afterwards.
//
// The upper-case keys are the legacy config.json keys; the
// lower-case sections are optional.
type Config struct {
	Competition      string `json:"COMPETITION"`
	TelegramBotToken string `json:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   ChatID `json:"TELEGRAM_CHAT_ID"`

	KaggleUsername string `json:"KAGGLE_USERNAME,omitempty"`
	KaggleKey      string `json:"KAGGLE_KEY,omitempty"`
	Language       string `json:"LANGUAGE,omitempty"`

	// Interval is a schedule string: plain seconds ("3600"), a Go duration
	// ("1h"), HH:MM ("01:00") or a cron expression ("@hourly").
	Interval Interval `json:"INTERVAL,omitempty"`

	Storage StorageConfig `json:"storage"`
	Logging LoggingConfig `json:"logging"`
	Metrics MetricsConfig `json:"metrics"`

	KaggleAPIBase   string `json:"kaggle_api_base,omitempty"`
	TelegramAPIBase string `json:"telegram_api_base,omitempty"`
}

// StorageConfig controls where the best score is persisted.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./lbwatch.db", "busy_timeout": "2s" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console *bool       `json:"console,omitempty"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// MetricsConfig controls the optional Prometheus endpoint.
// Prefer binding to localhost.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	// Pprof also serves /debug/pprof/ on the same listener.
	Pprof bool `json:"pprof,omitempty"`
}

// ChatID is a Telegram chat identifier. The config may carry it either as a
// JSON number or as a string (channel usernames like "@mychannel" are strings).
type ChatID string

func (c *ChatID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = ChatID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("TELEGRAM_CHAT_ID: want string or integer: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("TELEGRAM_CHAT_ID: %q is not an integer", n.String())
	}
	*c = ChatID(n.String())
	return nil
}

func (c ChatID) String() string { return string(c) }

// ConsoleEnabled reports whether console logging is on (default true).
func (l LoggingConfig) ConsoleEnabled() bool {
	if l.Console == nil {
		return true
	}
	return *l.Console
}

// Interval is a schedule string. A bare JSON number is read as seconds.
type Interval string

func (iv *Interval) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*iv = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*iv = Interval(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("INTERVAL: want string or number of seconds: %w", err)
	}
	*iv = Interval(n.String())
	return nil
}

func (iv Interval) String() string { return string(iv) }
