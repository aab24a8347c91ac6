package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys shared by cobra flags and environment variables.
const (
	KeyAccountsFile    = "accounts"
	KeyTelegramToken   = "telegram-bot-token"
	KeyTelegramChatID  = "telegram-chat-id"
	KeyCollectMessages = "collect-messages"
	KeySlackWebhookURL = "slack-webhook-url"
	KeyPushgatewayURL  = "pushgateway-url"
	KeyLogLevel        = "log-level"
	KeyHeadless        = "headless"
	KeyNavTimeout      = "nav-timeout"
	KeyChromePath      = "chrome-path"
	KeyInsecureTLS     = "insecure-tls"
)

var envBindings = map[string]string{
	KeyAccountsFile:    "ACCOUNTS_FILE",
	KeyTelegramToken:   "TELEGRAM_BOT_TOKEN",
	KeyTelegramChatID:  "TELEGRAM_CHAT_ID",
	KeyCollectMessages: "COLLECT_MESSAGES",
	KeySlackWebhookURL: "SLACK_WEBHOOK_URL",
	KeyPushgatewayURL:  "PUSHGATEWAY_URL",
	KeyLogLevel:        "LOG_LEVEL",
	KeyHeadless:        "HEADLESS",
	KeyNavTimeout:      "NAV_TIMEOUT",
	KeyChromePath:      "CHROME_PATH",
	KeyInsecureTLS:     "INSECURE_TLS",
}

// RunConfig is read once at startup and never mutated.
type RunConfig struct {
	AccountsFile    string
	Telegram        TelegramConfig
	SlackWebhookURL string
	CollectMessages bool
	PushgatewayURL  string
	LogLevel        string
	Headless        bool
	NavTimeout      time.Duration
	ChromePath      string
	// Accept self-signed panel certificates.
	InsecureTLS bool
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// Configured reports whether both the token and the chat target are set.
func (t TelegramConfig) Configured() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// NewViper returns a viper instance with defaults and environment bindings.
// Flags bound on top take precedence over the environment.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyAccountsFile, DefaultAccountsPath())
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyHeadless, true)
	v.SetDefault(KeyNavTimeout, DefaultNavTimeout)
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return v
}

// FromViper builds the run configuration.
func FromViper(v *viper.Viper) (RunConfig, error) {
	cfg := RunConfig{
		AccountsFile: strings.TrimSpace(v.GetString(KeyAccountsFile)),
		Telegram: TelegramConfig{
			BotToken: strings.TrimSpace(v.GetString(KeyTelegramToken)),
			ChatID:   strings.TrimSpace(v.GetString(KeyTelegramChatID)),
		},
		// Only the literal "true" enables buffering.
		CollectMessages: v.GetString(KeyCollectMessages) == "true",
		SlackWebhookURL: strings.TrimSpace(v.GetString(KeySlackWebhookURL)),
		PushgatewayURL:  strings.TrimSpace(v.GetString(KeyPushgatewayURL)),
		LogLevel:        strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
		Headless:        v.GetBool(KeyHeadless),
		NavTimeout:      v.GetDuration(KeyNavTimeout),
		ChromePath:      strings.TrimSpace(v.GetString(KeyChromePath)),
		InsecureTLS:     v.GetBool(KeyInsecureTLS),
	}
	if err := Validate(cfg); err != nil {
		return RunConfig{}, err
	}
	return cfg, nil
}

// Validate checks that the run configuration has usable values.
func Validate(cfg RunConfig) error {
	var errs []string

	if cfg.AccountsFile == "" {
		errs = append(errs, "accounts file path must not be empty")
	}
	if cfg.NavTimeout <= 0 {
		errs = append(errs, "nav-timeout must be a positive duration")
	}
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ParseLogLevel maps debug/info/warn/error to an slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log-level must be one of: debug, info, warn, error (got %q)", s)
	}
}

// Sanitized returns a copy with secrets masked, for display.
func (c RunConfig) Sanitized() RunConfig {
	out := c
	if out.Telegram.BotToken != "" {
		out.Telegram.BotToken = maskString(out.Telegram.BotToken)
	}
	if out.SlackWebhookURL != "" {
		out.SlackWebhookURL = maskString(out.SlackWebhookURL)
	}
	return out
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
