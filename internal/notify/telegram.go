package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"panelkeeper/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram rejects texts above 4096 characters; keep some headroom.
const telegramMaxMsgLen = 4000

// Telegram delivers messages to one chat through the Bot API.
type Telegram struct {
	chatID string
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

type TelegramConfig struct {
	Token  string
	ChatID string // numeric id, or @channelusername

	APIEndpoint string       // defaults to tgbotapi.APIEndpoint
	Client      *http.Client // defaults to NewHTTPClient(0)
	Logger      *slog.Logger
}

var _ domain.Sink = (*Telegram)(nil)

// NewTelegram builds the sink without contacting Telegram. The bot
// client's usual getMe handshake is skipped so the only requests a run
// makes are the sendMessage calls themselves.
func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.Client == nil {
		cfg.Client = NewHTTPClient(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	bot := &tgbotapi.BotAPI{
		Token:  cfg.Token,
		Client: cfg.Client,
		Buffer: 100,
	}
	bot.SetAPIEndpoint(cfg.APIEndpoint)

	return &Telegram{
		chatID: strings.TrimSpace(cfg.ChatID),
		bot:    bot,
		logger: cfg.Logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Send posts text to the configured chat, split into several messages only
// when it exceeds Telegram's length limit.
func (t *Telegram) Send(ctx context.Context, text string) error {
	chunks := splitText(text, telegramMaxMsgLen)
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := t.bot.Send(t.newMessage(chunk)); err != nil {
			return fmt.Errorf("telegram sendMessage: %w", err)
		}
	}
	t.logger.Debug("telegram message sent", "chat_id", t.chatID, "chunks", len(chunks))
	return nil
}

func (t *Telegram) newMessage(text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(t.chatID, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	return tgbotapi.NewMessageToChannel(t.chatID, text)
}

// splitText cuts text into pieces of at most maxLen runes, preferring to
// break after a newline in the second half of a piece.
func splitText(text string, maxLen int) []string {
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > 0 {
		if len(runes) <= maxLen {
			chunks = append(chunks, string(runes))
			break
		}
		cutAt := maxLen
		for i := maxLen - 1; i >= maxLen/2; i-- {
			if runes[i] == '\n' {
				cutAt = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cutAt]))
		runes = runes[cutAt:]
	}
	return chunks
}

// Ping calls getMe to verify the token and returns the bot's username.
func (t *Telegram) Ping(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	me, err := t.bot.GetMe()
	if err != nil {
		return "", fmt.Errorf("telegram getMe: %w", err)
	}
	return me.UserName, nil
}
