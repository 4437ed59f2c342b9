package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// MaxMessageLen is Telegram's limit for one text message
const MaxMessageLen = 4096

// TokenEnv holds the bot token
const TokenEnv = "TELEGRAM_BOT_TOKEN"

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts run reports to a single chat
type Telegram struct {
	bot    sender
	chatID int64
	logger *zap.Logger
}

// NewTelegram authorizes the bot and returns a notifier for chatID
func NewTelegram(token string, chatID int64, logger *zap.Logger) (*Telegram, error) {
	if token == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat id is not set")
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Sugar().Infof("Authorized on account %s", bot.Self.UserName)

	return newTelegram(bot, chatID, logger), nil
}

func newTelegram(bot sender, chatID int64, logger *zap.Logger) *Telegram {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Telegram{bot: bot, chatID: chatID, logger: logger}
}

// Notify sends text, split into as many messages as Telegram needs
func (t *Telegram) Notify(ctx context.Context, text string) error {
	for _, part := range splitMessage(text, MaxMessageLen) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(t.chatID, part)
		msg.DisableWebPagePreview = true
		if _, err := t.bot.Send(msg); err != nil {
			t.logger.Warn("Error sending notification", zap.Int64("chat", t.chatID), zap.Error(err))
			return fmt.Errorf("failed to send notification: %w", err)
		}
	}
	return nil
}

// splitMessage cuts text on line boundaries into chunks of at most maxLen
// bytes. Lines longer than maxLen are cut hard.
func splitMessage(text string, maxLen int) []string {
	text = strings.TrimRight(text, "\n")
	if len(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, strings.TrimRight(current.String(), "\n"))
			current.Reset()
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if current.Len()+len(line)+1 > maxLen {
			flush()
			for len(line) > maxLen {
				parts = append(parts, line[:maxLen])
				line = line[maxLen:]
			}
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	flush()

	return parts
}
