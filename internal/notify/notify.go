// Package notify reports agent events to the operator.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"go-outreach-automation/internal/config"
)

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// New returns a Telegram notifier when a token is configured, otherwise a
// no-op. A bot that fails to initialize is logged and replaced by the no-op
// so that notifications never stop the agent.
func New(cfg config.NotifyConfig, logger *slog.Logger) Notifier {
	if cfg.TelegramToken == "" {
		return Noop{}
	}
	t, err := NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		logger.Warn("telegram notifications disabled", "error", err)
		return Noop{}
	}
	return t
}

// Noop discards every notification.
type Noop struct{}

func (Noop) Notify(context.Context, string) error { return nil }

type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return NewTelegramWithBot(bot, chatID), nil
}

func NewTelegramWithBot(bot *tgbotapi.BotAPI, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
