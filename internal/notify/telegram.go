package notify

import (
	"context"
	"fmt"

	"sunportal/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramNotifier pushes escalations and committee outcomes to the
// operators' Telegram channel. Routine transitions stay off the channel to
// keep it readable.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *zap.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	logger.Info("telegram notifier authorized", zap.String("account", bot.Self.UserName))
	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

// notifiable reports whether an event is worth an operator ping.
func notifiable(ev models.LifecycleEvent) bool {
	if ev.AutoEscalated {
		return true
	}
	switch ev.Status {
	case models.StatusEscalated, models.StatusResolved, models.StatusDismissed:
		return true
	}
	return false
}

func (n *TelegramNotifier) PublishLifecycle(ctx context.Context, ev models.LifecycleEvent) error {
	if !notifiable(ev) {
		return nil
	}

	text := fmt.Sprintf("[%s] %s\nStatus: %s · Routing: %s · By: %s",
		ev.TicketID, ev.Action, ev.Status, ev.RoutingLevel, ev.Actor)
	if ev.AutoEscalated {
		text += "\nAuto-escalated by the deadline sweep."
	}
	if ev.Note != "" {
		text += "\nNote: " + ev.Note
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
