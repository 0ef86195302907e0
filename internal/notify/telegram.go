package notify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/NordCoder/Watchtower/internal/domain/watch"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Telegram delivers alerts to a chat. The watch's sink channel is the
// numeric chat id.
type Telegram struct {
	api *tgbotapi.BotAPI
	log *zap.Logger
}

var _ watch.Notifier = (*Telegram)(nil)

func NewTelegram(token string, log *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	if log == nil {
		log = zap.L()
	}
	return &Telegram{
		api: api,
		log: log.With(zap.String("component", "notify.telegram")),
	}, nil
}

func (n *Telegram) Notify(_ context.Context, ev watch.Event) error {
	chatID, err := strconv.ParseInt(ev.Watch.SinkChannel, 10, 64)
	if err != nil {
		return fmt.Errorf("bad sink channel %q: %w", ev.Watch.SinkChannel, err)
	}

	msg := tgbotapi.NewMessage(chatID, FormatEvent(ev))
	msg.DisableWebPagePreview = ev.Transition != watch.NewItem

	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	n.log.Debug("alert sent", zap.Int64("chat_id", chatID), zap.String("watch_id", ev.Watch.ID))
	return nil
}
