// Package telegram sends moderation alerts to admin chats through the
// Telegram Bot API.
package telegram

import (
	"context"
	"slices"

	"familyeats/backend/internal/config"
	"familyeats/backend/internal/localization"
	"familyeats/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const alertBuffer = 100

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Recipients lists the chats admins linked to their accounts.
type Recipients interface {
	AdminChatIDs(ctx context.Context) ([]int64, error)
}

// Notifier turns urgent moderation events into chat messages. Events are
// queued and sent from Run so that request handling never waits on Telegram.
type Notifier struct {
	bot         Sender
	chatID      int64
	recipients  Recipients
	maxPriority int
	lang        string
	loc         *localization.Localizer
	alerts      chan string
	log         *zap.Logger
}

// NewNotifier authorizes the bot token and builds a notifier for cfg.
// Alerts go to the configured admin chat and to every chat recipients
// returns; recipients may be nil.
func NewNotifier(cfg config.TelegramConfig, loc *localization.Localizer, recipients Recipients, log *zap.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	n := NewNotifierWithSender(bot, cfg, loc, recipients, log)
	n.log.Info("telegram alerts enabled", zap.String("bot", bot.Self.UserName))
	return n, nil
}

func NewNotifierWithSender(bot Sender, cfg config.TelegramConfig, loc *localization.Localizer, recipients Recipients, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	lang := cfg.Language
	if lang == "" {
		lang = localization.DefaultLanguage
	}
	return &Notifier{
		bot:         bot,
		chatID:      cfg.AdminChatID,
		recipients:  recipients,
		maxPriority: cfg.MaxPriority,
		lang:        lang,
		loc:         loc,
		alerts:      make(chan string, alertBuffer),
		log:         log,
	}
}

// PublishEvent queues an alert for events admins care about. A full queue
// drops the alert.
func (n *Notifier) PublishEvent(_ context.Context, ev models.ModerationEvent) error {
	text, ok := n.alertText(ev)
	if !ok {
		return nil
	}
	select {
	case n.alerts <- text:
	default:
		n.log.Warn("telegram alert queue full, dropping alert", zap.String("type", ev.Type))
	}
	return nil
}

func (n *Notifier) alertText(ev models.ModerationEvent) (string, bool) {
	urgent := ev.Priority > 0 && ev.Priority <= n.maxPriority
	switch {
	case ev.Type == models.EventContentRemoved:
		return n.loc.Format(n.lang, "alert.content_removed", ev.ContentType, ev.ContentID), true
	case ev.Type == models.EventQueueEnqueued && urgent:
		return n.loc.Format(n.lang, "alert.queue_urgent", ev.Priority, ev.ContentType, ev.ContentID), true
	}
	return "", false
}

// Run sends queued alerts until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-n.alerts:
			for _, chatID := range n.chats(ctx) {
				if _, err := n.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
					n.log.Error("failed to send telegram alert", zap.Int64("chat_id", chatID), zap.Error(err))
				}
			}
		}
	}
}

// chats is the configured admin chat plus the linked admin chats. A failed
// lookup falls back to the configured chat.
func (n *Notifier) chats(ctx context.Context) []int64 {
	var chats []int64
	if n.chatID != 0 {
		chats = append(chats, n.chatID)
	}
	if n.recipients == nil {
		return chats
	}
	linked, err := n.recipients.AdminChatIDs(ctx)
	if err != nil {
		n.log.Warn("failed to list admin chats", zap.Error(err))
		return chats
	}
	for _, id := range linked {
		if !slices.Contains(chats, id) {
			chats = append(chats, id)
		}
	}
	return chats
}
