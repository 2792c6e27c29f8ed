package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"opendialog/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

const telegramMaxMsgLen = 4000

// Telegram implements domain.Channel over the Telegram Bot API with
// long polling. Each Telegram user is one dialogue-engine identity, so
// two people chatting with the bot never share a session.
type Telegram struct {
	token     string
	allowFrom []int64 // allowed user IDs; empty allows everyone

	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

type TelegramConfig struct {
	Token     string
	AllowFrom []string // user IDs as strings
	Logger    *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	var allowed []int64
	for _, s := range cfg.AllowFrom {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			allowed = append(allowed, id)
		}
	}
	return &Telegram{
		token:     cfg.Token,
		allowFrom: allowed,
		logger:    cfg.Logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects and polls for updates until ctx is cancelled.
func (t *Telegram) Start(ctx context.Context, bus domain.Bus) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected", "username", bot.Self.UserName, "id", bot.Self.ID)

	bus.OnReply("telegram", func(r domain.TurnReply) {
		chatID, err := strconv.ParseInt(r.ChatID, 10, 64)
		if err != nil {
			t.logger.Error("invalid chat ID on telegram reply", "chatID", r.ChatID, "err", err)
			return
		}
		t.sendMessage(chatID, r.Text)
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(bus, update)
		}
	}
}

// Stop is a no-op: polling stops when Start's context is cancelled,
// and stopping twice panics in the bot library.
func (t *Telegram) Stop() error { return nil }

func (t *Telegram) handleUpdate(bus domain.Bus, update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if !t.isAllowed(userID) {
		t.logger.Warn("unauthorized telegram user", "user_id", userID, "username", update.Message.From.UserName)
		t.sendMessage(chatID, "Unauthorized. Your user ID is not in the allow list.")
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}

	t.logger.Info("telegram turn received", "user_id", userID, "chat_id", chatID, "text_len", len(text))

	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, _ = t.bot.Send(typing)

	bus.Publish(domain.TurnRequest{
		TurnID:    uuid.NewString(),
		Channel:   "telegram",
		ChatID:    strconv.FormatInt(chatID, 10),
		UserID:    strconv.FormatInt(userID, 10),
		Text:      text,
		Timestamp: time.Unix(int64(update.Message.Date), 0),
	})
}

func (t *Telegram) isAllowed(userID int64) bool {
	if len(t.allowFrom) == 0 {
		return true
	}
	for _, id := range t.allowFrom {
		if id == userID {
			return true
		}
	}
	return false
}

// sendMessage delivers text, split into chunks under Telegram's
// message size limit.
func (t *Telegram) sendMessage(chatID int64, text string) {
	for len(text) > 0 {
		chunk := text
		if len(chunk) > telegramMaxMsgLen {
			cut := strings.LastIndex(chunk[:telegramMaxMsgLen], "\n")
			if cut < telegramMaxMsgLen/2 {
				cut = telegramMaxMsgLen
			}
			chunk = chunk[:cut]
		}
		text = text[len(chunk):]

		msg := tgbotapi.NewMessage(chatID, chunk)
		if _, err := t.bot.Send(msg); err != nil {
			t.logger.Error("telegram send failed", "chat_id", chatID, "err", err)
			return
		}
	}
}
