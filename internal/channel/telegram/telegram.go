// Package telegram is the Telegram chat surface, the primary channel of the
// assistant. It long-polls the Bot API and renders replies as Markdown.
package telegram

import (
	"context"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/pocketmedic/triage-gateway/internal/channel"
)

type TelegramAdapter struct {
	bot      *tgbotapi.BotAPI
	token    string
	incoming chan *channel.Message
	logger   *slog.Logger
}

func NewTelegramAdapter(token string, logger *slog.Logger) *TelegramAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramAdapter{
		token:    token,
		incoming: make(chan *channel.Message, 100),
		logger:   logger,
	}
}

func (t *TelegramAdapter) Name() string {
	return "telegram"
}

func (t *TelegramAdapter) IsEnabled() bool {
	return t.token != ""
}

func (t *TelegramAdapter) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return err
	}
	t.bot = bot
	t.logger.Info("telegram connected", "bot", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				t.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message == nil || update.Message.Text == "" {
					continue
				}
				t.incoming <- t.normalize(update.Message)
			}
		}
	}()
	return nil
}

func (t *TelegramAdapter) normalize(m *tgbotapi.Message) *channel.Message {
	name := ""
	fromID := ""
	if m.From != nil {
		name = m.From.FirstName
		fromID = strconv.FormatInt(m.From.ID, 10)
	}
	return &channel.Message{
		ID:        strconv.Itoa(m.MessageID),
		Channel:   "telegram",
		UserID:    strconv.FormatInt(m.Chat.ID, 10),
		UserName:  name,
		Content:   m.Text,
		Metadata:  map[string]string{"from_id": fromID},
		Timestamp: int64(m.Date),
	}
}

func (t *TelegramAdapter) Stop() error {
	close(t.incoming)
	return nil
}

// SendMessage delivers Markdown; when Telegram rejects the entities it
// retries once as plain text so the user never loses the reply.
func (t *TelegramAdapter) SendMessage(userID string, resp *channel.Response) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return err
	}

	reply := tgbotapi.NewMessage(chatID, resp.Content)
	reply.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.bot.Send(reply); err != nil {
		t.logger.Warn("markdown send failed, retrying plain", "error", err)
		reply.ParseMode = ""
		_, err = t.bot.Send(reply)
		return err
	}
	return nil
}

func (t *TelegramAdapter) Incoming() <-chan *channel.Message {
	return t.incoming
}
