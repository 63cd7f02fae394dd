// Package discord is the Discord chat surface. Consultations are private
// by nature, so guild messages are ignored unless the bot is mentioned;
// replies always go to the user's DM channel.
package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/pocketmedic/triage-gateway/internal/channel"
)

type DiscordAdapter struct {
	token    string
	session  *discordgo.Session
	incoming chan *channel.Message
	logger   *slog.Logger
}

func NewDiscordAdapter(token string, logger *slog.Logger) *DiscordAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscordAdapter{
		token:    token,
		incoming: make(chan *channel.Message, 100),
		logger:   logger,
	}
}

func (d *DiscordAdapter) Name() string {
	return "discord"
}

func (d *DiscordAdapter) IsEnabled() bool {
	return d.token != ""
}

func (d *DiscordAdapter) Start(ctx context.Context) error {
	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return err
	}
	d.session = session

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author.Bot {
			return
		}
		if m.GuildID != "" && !isMentioned(s.State.User.ID, m.Mentions) {
			return
		}

		d.incoming <- &channel.Message{
			ID:       m.ID,
			Channel:  "discord",
			UserID:   m.Author.ID,
			UserName: m.Author.Username,
			Content:  m.Content,
			Metadata: map[string]string{
				"guild_id":   m.GuildID,
				"channel_id": m.ChannelID,
			},
			Timestamp: m.Timestamp.Unix(),
		}
	})

	if err := session.Open(); err != nil {
		return err
	}
	d.logger.Info("discord connected")

	go func() {
		<-ctx.Done()
		session.Close()
	}()
	return nil
}

func (d *DiscordAdapter) Stop() error {
	if d.session != nil {
		d.session.Close()
	}
	close(d.incoming)
	return nil
}

// SendMessage replies in the user's DM channel regardless of where the
// consultation started.
func (d *DiscordAdapter) SendMessage(userID string, resp *channel.Response) error {
	dm, err := d.session.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	_, err = d.session.ChannelMessageSend(dm.ID, resp.Content)
	return err
}

func (d *DiscordAdapter) Incoming() <-chan *channel.Message {
	return d.incoming
}

func isMentioned(botID string, mentions []*discordgo.User) bool {
	for _, mention := range mentions {
		if mention.ID == botID {
			return true
		}
	}
	return false
}
