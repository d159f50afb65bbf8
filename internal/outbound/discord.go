package outbound

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordSender delivers messages to Discord channels via the bot REST API.
type DiscordSender struct {
	session *discordgo.Session
}

func NewDiscordSender(token string) (*DiscordSender, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordSender{session: session}, nil
}

func (s *DiscordSender) Send(_ context.Context, m Message) error {
	if _, err := s.session.ChannelMessageSend(m.ChatID, m.Content); err != nil {
		return fmt.Errorf("send discord message: %w", err)
	}
	return nil
}

func (s *DiscordSender) Close() error {
	return s.session.Close()
}
