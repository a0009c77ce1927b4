package handlers

import (
	"context"

	"github.com/go-telegram/bot"
)

// Sender delivers plain text messages outside of an update, for the drill
// sweeper.
type Sender struct {
	b *bot.Bot
}

func NewSender(b *bot.Bot) Sender {
	return Sender{b: b}
}

func (s Sender) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := s.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}
