package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-study-assistant/pkg/bot/compose"
	"github.com/smith3v/tg-study-assistant/pkg/bot/dispatch"
	"github.com/smith3v/tg-study-assistant/pkg/logger"
)

// telegramMessageLimit is the longest text Telegram accepts in one message.
const telegramMessageLimit = 4096

const exportCommand = "export_flashcards"

// Handler feeds Telegram updates to the dispatcher and sends its replies.
type Handler struct {
	dispatcher *dispatch.Dispatcher
	httpClient *http.Client
}

func New(d *dispatch.Dispatcher) *Handler {
	return &Handler{dispatcher: d, httpClient: http.DefaultClient}
}

// Register installs one handler per known command. Everything else reaches
// DefaultHandler.
func (h *Handler) Register(b *bot.Bot) {
	for _, cmd := range dispatch.Commands {
		b.RegisterHandlerMatchFunc(matchCommand(cmd.Name), h.HandleCommand)
	}
	b.RegisterHandlerMatchFunc(matchCommand(exportCommand), h.HandleExport)
}

// PublishCommands sets the command menu shown by Telegram clients.
func (h *Handler) PublishCommands(ctx context.Context, b *bot.Bot) error {
	commands := make([]models.BotCommand, 0, len(dispatch.Commands))
	for _, cmd := range dispatch.Commands {
		commands = append(commands, models.BotCommand{Command: cmd.Name, Description: cmd.Description})
	}
	commands = append(commands, models.BotCommand{Command: exportCommand, Description: "Download your flashcards as CSV"})
	_, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: commands})
	return err
}

func (h *Handler) HandleCommand(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleCommand")
		return
	}
	name, args, ok := parseCommand(update.Message.Text)
	if !ok {
		logger.Error("HandleCommand received a message without a command", "user_id", update.Message.From.ID)
		return
	}
	reply := h.dispatcher.HandleCommand(ctx, update.Message.From.ID, update.Message.Chat.ID, name, args)
	sendReply(ctx, b, update.Message.Chat.ID, reply)
}

func (h *Handler) DefaultHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("received invalid update in DefaultHandler")
		return
	}

	if update.Message.Document != nil {
		h.HandleDocument(ctx, b, update)
		return
	}

	text := update.Message.Text
	if strings.TrimSpace(text) == "" {
		sendReply(ctx, b, update.Message.Chat.ID, compose.EmptyMessage)
		return
	}
	if name, args, ok := parseCommand(text); ok {
		if name == exportCommand {
			h.HandleExport(ctx, b, update)
			return
		}
		reply := h.dispatcher.HandleCommand(ctx, update.Message.From.ID, update.Message.Chat.ID, name, args)
		sendReply(ctx, b, update.Message.Chat.ID, reply)
		return
	}

	b.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: update.Message.Chat.ID,
		Action: models.ChatActionTyping,
	})
	reply := h.dispatcher.HandleText(ctx, update.Message.From.ID, update.Message.Chat.ID, text)
	sendReply(ctx, b, update.Message.Chat.ID, reply)
}

func validMessage(update *models.Update) bool {
	return update != nil && update.Message != nil && update.Message.From != nil && update.Message.Chat.ID != 0
}

// parseCommand splits "/name@bot arg1 arg2" into a lower-case name and its
// whitespace separated arguments.
func parseCommand(text string) (string, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "", nil, false
	}
	return strings.ToLower(name), fields[1:], true
}

func matchCommand(name string) bot.MatchFunc {
	return func(update *models.Update) bool {
		if update == nil || update.Message == nil {
			return false
		}
		got, _, ok := parseCommand(update.Message.Text)
		return ok && got == name
	}
}

func sendReply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	for _, chunk := range splitMessage(text, telegramMessageLimit) {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: chunk}); err != nil {
			logger.Error("failed to send reply", "chat_id", chatID, "error", err)
			return
		}
	}
}

// splitMessage cuts text into pieces of at most limit runes, preferring to
// break at a newline.
func splitMessage(text string, limit int) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	return append(chunks, string(runes))
}
