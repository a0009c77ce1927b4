package dispatch

import (
	"strings"

	"github.com/smith3v/tg-study-assistant/pkg/bot/compose"
	"github.com/smith3v/tg-study-assistant/pkg/logger"
	"github.com/smith3v/tg-study-assistant/pkg/store"
)

// routeConfirmation answers a pending clear-data prompt. Only the
// confirming user's data is removed.
func (d *Dispatcher) routeConfirmation(c *call) (string, bool) {
	if !d.sessions.AwaitingConfirmation(c.userID) {
		return "", false
	}
	switch strings.ToUpper(strings.TrimSpace(c.text)) {
	case "YES":
		err := d.store.ClearUser(c.ctx, c.key)
		d.sessions.Forget(c.userID)
		if err != nil {
			return notSaved("clear user data", c, err), true
		}
		logger.Info("user data cleared", "user_id", c.userID)
		return compose.ClearDone, true
	case "NO":
		d.sessions.EndConfirmation(c.userID)
		return compose.ClearCanceled, true
	default:
		return compose.ClearReprompt, true
	}
}

// routeDrill grades the text as an answer to the current flashcard.
func (d *Dispatcher) routeDrill(c *call) (string, bool) {
	if !d.sessions.DrillActive(c.userID) {
		return "", false
	}
	result, err := d.sessions.Answer(c.userID, c.text)
	if err != nil {
		// The drill ended between the check and the answer.
		return "", false
	}

	replies := make([]string, 0, 3)
	if result.Correct {
		replies = append(replies, compose.AnswerCorrect)
	} else {
		replies = append(replies, compose.AnswerWrong(result.Card.Definition))
	}

	turn := store.FlashcardTurn(result.Card.Term, result.Card.Definition, result.Answer, result.Correct)
	if err := d.store.AppendTurn(c.ctx, c.key, turn); err != nil {
		replies = append(replies, notSaved("record flashcard answer", c, err))
	}

	if result.Summary != nil {
		replies = append(replies, compose.DrillSummary(result.Summary.Correct, result.Summary.Total))
	} else {
		replies = append(replies, compose.DrillPrompt(result.Next.Position, result.Next.Total, result.Next.Term))
	}
	return strings.Join(replies, "\n\n"), true
}

// routeConversation sends the text to the completion engine, either as a
// tutoring exercise or as a question with the full history.
func (d *Dispatcher) routeConversation(c *call) (string, bool) {
	if strings.TrimSpace(c.text) == "" {
		return compose.EmptyMessage, true
	}
	settings, err := d.store.Settings(c.ctx, c.key)
	if readErr("load settings", c, err) != nil {
		return compose.NotSaved, true
	}

	var prompt string
	if settings.Mode == store.ModeLanguageLearning {
		prompt, err = compose.TutorPrompt(settings.Level, settings.Topic, c.text)
	} else {
		history, histErr := d.store.History(c.ctx, c.key)
		if readErr("load history", c, histErr) != nil {
			return compose.NotSaved, true
		}
		prompt, err = compose.AssistantPrompt(history, c.text)
	}
	if err != nil {
		logger.Error("failed to build prompt", "user_id", c.userID, "error", err)
		return compose.AssistantUnavailable, true
	}

	reply, err := d.completer.Complete(c.ctx, prompt)
	if err != nil {
		logger.Error("completion failed", "user_id", c.userID, "mode", settings.Mode, "error", err)
		return compose.AssistantUnavailable, true
	}

	if err := d.store.AppendTurn(c.ctx, c.key, store.ChatTurn(c.text, reply)); err != nil {
		return reply + "\n\n" + notSaved("record conversation turn", c, err), true
	}
	return reply, true
}
