package dispatch

import (
	"errors"
	"strconv"
	"strings"

	"github.com/smith3v/tg-study-assistant/pkg/bot/compose"
	"github.com/smith3v/tg-study-assistant/pkg/bot/session"
	"github.com/smith3v/tg-study-assistant/pkg/store"
)

func (d *Dispatcher) start(c *call) string {
	if _, err := d.store.Settings(c.ctx, c.key); readErr("initialize settings", c, err) != nil {
		return compose.NotSaved
	}
	if _, err := d.store.History(c.ctx, c.key); readErr("initialize history", c, err) != nil {
		return compose.NotSaved
	}
	return compose.Welcome
}

func (d *Dispatcher) help(*call) string {
	return compose.Help
}

func (d *Dispatcher) addNote(c *call) string {
	count, err := d.store.AddNote(c.ctx, c.key, strings.Join(c.args, " "))
	switch {
	case errors.Is(err, store.ErrEmptyNote):
		return compose.NoteUsage
	case err != nil:
		return notSaved("add note", c, err)
	}
	return compose.NoteSaved(count)
}

func (d *Dispatcher) showNotes(c *call) string {
	notes, err := d.store.Notes(c.ctx, c.key)
	if readErr("load notes", c, err) != nil {
		return compose.NotSaved
	}
	return compose.Notes(notes)
}

func (d *Dispatcher) deleteNote(c *call) string {
	notes, err := d.store.Notes(c.ctx, c.key)
	if readErr("load notes", c, err) != nil {
		return compose.NotSaved
	}
	if len(notes) == 0 {
		return compose.NoNotesToDelete
	}
	if len(c.args) != 1 || !isDigits(c.args[0]) {
		return compose.DeleteNoteUsage
	}
	position, err := strconv.Atoi(c.args[0])
	if err != nil {
		return compose.InvalidNoteIndex(len(notes))
	}
	deleted, err := d.store.DeleteNote(c.ctx, c.key, position)
	switch {
	case errors.Is(err, store.ErrNoteNotFound):
		return compose.InvalidNoteIndex(len(notes))
	case err != nil:
		return notSaved("delete note", c, err)
	}
	return compose.NoteDeleted(deleted)
}

func (d *Dispatcher) clearData(c *call) string {
	d.sessions.BeginConfirmation(c.userID)
	return compose.ClearPrompt
}

func (d *Dispatcher) languageMode(c *call) string {
	if len(c.args) < 2 {
		return compose.LanguageUsage
	}
	level, err := store.ParseLevel(c.args[0])
	if err != nil {
		return compose.InvalidLevel
	}
	settings := store.LanguageLearning(level, strings.Join(c.args[1:], " "))
	if err := d.store.UpdateSettings(c.ctx, c.key, settings); err != nil {
		return notSaved("enter language mode", c, err)
	}
	return compose.LanguageMode(settings)
}

func (d *Dispatcher) exitLanguageMode(c *call) string {
	settings, err := d.store.Settings(c.ctx, c.key)
	if readErr("load settings", c, err) != nil {
		return compose.NotSaved
	}
	if settings.Mode == store.ModeNormal {
		return compose.AlreadyNormal
	}
	if err := d.store.UpdateSettings(c.ctx, c.key, store.DefaultSettings()); err != nil {
		return notSaved("exit language mode", c, err)
	}
	return compose.ExitedLanguage
}

func (d *Dispatcher) addFlashcard(c *call) string {
	if len(c.args) < 2 {
		return compose.AddFlashcardUsage
	}
	card := store.Card{
		Term:       store.NormalizeTerm(c.args[0]),
		Definition: store.NormalizeTerm(strings.Join(c.args[1:], " ")),
	}
	replaced, err := d.store.PutFlashcard(c.ctx, c.key, card.Term, card.Definition)
	switch {
	case errors.Is(err, store.ErrEmptyFlashcard):
		return compose.AddFlashcardUsage
	case err != nil:
		return notSaved("add flashcard", c, err)
	}
	if replaced {
		return compose.FlashcardUpdated(card)
	}
	return compose.FlashcardAdded(card)
}

func (d *Dispatcher) showFlashcards(c *call) string {
	cards, err := d.store.Flashcards(c.ctx, c.key)
	if readErr("load flashcards", c, err) != nil {
		return compose.NotSaved
	}
	return compose.Flashcards(cards)
}

func (d *Dispatcher) deleteFlashcard(c *call) string {
	if len(c.args) != 1 {
		return compose.DeleteFlashcardUsage
	}
	term := store.NormalizeTerm(c.args[0])
	err := d.store.DeleteFlashcard(c.ctx, c.key, term)
	switch {
	case errors.Is(err, store.ErrFlashcardNotFound):
		return compose.FlashcardNotFound(term)
	case err != nil:
		return notSaved("delete flashcard", c, err)
	}
	return compose.FlashcardDeleted(term)
}

func (d *Dispatcher) startDrill(c *call) string {
	if d.sessions.DrillActive(c.userID) {
		return compose.DrillActive
	}
	count := d.drillCount
	if len(c.args) > 0 {
		n, err := strconv.Atoi(c.args[0])
		if err != nil {
			return compose.DrillCountUsage
		}
		count = n
	}
	cards, err := d.store.Flashcards(c.ctx, c.key)
	if readErr("load flashcards", c, err) != nil {
		return compose.NotSaved
	}

	prompt, err := d.sessions.StartDrill(c.userID, c.chatID, cards, count)
	switch {
	case errors.Is(err, session.ErrDrillActive):
		return compose.DrillActive
	case errors.Is(err, session.ErrNoFlashcards):
		return compose.NoFlashcardsToStudy
	case errors.Is(err, session.ErrInvalidCount):
		return compose.DrillCountUsage
	case err != nil:
		return notSaved("start drill", c, err)
	}
	return compose.DrillPrompt(prompt.Position, prompt.Total, prompt.Term)
}

func (d *Dispatcher) cancelDrill(c *call) string {
	if d.sessions.CancelDrill(c.userID) {
		return compose.DrillCanceled
	}
	return compose.NoDrillToCancel
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
