package compose

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/smith3v/tg-study-assistant/pkg/store"
)

const (
	Welcome = "Hi! 🤖👋🤖 I am your personal productivity assistant, here to make your tasks easier and more organized. " +
		"If you'd like to explore all the commands and features I offer, simply type /help."

	Help = "Here are the commands you can use, organized by category:\n\n" +
		"📘 General Commands:\n" +
		"/start - Start a conversation and initialize settings\n" +
		"/help - Show this list of available commands\n" +
		"/clear_data - Clear all your saved data, including notes and flashcards\n\n" +
		"📝 Notes Management:\n" +
		"/note <text> - Save a note\n" +
		"/shownotes - Display all saved notes\n" +
		"/delete_note <index> - Delete a specific note by its index\n\n" +
		"🌍 Language Learning Mode:\n" +
		"/language_mode <level> <topic> - Switch to Italian language learning mode\n" +
		"  - Example: /language_mode beginner travel\n" +
		"/exit_language_mode - Exit Italian language learning mode and return to normal mode\n\n" +
		"📚 Flashcard Management:\n" +
		"/add_flashcard <Italian> <English> - Add a new flashcard for Italian to English translation\n" +
		"/flashcards_study <number> - Study a specific number of random flashcards\n" +
		"/cancel_flashcards_study - Stop the current study session\n" +
		"/show_flashcards - Show all your saved flashcards\n" +
		"/delete_flashcard <Italian word> - Delete a specific flashcard by its Italian word\n" +
		"/export_flashcards - Download your flashcards as a CSV file\n\n" +
		"Send me a CSV file with Italian,English rows to import flashcards."

	ClearPrompt = "⚠️ Are you sure you want to delete all your data? This action cannot be undone.\n" +
		"This will clear your notes, flashcards, settings and conversation history.\n\n" +
		"Please type 'YES' to confirm or 'NO' to cancel."
	ClearDone     = "✅ All your data has been cleared."
	ClearCanceled = "❌ Data clearing operation canceled."
	ClearReprompt = "⚠️ Invalid response. Please type 'YES' to confirm or 'NO' to cancel."

	NoteUsage       = "Please provide some text after /note to save it."
	NoNotes         = "You have no notes saved."
	NoNotesToDelete = "You have no notes to delete."
	DeleteNoteUsage = "Please provide the index of the note to delete. For example: /delete_note 1"

	LanguageUsage  = "Please specify a level and a topic. e.g.: /language_mode beginner travel"
	InvalidLevel   = "Level must be one of: beginner, intermediate, advanced."
	AlreadyNormal  = "You are already in the normal assistant mode!"
	ExitedLanguage = "You've successfully exited language learning mode. Welcome back to normal assistant mode! 😊 Let me know how I can assist you next."

	AddFlashcardUsage    = "Usage: /add_flashcard <Italian> <English>"
	DeleteFlashcardUsage = "Usage: /delete_flashcard <Italian word>"
	NoFlashcards         = "You have no flashcards saved. Add some using /add_flashcard <Italian> <English>."
	NoFlashcardsToStudy  = "No flashcards available. Add flashcards using /add_flashcard."

	DrillActive     = "You already have an active flashcard study session. Use /cancel_flashcards_study to end it."
	DrillCountUsage = "Please provide a valid number. Example: /flashcards_study 10"
	DrillCanceled   = "Flashcard study session canceled."
	NoDrillToCancel = "No active flashcard study session to cancel."
	AnswerCorrect   = "Correct! 🎉"

	NotCSV               = "The uploaded file is not a CSV. Please upload a valid CSV file."
	FileTooLarge         = "The uploaded file is too large."
	DownloadFailed       = "Failed to download the file. Please try again."
	ImportMalformed      = "Failed to read the CSV file. Please ensure it has Italian,English rows."
	ImportEmpty          = "No valid flashcards found to import."
	NoFlashcardsToExport = "You have no flashcards to export."
	ExportFailed         = "Failed to export your flashcards. Please try again later."

	AssistantUnavailable = "Sorry, the assistant is unavailable right now. Please try again later."
	NotSaved             = "⚠️ Something went wrong and your change was not saved. Please try again."
	EmptyMessage         = "Please send some text."
	UnknownCommand       = "Sorry, I don't know that command. Type /help to see what I can do."
)

func NoteSaved(count int) string {
	return fmt.Sprintf("Note saved! You now have %d notes.", count)
}

func Notes(notes []string) string {
	if len(notes) == 0 {
		return NoNotes
	}
	lines := make([]string, len(notes))
	for i, note := range notes {
		lines[i] = fmt.Sprintf("%d. %s", i+1, note)
	}
	return "Here are your saved notes:\n" + strings.Join(lines, "\n")
}

func NoteDeleted(note string) string {
	return "Deleted note: " + note
}

func InvalidNoteIndex(count int) string {
	return fmt.Sprintf("Invalid index. Please provide a number between 1 and %d.", count)
}

// LanguageMode is the banner shown when tutoring starts.
func LanguageMode(settings store.Settings) string {
	return "🌟 Language learning mode activated! 🌟\n" +
		"Level: " + capitalize(string(settings.Level)) + "\n" +
		"Topic: " + capitalize(settings.Topic) + "\n\n" +
		"Here's how it works:\n" +
		"- Send me a sentence in Italian related to this topic, and I'll correct it if there are any mistakes. " +
		"Then, I'll continue the conversation in a friendly and engaging way!\n" +
		"Let's get started! 😊"
}

func FlashcardAdded(card store.Card) string {
	return fmt.Sprintf("Flashcard added: %s -> %s", card.Term, card.Definition)
}

func FlashcardUpdated(card store.Card) string {
	return fmt.Sprintf("Flashcard updated: %s -> %s", card.Term, card.Definition)
}

func Flashcards(cards []store.Card) string {
	if len(cards) == 0 {
		return NoFlashcards
	}
	lines := make([]string, len(cards))
	for i, card := range cards {
		lines[i] = fmt.Sprintf("%d. %s -> %s", i+1, card.Term, card.Definition)
	}
	return "Here are your flashcards:\n" + strings.Join(lines, "\n")
}

func FlashcardDeleted(term string) string {
	return fmt.Sprintf("Flashcard '%s' has been deleted.", term)
}

func FlashcardNotFound(term string) string {
	return fmt.Sprintf("Flashcard '%s' not found.", term)
}

// DrillPrompt asks for the card at 1-based position out of total.
func DrillPrompt(position, total int, term string) string {
	return fmt.Sprintf("Flashcard %d/%d: What does '%s' mean?", position, total, term)
}

func AnswerWrong(definition string) string {
	return fmt.Sprintf("Wrong! The correct answer is '%s'.", definition)
}

func ImportSummary(added, updated, skipped int) string {
	return fmt.Sprintf("Imported %d new flashcards, updated %d flashcards, skipped %d rows.", added, updated, skipped)
}

func ExportCaption(count int) string {
	return fmt.Sprintf("Your flashcards export (%d cards).", count)
}

func DrillSummary(correct, total int) string {
	return fmt.Sprintf("Study session complete! You got %d/%d correct.", correct, total)
}

// DrillExpired is sent when an idle drill is dropped.
func DrillExpired(correct, answered, total int) string {
	return fmt.Sprintf("Your flashcard study session timed out after %d of %d cards. You got %d/%d correct.",
		answered, total, correct, answered)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
