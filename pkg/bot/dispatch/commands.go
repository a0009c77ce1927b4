package dispatch

// Command describes one bot command for the chat menu.
type Command struct {
	Name        string
	Description string
}

// Commands lists every command the dispatcher understands, in menu order.
var Commands = []Command{
	{Name: "start", Description: "Start a conversation and initialize settings"},
	{Name: "help", Description: "Show the available commands"},
	{Name: "note", Description: "Save a note"},
	{Name: "shownotes", Description: "Display all saved notes"},
	{Name: "delete_note", Description: "Delete a note by its index"},
	{Name: "clear_data", Description: "Clear all your saved data"},
	{Name: "language_mode", Description: "Switch to Italian language learning mode"},
	{Name: "exit_language_mode", Description: "Return to normal assistant mode"},
	{Name: "add_flashcard", Description: "Add an Italian to English flashcard"},
	{Name: "flashcards_study", Description: "Study random flashcards"},
	{Name: "cancel_flashcards_study", Description: "Stop the current study session"},
	{Name: "show_flashcards", Description: "Show all your flashcards"},
	{Name: "delete_flashcard", Description: "Delete a flashcard by its Italian word"},
}

type commandFunc func(d *Dispatcher, c *call) string

func (d *Dispatcher) commandTable() map[string]commandFunc {
	return map[string]commandFunc{
		"start":                   (*Dispatcher).start,
		"help":                    (*Dispatcher).help,
		"note":                    (*Dispatcher).addNote,
		"shownotes":               (*Dispatcher).showNotes,
		"delete_note":             (*Dispatcher).deleteNote,
		"clear_data":              (*Dispatcher).clearData,
		"language_mode":           (*Dispatcher).languageMode,
		"exit_language_mode":      (*Dispatcher).exitLanguageMode,
		"add_flashcard":           (*Dispatcher).addFlashcard,
		"flashcards_study":        (*Dispatcher).startDrill,
		"cancel_flashcards_study": (*Dispatcher).cancelDrill,
		"show_flashcards":         (*Dispatcher).showFlashcards,
		"delete_flashcard":        (*Dispatcher).deleteFlashcard,
	}
}
