package store

// Document is the complete persisted state: four collections keyed by user id.
type Document struct {
	ConversationContext map[string][]Turn   `json:"conversation_context"`
	UserNotes           map[string][]string `json:"user_notes"`
	UserSettings        map[string]Settings `json:"user_settings"`
	Flashcards          map[string]*Deck    `json:"flashcards"`
}

func NewDocument() *Document {
	doc := &Document{}
	doc.ensure()
	return doc
}

// ensure replaces missing collections with empty ones, so documents written
// by older versions or by hand still load.
func (d *Document) ensure() {
	if d.ConversationContext == nil {
		d.ConversationContext = make(map[string][]Turn)
	}
	if d.UserNotes == nil {
		d.UserNotes = make(map[string][]string)
	}
	if d.UserSettings == nil {
		d.UserSettings = make(map[string]Settings)
	}
	if d.Flashcards == nil {
		d.Flashcards = make(map[string]*Deck)
	}
	for user, deck := range d.Flashcards {
		if deck == nil {
			d.Flashcards[user] = &Deck{}
		}
	}
}

func (d *Document) Clone() *Document {
	out := NewDocument()
	if d == nil {
		return out
	}
	for user, turns := range d.ConversationContext {
		copied := make([]Turn, len(turns))
		for i, turn := range turns {
			copied[i] = turn.clone()
		}
		out.ConversationContext[user] = copied
	}
	for user, notes := range d.UserNotes {
		out.UserNotes[user] = append(make([]string, 0, len(notes)), notes...)
	}
	for user, settings := range d.UserSettings {
		out.UserSettings[user] = settings
	}
	for user, deck := range d.Flashcards {
		out.Flashcards[user] = deck.Clone()
	}
	return out
}

func (d *Document) removeUser(userID string) {
	delete(d.ConversationContext, userID)
	delete(d.UserNotes, userID)
	delete(d.UserSettings, userID)
	delete(d.Flashcards, userID)
}
