package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/smith3v/tg-study-assistant/pkg/logger"
)

var (
	ErrNotPersisted      = errors.New("change was not persisted")
	ErrNoteNotFound      = errors.New("note not found")
	ErrFlashcardNotFound = errors.New("flashcard not found")
	ErrEmptyNote         = errors.New("note is empty")
	ErrEmptyFlashcard    = errors.New("flashcard term and definition are required")
	ErrInvalidLevel      = errors.New("invalid level")
)

// Backend is the durable medium behind a Store. Read returns nil data when
// nothing has been written yet.
type Backend interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// Store owns the bot document. Every mutation is written to the backend
// before it becomes visible; a failed write leaves the in-memory document
// unchanged and returns an error wrapping ErrNotPersisted.
type Store struct {
	mu      sync.Mutex
	backend Backend
	doc     *Document
}

func New(backend Backend) *Store {
	return &Store{backend: backend, doc: NewDocument()}
}

// Load replaces the in-memory document with the backend contents. A backend
// with no prior state yields an empty document.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.backend.Read(ctx)
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	doc, err := Decode(data)
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	if len(data) == 0 {
		logger.Info("no saved state found, starting with empty data")
	} else {
		logger.Info("loaded saved state", "users", len(doc.UserSettings), "bytes", len(data))
	}
	return nil
}

// Save writes the current document to the backend.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx, s.doc)
}

// Close releases the backend when it holds resources.
func (s *Store) Close() error {
	if closer, ok := s.backend.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Snapshot returns a deep copy of the current document.
func (s *Store) Snapshot() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

func Encode(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "   ")
}

func Decode(data []byte) (*Document, error) {
	doc := NewDocument()
	if len(strings.TrimSpace(string(data))) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	doc.ensure()
	return doc, nil
}

func (s *Store) persistLocked(ctx context.Context, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrNotPersisted, err)
	}
	if err := s.backend.Write(ctx, data); err != nil {
		return fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	return nil
}

// mutate applies fn to a copy of the document and swaps it in once the copy
// has been persisted. fn reports whether it changed anything.
func (s *Store) mutate(ctx context.Context, fn func(doc *Document) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.Clone()
	changed, err := fn(next)
	if err != nil || !changed {
		return err
	}
	if err := s.persistLocked(ctx, next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// getOrCreate runs read against the document, first creating the user's
// entry when missing reports true. Creation is persisted immediately. If that
// write fails read still sees the created entry, the document keeps its old
// state and the error is returned.
func (s *Store) getOrCreate(ctx context.Context, missing func(doc *Document) bool, create func(doc *Document), read func(doc *Document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !missing(s.doc) {
		read(s.doc)
		return nil
	}
	next := s.doc.Clone()
	create(next)
	read(next)
	if err := s.persistLocked(ctx, next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// Notes returns the user's notes in display order.
func (s *Store) Notes(ctx context.Context, userID string) ([]string, error) {
	var notes []string
	err := s.getOrCreate(ctx,
		func(doc *Document) bool { _, ok := doc.UserNotes[userID]; return !ok },
		func(doc *Document) { doc.UserNotes[userID] = []string{} },
		func(doc *Document) { notes = append([]string{}, doc.UserNotes[userID]...) },
	)
	return notes, err
}

// AddNote appends note and returns the user's note count.
func (s *Store) AddNote(ctx context.Context, userID, note string) (int, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return 0, ErrEmptyNote
	}
	var count int
	err := s.mutate(ctx, func(doc *Document) (bool, error) {
		doc.UserNotes[userID] = append(doc.UserNotes[userID], note)
		count = len(doc.UserNotes[userID])
		return true, nil
	})
	return count, err
}

// DeleteNote removes the note at the 1-based position shown by the notes
// listing and returns it.
func (s *Store) DeleteNote(ctx context.Context, userID string, position int) (string, error) {
	var deleted string
	err := s.mutate(ctx, func(doc *Document) (bool, error) {
		notes := doc.UserNotes[userID]
		if position < 1 || position > len(notes) {
			return false, fmt.Errorf("%w: position %d of %d", ErrNoteNotFound, position, len(notes))
		}
		deleted = notes[position-1]
		doc.UserNotes[userID] = append(notes[:position-1:position-1], notes[position:]...)
		return true, nil
	})
	return deleted, err
}

// Flashcards returns the user's cards in insertion order.
func (s *Store) Flashcards(ctx context.Context, userID string) ([]Card, error) {
	var cards []Card
	err := s.getOrCreate(ctx,
		func(doc *Document) bool { _, ok := doc.Flashcards[userID]; return !ok },
		func(doc *Document) { doc.Flashcards[userID] = &Deck{} },
		func(doc *Document) { cards = doc.Flashcards[userID].Cards() },
	)
	return cards, err
}

// PutFlashcard adds term or overwrites its definition.
func (s *Store) PutFlashcard(ctx context.Context, userID, term, definition string) (bool, error) {
	if NormalizeTerm(term) == "" || NormalizeTerm(definition) == "" {
		return false, ErrEmptyFlashcard
	}
	var replaced bool
	err := s.mutate(ctx, func(doc *Document) (bool, error) {
		deck, ok := doc.Flashcards[userID]
		if !ok {
			deck = &Deck{}
			doc.Flashcards[userID] = deck
		}
		replaced = deck.Put(term, definition)
		return true, nil
	})
	return replaced, err
}

func (s *Store) DeleteFlashcard(ctx context.Context, userID, term string) error {
	return s.mutate(ctx, func(doc *Document) (bool, error) {
		if !doc.Flashcards[userID].Delete(term) {
			return false, fmt.Errorf("%w: %q", ErrFlashcardNotFound, NormalizeTerm(term))
		}
		return true, nil
	})
}

// Settings returns the user's settings, creating the defaults on first use.
func (s *Store) Settings(ctx context.Context, userID string) (Settings, error) {
	var settings Settings
	err := s.getOrCreate(ctx,
		func(doc *Document) bool { _, ok := doc.UserSettings[userID]; return !ok },
		func(doc *Document) { doc.UserSettings[userID] = DefaultSettings() },
		func(doc *Document) { settings = doc.UserSettings[userID] },
	)
	return settings, err
}

func (s *Store) UpdateSettings(ctx context.Context, userID string, settings Settings) error {
	return s.mutate(ctx, func(doc *Document) (bool, error) {
		doc.UserSettings[userID] = settings
		return true, nil
	})
}

// History returns the user's turns oldest first.
func (s *Store) History(ctx context.Context, userID string) ([]Turn, error) {
	var turns []Turn
	err := s.getOrCreate(ctx,
		func(doc *Document) bool { _, ok := doc.ConversationContext[userID]; return !ok },
		func(doc *Document) { doc.ConversationContext[userID] = []Turn{} },
		func(doc *Document) {
			src := doc.ConversationContext[userID]
			turns = make([]Turn, len(src))
			for i, turn := range src {
				turns[i] = turn.clone()
			}
		},
	)
	return turns, err
}

func (s *Store) AppendTurn(ctx context.Context, userID string, turn Turn) error {
	return s.mutate(ctx, func(doc *Document) (bool, error) {
		doc.ConversationContext[userID] = append(doc.ConversationContext[userID], turn.clone())
		return true, nil
	})
}

// ClearUser removes every collection entry of one user.
func (s *Store) ClearUser(ctx context.Context, userID string) error {
	return s.mutate(ctx, func(doc *Document) (bool, error) {
		doc.removeUser(userID)
		return true, nil
	})
}

// ClearAll empties all four collections for every user.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.mutate(ctx, func(doc *Document) (bool, error) {
		*doc = *NewDocument()
		return true, nil
	})
}

// ImportFlashcards puts every card in one persisted change and reports how
// many terms were new and how many were overwritten. Blank cards are skipped.
func (s *Store) ImportFlashcards(ctx context.Context, userID string, cards []Card) (added, updated int, err error) {
	err = s.mutate(ctx, func(doc *Document) (bool, error) {
		added, updated = 0, 0
		deck, ok := doc.Flashcards[userID]
		if !ok {
			deck = &Deck{}
			doc.Flashcards[userID] = deck
		}
		for _, card := range cards {
			if NormalizeTerm(card.Term) == "" || NormalizeTerm(card.Definition) == "" {
				continue
			}
			if deck.Put(card.Term, card.Definition) {
				updated++
			} else {
				added++
			}
		}
		return added+updated > 0, nil
	})
	if err != nil {
		return 0, 0, err
	}
	return added, updated, nil
}
