package store

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/smith3v/tg-study-assistant/pkg/logger"
)

type memBackend struct {
	mu     sync.Mutex
	data   []byte
	writes int
	fail   error
}

func (m *memBackend) Read(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...), nil
}

func (m *memBackend) Write(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.writes++
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *memBackend) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func newTestStore(t *testing.T) (*Store, *memBackend) {
	t.Helper()
	logger.SetLogLevel(logger.ERROR)
	t.Cleanup(func() { logger.SetLogLevel(logger.INFO) })
	backend := &memBackend{}
	s := New(backend)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	return s, backend
}

func TestLoadWithoutPriorStateStartsEmpty(t *testing.T) {
	s, backend := newTestStore(t)

	doc := s.Snapshot()
	if doc.ConversationContext == nil || doc.UserNotes == nil || doc.UserSettings == nil || doc.Flashcards == nil {
		t.Fatalf("expected all collections to be initialized, got %+v", doc)
	}
	if len(doc.UserSettings) != 0 || len(doc.UserNotes) != 0 {
		t.Fatalf("expected empty collections, got %+v", doc)
	}
	if backend.writeCount() != 0 {
		t.Fatalf("expected Load not to write, got %d writes", backend.writeCount())
	}
}

func TestGettersPersistInitializationOnce(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()

	settings, err := s.Settings(ctx, "42")
	if err != nil {
		t.Fatalf("Settings returned error: %v", err)
	}
	if settings != DefaultSettings() {
		t.Fatalf("expected default settings, got %+v", settings)
	}
	if backend.writeCount() != 1 {
		t.Fatalf("expected first read to persist defaults, got %d writes", backend.writeCount())
	}

	if _, err := s.Settings(ctx, "42"); err != nil {
		t.Fatalf("Settings returned error: %v", err)
	}
	if backend.writeCount() != 1 {
		t.Fatalf("expected repeated read not to write, got %d writes", backend.writeCount())
	}

	if _, err := s.Notes(ctx, "42"); err != nil {
		t.Fatalf("Notes returned error: %v", err)
	}
	if _, err := s.Flashcards(ctx, "42"); err != nil {
		t.Fatalf("Flashcards returned error: %v", err)
	}
	if _, err := s.History(ctx, "42"); err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if backend.writeCount() != 4 {
		t.Fatalf("expected one write per initialized collection, got %d", backend.writeCount())
	}

	reloaded := New(backend)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	doc := reloaded.Snapshot()
	if _, ok := doc.UserNotes["42"]; !ok {
		t.Fatalf("expected initialized notes to be persisted")
	}
	if _, ok := doc.Flashcards["42"]; !ok {
		t.Fatalf("expected initialized flashcards to be persisted")
	}
}

func TestDeleteNoteUsesDisplayedPosition(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, note := range []string{"buy milk", "call mom", "water plants"} {
		if _, err := s.AddNote(ctx, "7", note); err != nil {
			t.Fatalf("AddNote returned error: %v", err)
		}
	}

	deleted, err := s.DeleteNote(ctx, "7", 2)
	if err != nil {
		t.Fatalf("DeleteNote returned error: %v", err)
	}
	if deleted != "call mom" {
		t.Fatalf("expected to delete the second note, got %q", deleted)
	}
	notes, _ := s.Notes(ctx, "7")
	if !reflect.DeepEqual(notes, []string{"buy milk", "water plants"}) {
		t.Fatalf("unexpected notes after delete: %v", notes)
	}

	for _, position := range []int{0, 3, -1} {
		if _, err := s.DeleteNote(ctx, "7", position); !errors.Is(err, ErrNoteNotFound) {
			t.Fatalf("position %d: expected ErrNoteNotFound, got %v", position, err)
		}
	}
	notes, _ = s.Notes(ctx, "7")
	if len(notes) != 2 {
		t.Fatalf("expected failed deletes to leave notes unchanged, got %v", notes)
	}
}

func TestAddNoteRejectsBlankText(t *testing.T) {
	s, backend := newTestStore(t)

	if _, err := s.AddNote(context.Background(), "7", "   "); !errors.Is(err, ErrEmptyNote) {
		t.Fatalf("expected ErrEmptyNote, got %v", err)
	}
	if backend.writeCount() != 0 {
		t.Fatalf("expected no write for a rejected note")
	}
}

func TestPutFlashcardOverwritesExistingTerm(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.PutFlashcard(ctx, "1", "Gatto", "Cat"); err != nil {
		t.Fatalf("PutFlashcard returned error: %v", err)
	}
	if _, err := s.PutFlashcard(ctx, "1", "cane", "dog"); err != nil {
		t.Fatalf("PutFlashcard returned error: %v", err)
	}
	replaced, err := s.PutFlashcard(ctx, "1", "GATTO ", "kitten")
	if err != nil {
		t.Fatalf("PutFlashcard returned error: %v", err)
	}
	if !replaced {
		t.Fatalf("expected existing term to be replaced")
	}

	cards, _ := s.Flashcards(ctx, "1")
	want := []Card{{Term: "gatto", Definition: "kitten"}, {Term: "cane", Definition: "dog"}}
	if !reflect.DeepEqual(cards, want) {
		t.Fatalf("unexpected cards: %+v", cards)
	}
}

func TestDeleteFlashcard(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.PutFlashcard(ctx, "1", "gatto", "cat"); err != nil {
		t.Fatalf("PutFlashcard returned error: %v", err)
	}
	if err := s.DeleteFlashcard(ctx, "1", "Gatto"); err != nil {
		t.Fatalf("DeleteFlashcard returned error: %v", err)
	}
	if err := s.DeleteFlashcard(ctx, "1", "gatto"); !errors.Is(err, ErrFlashcardNotFound) {
		t.Fatalf("expected ErrFlashcardNotFound on second delete, got %v", err)
	}
	if err := s.DeleteFlashcard(ctx, "unknown", "gatto"); !errors.Is(err, ErrFlashcardNotFound) {
		t.Fatalf("expected ErrFlashcardNotFound for unseen user, got %v", err)
	}
}

func TestFailedPersistLeavesStateUnchanged(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AddNote(ctx, "9", "kept"); err != nil {
		t.Fatalf("AddNote returned error: %v", err)
	}
	backend.fail = errors.New("disk full")

	_, err := s.AddNote(ctx, "9", "lost")
	if !errors.Is(err, ErrNotPersisted) {
		t.Fatalf("expected ErrNotPersisted, got %v", err)
	}
	if err := s.UpdateSettings(ctx, "9", LanguageLearning(LevelAdvanced, "art")); !errors.Is(err, ErrNotPersisted) {
		t.Fatalf("expected ErrNotPersisted from UpdateSettings, got %v", err)
	}

	backend.fail = nil
	notes, err := s.Notes(ctx, "9")
	if err != nil {
		t.Fatalf("Notes returned error: %v", err)
	}
	if !reflect.DeepEqual(notes, []string{"kept"}) {
		t.Fatalf("expected unpersisted note to be dropped, got %v", notes)
	}
	settings, _ := s.Settings(ctx, "9")
	if settings != DefaultSettings() {
		t.Fatalf("expected unpersisted settings to be dropped, got %+v", settings)
	}
}

func TestGetterReturnsDefaultsWhenInitializationFailsToPersist(t *testing.T) {
	s, backend := newTestStore(t)
	backend.fail = errors.New("read-only filesystem")

	settings, err := s.Settings(context.Background(), "5")
	if !errors.Is(err, ErrNotPersisted) {
		t.Fatalf("expected ErrNotPersisted, got %v", err)
	}
	if settings != DefaultSettings() {
		t.Fatalf("expected defaults even when persisting fails, got %+v", settings)
	}
	if _, ok := s.Snapshot().UserSettings["5"]; ok {
		t.Fatalf("expected unpersisted initialization to stay out of the document")
	}
}

func TestClearUserOnlyTouchesThatUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, user := range []string{"a", "b"} {
		if _, err := s.AddNote(ctx, user, "note"); err != nil {
			t.Fatalf("AddNote returned error: %v", err)
		}
		if _, err := s.PutFlashcard(ctx, user, "uno", "one"); err != nil {
			t.Fatalf("PutFlashcard returned error: %v", err)
		}
		if err := s.AppendTurn(ctx, user, ChatTurn("hi", "hello")); err != nil {
			t.Fatalf("AppendTurn returned error: %v", err)
		}
		if err := s.UpdateSettings(ctx, user, LanguageLearning(LevelIntermediate, "food")); err != nil {
			t.Fatalf("UpdateSettings returned error: %v", err)
		}
	}

	if err := s.ClearUser(ctx, "a"); err != nil {
		t.Fatalf("ClearUser returned error: %v", err)
	}
	doc := s.Snapshot()
	if _, ok := doc.UserNotes["a"]; ok {
		t.Fatalf("expected user a notes to be removed")
	}
	if _, ok := doc.UserSettings["a"]; ok {
		t.Fatalf("expected user a settings to be removed")
	}
	if len(doc.UserNotes["b"]) != 1 || doc.Flashcards["b"].Len() != 1 || len(doc.ConversationContext["b"]) != 1 {
		t.Fatalf("expected user b data to survive, got %+v", doc)
	}
}

func TestClearAllIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AddNote(ctx, "a", "note"); err != nil {
		t.Fatalf("AddNote returned error: %v", err)
	}
	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("first ClearAll returned error: %v", err)
	}
	first := s.Snapshot()
	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("second ClearAll returned error: %v", err)
	}
	second := s.Snapshot()

	if !reflect.DeepEqual(first, second) || !reflect.DeepEqual(first, NewDocument()) {
		t.Fatalf("expected both clears to yield the empty document, got %+v and %+v", first, second)
	}
}

func TestRoundTripPersistence(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()

	steps := []func() error{
		func() error { _, err := s.AddNote(ctx, "1", "first note"); return err },
		func() error { _, err := s.AddNote(ctx, "1", "second note"); return err },
		func() error { _, err := s.DeleteNote(ctx, "1", 1); return err },
		func() error { _, err := s.PutFlashcard(ctx, "1", "gatto", "cat"); return err },
		func() error { _, err := s.PutFlashcard(ctx, "1", "cane", "dog"); return err },
		func() error { _, err := s.PutFlashcard(ctx, "1", "acqua", "water"); return err },
		func() error { return s.DeleteFlashcard(ctx, "1", "cane") },
		func() error { return s.UpdateSettings(ctx, "1", LanguageLearning(LevelAdvanced, "Travel Plans")) },
		func() error { return s.AppendTurn(ctx, "1", ChatTurn("ciao", "ciao!")) },
		func() error { return s.AppendTurn(ctx, "1", FlashcardTurn("gatto", "cat", "cat", true)) },
		func() error { return s.AppendTurn(ctx, "1", FlashcardTurn("acqua", "water", "fire", false)) },
		func() error { _, err := s.Settings(ctx, "2"); return err },
		func() error { _, err := s.History(ctx, "2"); return err },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
	}

	reloaded := New(backend)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !reflect.DeepEqual(s.Snapshot(), reloaded.Snapshot()) {
		t.Fatalf("reloaded document differs:\nbefore: %+v\nafter:  %+v", s.Snapshot(), reloaded.Snapshot())
	}
	cards, _ := reloaded.Flashcards(ctx, "1")
	if !reflect.DeepEqual(cards, []Card{{Term: "gatto", Definition: "cat"}, {Term: "acqua", Definition: "water"}}) {
		t.Fatalf("expected flashcard order to survive reload, got %+v", cards)
	}
}

func TestDecodeToleratesMissingCollections(t *testing.T) {
	doc, err := Decode([]byte(`{"user_notes": {"1": ["a"]}, "flashcards": {"1": null}}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if doc.ConversationContext == nil || doc.UserSettings == nil {
		t.Fatalf("expected missing collections to be created")
	}
	if doc.Flashcards["1"] == nil || doc.Flashcards["1"].Len() != 0 {
		t.Fatalf("expected null deck to become empty deck")
	}
}

func TestDecodeOriginalFormat(t *testing.T) {
	data := []byte(`{
   "conversation_context": {
      "123": [
         {"user": "hello", "ai": "hi there"},
         {"type": "flashcard", "flashcard": {"gatto": "cat"}, "user_response": "dog", "correct": false}
      ]
   },
   "user_notes": {"123": ["milk"]},
   "user_settings": {"123": {"mode": "language_learning", "level": "intermediate", "topic": "food"}},
   "flashcards": {"123": {"gatto": "cat", "cane": "dog"}}
}`)
	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	turns := doc.ConversationContext["123"]
	if len(turns) != 2 || turns[0].User != "hello" || !turns[1].IsFlashcard() || turns[1].WasCorrect() {
		t.Fatalf("unexpected turns: %+v", turns)
	}
	if term, def := turns[1].Card(); term != "gatto" || def != "cat" {
		t.Fatalf("unexpected flashcard turn card %q=%q", term, def)
	}
	if doc.UserSettings["123"] != (Settings{Mode: ModeLanguageLearning, Level: LevelIntermediate, Topic: "food"}) {
		t.Fatalf("unexpected settings: %+v", doc.UserSettings["123"])
	}
	if cards := doc.Flashcards["123"].Cards(); len(cards) != 2 || cards[0].Term != "gatto" {
		t.Fatalf("unexpected deck: %+v", cards)
	}
}

func TestImportFlashcardsPersistsOnce(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()
	if _, err := s.PutFlashcard(ctx, "7", "gatto", "cat"); err != nil {
		t.Fatalf("PutFlashcard returned error: %v", err)
	}
	before := backend.writeCount()

	added, updated, err := s.ImportFlashcards(ctx, "7", []Card{
		{Term: "Cane", Definition: "Dog"},
		{Term: "gatto", Definition: "house cat"},
		{Term: " ", Definition: "blank"},
	})
	if err != nil {
		t.Fatalf("ImportFlashcards returned error: %v", err)
	}
	if added != 1 || updated != 1 {
		t.Fatalf("expected 1 added and 1 updated, got %d and %d", added, updated)
	}
	if backend.writeCount() != before+1 {
		t.Fatalf("expected a single write, got %d", backend.writeCount()-before)
	}
	cards, _ := s.Flashcards(ctx, "7")
	want := []Card{{Term: "gatto", Definition: "house cat"}, {Term: "cane", Definition: "dog"}}
	if !reflect.DeepEqual(cards, want) {
		t.Fatalf("unexpected deck %+v", cards)
	}
}

func TestImportFlashcardsRollsBackOnPersistFailure(t *testing.T) {
	s, backend := newTestStore(t)
	backend.fail = errors.New("disk full")

	_, _, err := s.ImportFlashcards(context.Background(), "7", []Card{{Term: "gatto", Definition: "cat"}})
	if !errors.Is(err, ErrNotPersisted) {
		t.Fatalf("expected ErrNotPersisted, got %v", err)
	}
	backend.fail = nil
	if cards, _ := s.Flashcards(context.Background(), "7"); len(cards) != 0 {
		t.Fatalf("failed import must not be applied, got %+v", cards)
	}
}
