package importexport

import (
	"context"
	"errors"
	"fmt"

	"github.com/smith3v/tg-study-assistant/pkg/store"
)

// FlashcardImporter stores a batch of cards for one user.
type FlashcardImporter interface {
	ImportFlashcards(ctx context.Context, userID string, cards []store.Card) (added, updated int, err error)
}

type ImportResult struct {
	Added   int
	Updated int
	Skipped int
}

var (
	ErrMalformed = errors.New("malformed flashcards csv")
	ErrNoCards   = errors.New("no valid flashcards found")
)

// Import parses a CSV upload and merges it into the user's deck.
func Import(ctx context.Context, importer FlashcardImporter, userID string, data []byte) (ImportResult, error) {
	cards, skipped, err := ParseFlashcardsCSV(data)
	if err != nil {
		return ImportResult{Skipped: skipped}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(cards) == 0 {
		return ImportResult{Skipped: skipped}, ErrNoCards
	}
	added, updated, err := importer.ImportFlashcards(ctx, userID, cards)
	if err != nil {
		return ImportResult{Skipped: skipped}, err
	}
	return ImportResult{Added: added, Updated: updated, Skipped: skipped}, nil
}
