package dispatch

import (
	"context"
	"errors"

	"github.com/smith3v/tg-study-assistant/pkg/bot/compose"
	"github.com/smith3v/tg-study-assistant/pkg/bot/importexport"
	"github.com/smith3v/tg-study-assistant/pkg/logger"
)

// ImportFlashcards merges an uploaded CSV file into the user's deck.
func (d *Dispatcher) ImportFlashcards(ctx context.Context, userID int64, data []byte) string {
	unlock := d.locks.lock(userID)
	defer unlock()

	c := newCall(ctx, userID, 0, nil, "")
	result, err := importexport.Import(ctx, d.store, c.key, data)
	switch {
	case errors.Is(err, importexport.ErrNoCards):
		return compose.ImportEmpty
	case errors.Is(err, importexport.ErrMalformed):
		logger.Warn("failed to parse flashcards csv", "user_id", userID, "error", err)
		return compose.ImportMalformed
	case err != nil:
		return notSaved("import flashcards", c, err)
	}
	logger.Info("flashcards imported", "user_id", userID, "added", result.Added, "updated", result.Updated, "skipped", result.Skipped)
	return compose.ImportSummary(result.Added, result.Updated, result.Skipped)
}

// ExportFlashcards renders the user's deck as CSV. When there is nothing to
// send, data is nil and reply says why.
func (d *Dispatcher) ExportFlashcards(ctx context.Context, userID int64) (data []byte, count int, reply string) {
	unlock := d.locks.lock(userID)
	defer unlock()

	c := newCall(ctx, userID, 0, nil, "")
	cards, err := d.store.Flashcards(ctx, c.key)
	if readErr("load flashcards", c, err) != nil {
		return nil, 0, compose.ExportFailed
	}
	if len(cards) == 0 {
		return nil, 0, compose.NoFlashcardsToExport
	}
	data, err = importexport.BuildExportCSV(cards)
	if err != nil {
		logger.Error("failed to build export csv", "user_id", userID, "error", err)
		return nil, 0, compose.ExportFailed
	}
	return data, len(cards), compose.ExportCaption(len(cards))
}
