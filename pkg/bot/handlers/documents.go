package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-study-assistant/pkg/bot/compose"
	"github.com/smith3v/tg-study-assistant/pkg/bot/importexport"
	"github.com/smith3v/tg-study-assistant/pkg/logger"
)

const maxImportFileSize = 1 << 20

// HandleDocument imports flashcards from an uploaded CSV file.
func (h *Handler) HandleDocument(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) || update.Message.Document == nil {
		logger.Error("invalid update in HandleDocument")
		return
	}
	doc := update.Message.Document
	chatID := update.Message.Chat.ID
	logger.Info("Uploading file", "file_name", doc.FileName, "user_id", update.Message.From.ID)

	if !strings.HasSuffix(strings.ToLower(doc.FileName), ".csv") {
		sendReply(ctx, b, chatID, compose.NotCSV)
		return
	}
	if doc.FileSize > maxImportFileSize {
		sendReply(ctx, b, chatID, compose.FileTooLarge)
		return
	}

	data, err := h.download(ctx, b, doc.FileID)
	if err != nil {
		logger.Error("failed to download file", "file_id", doc.FileID, "error", err)
		sendReply(ctx, b, chatID, compose.DownloadFailed)
		return
	}
	sendReply(ctx, b, chatID, h.dispatcher.ImportFlashcards(ctx, update.Message.From.ID, data))
}

// HandleExport sends the user's flashcards as a CSV document.
func (h *Handler) HandleExport(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleExport")
		return
	}
	chatID := update.Message.Chat.ID
	data, _, reply := h.dispatcher.ExportFlashcards(ctx, update.Message.From.ID)
	if data == nil {
		sendReply(ctx, b, chatID, reply)
		return
	}

	_, err := b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: importexport.ExportFilename(time.Now()),
			Data:     bytes.NewReader(data),
		},
		Caption: reply,
	})
	if err != nil {
		logger.Error("failed to send export document", "user_id", update.Message.From.ID, "error", err)
		sendReply(ctx, b, chatID, compose.ExportFailed)
	}
}

func (h *Handler) download(ctx context.Context, b *bot.Bot, fileID string) ([]byte, error) {
	file, err := b.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.FileDownloadLink(file), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImportFileSize+1))
}
