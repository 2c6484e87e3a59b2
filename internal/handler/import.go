package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"health-records/internal/importer"
	"health-records/internal/service"
)

const (
	verbCommit = "commit"
	verbCancel = "cancel"

	kindRecords   = "r"
	kindEmployees = "e"

	employeesCaption = "employees"
)

type callbackAction struct {
	verb    string
	kind    string
	batchID string
}

func (a callbackAction) data() string {
	return a.verb + ":" + a.kind + ":" + a.batchID
}

func parseCallback(data string) (callbackAction, bool) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 || parts[2] == "" {
		return callbackAction{}, false
	}

	a := callbackAction{verb: parts[0], kind: parts[1], batchID: parts[2]}
	if a.verb != verbCommit && a.verb != verbCancel {
		return callbackAction{}, false
	}
	if a.kind != kindRecords && a.kind != kindEmployees {
		return callbackAction{}, false
	}
	return a, true
}

func (h *Handler) handleDocument(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	doc := message.Document

	if !isXLSX(doc.FileName) {
		h.reply(chatID, "❌ Only .xlsx workbooks can be imported.")
		return
	}

	data, err := h.bot.DownloadFile(ctx, doc.FileID)
	if err != nil {
		h.logger.WithError(err).WithField("file_id", doc.FileID).Error("Failed to download upload")
		h.reply(chatID, "❌ Could not download the file, please try again.")
		return
	}

	kind := kindRecords
	if strings.EqualFold(strings.TrimSpace(message.Caption), employeesCaption) {
		kind = kindEmployees
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": chatID,
		"file":    doc.FileName,
		"kind":    kind,
		"bytes":   len(data),
	}).Info("Staging uploaded workbook")

	var (
		batchID string
		summary string
		valid   int
	)
	switch kind {
	case kindEmployees:
		preview, err := h.employees.Stage(ctx, bytes.NewReader(data))
		if err != nil {
			h.replyStageError(chatID, err)
			return
		}
		batchID, summary, valid = preview.BatchID, FormatEmployeePreview(preview), preview.ValidCount
	default:
		preview, err := h.records.Stage(ctx, bytes.NewReader(data))
		if err != nil {
			h.replyStageError(chatID, err)
			return
		}
		batchID, summary, valid = preview.BatchID, FormatRecordPreview(preview), preview.ValidCount
	}

	msg := tgbotapi.NewMessage(chatID, summary)
	msg.ReplyMarkup = previewKeyboard(kind, batchID, valid > 0)
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.WithError(err).Error("Failed to send preview")
	}
}

func previewKeyboard(kind, batchID string, canCommit bool) tgbotapi.InlineKeyboardMarkup {
	cancel := tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", callbackAction{verbCancel, kind, batchID}.data())
	if !canCommit {
		return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(cancel))
	}
	commit := tgbotapi.NewInlineKeyboardButtonData("✅ Import", callbackAction{verbCommit, kind, batchID}.data())
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(commit, cancel))
}

func (h *Handler) replyStageError(chatID int64, err error) {
	switch {
	case errors.Is(err, importer.ErrEmptyUpload):
		h.reply(chatID, "❌ The file is empty.")
	case errors.Is(err, importer.ErrUnreadableFile):
		h.reply(chatID, "❌ The file is not a readable .xlsx workbook.")
	default:
		h.logger.WithError(err).Error("Failed to stage upload")
		h.reply(chatID, "❌ Could not process the file: "+err.Error())
	}
}

func (h *Handler) commitBatch(ctx context.Context, chatID int64, a callbackAction) {
	var (
		res *service.CommitResult
		err error
	)
	if a.kind == kindEmployees {
		res, err = h.employees.Commit(ctx, a.batchID)
	} else {
		res, err = h.records.Commit(ctx, a.batchID)
	}

	switch {
	case errors.Is(err, service.ErrNothingToImport):
		h.reply(chatID, "⚠️ Nothing to import: the batch has no valid rows or was already processed.")
	case err != nil:
		h.logger.WithError(err).WithField("batch_id", a.batchID).Error("Commit failed")
		h.reply(chatID, "❌ Import failed, nothing was saved. The preview is kept, you can retry.")
	default:
		h.reply(chatID, FormatCommitResult(res))
	}
}

func (h *Handler) cancelBatch(ctx context.Context, chatID int64, a callbackAction) {
	var err error
	if a.kind == kindEmployees {
		err = h.employees.Cancel(ctx, a.batchID)
	} else {
		err = h.records.Cancel(ctx, a.batchID)
	}
	if err != nil {
		h.logger.WithError(err).WithField("batch_id", a.batchID).Error("Cancel failed")
	}
	h.reply(chatID, "❌ Import cancelled.")
}

// maxListedErrors caps how many failing rows a preview message lists.
const maxListedErrors = 15

func FormatRecordPreview(p *service.RecordPreview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Health records preview (batch %s)\n\n", p.BatchID)
	writeCounts(&b, p.Total, p.ValidCount, p.InvalidCount)

	listed := 0
	for _, row := range p.Rows {
		if row.ErrorMessage == nil || listed >= maxListedErrors {
			continue
		}
		mark := "❌"
		if row.IsValid {
			mark = "⚠️"
		}
		fmt.Fprintf(&b, "%s row %d %s: %s\n", mark, row.RowNumber, deref(row.EmployeeCode), *row.ErrorMessage)
		listed++
	}
	writeMore(&b, p.Rows, listed, func(i int) bool { return p.Rows[i].ErrorMessage != nil })
	return b.String()
}

func FormatEmployeePreview(p *service.EmployeePreview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Employee preview (batch %s)\n\n", p.BatchID)
	writeCounts(&b, p.Total, p.ValidCount, p.InvalidCount)

	listed := 0
	for _, row := range p.Rows {
		if row.ErrorMessage == nil || listed >= maxListedErrors {
			continue
		}
		fmt.Fprintf(&b, "❌ row %d %s: %s\n", row.RowNumber, deref(row.Code), *row.ErrorMessage)
		listed++
	}
	writeMore(&b, p.Rows, listed, func(i int) bool { return p.Rows[i].ErrorMessage != nil })
	return b.String()
}

func writeCounts(b *strings.Builder, total, valid, invalid int) {
	fmt.Fprintf(b, "Rows: %d\n✅ Valid: %d\n❌ Invalid: %d\n", total, valid, invalid)
	if total > 0 && invalid == 0 {
		b.WriteString("All rows are valid.\n")
	}
	if valid == 0 {
		b.WriteString("Nothing can be imported from this file.\n")
	}
	b.WriteString("\n")
}

func writeMore[T any](b *strings.Builder, rows []T, listed int, hasMessage func(int) bool) {
	withMessage := 0
	for i := range rows {
		if hasMessage(i) {
			withMessage++
		}
	}
	if withMessage > listed {
		fmt.Fprintf(b, "... and %d more\n", withMessage-listed)
	}
}

func FormatCommitResult(res *service.CommitResult) string {
	text := fmt.Sprintf("✅ Import finished\n\nCreated: %d\nUpdated: %d", res.Created, res.Updated)
	if res.Skipped > 0 {
		text += fmt.Sprintf("\nSkipped (employee no longer exists): %d", res.Skipped)
	}
	return text
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
