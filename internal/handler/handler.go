package handler

import (
	"context"
	"io"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"health-records/internal/service"
)

// Bot is the part of the Telegram client the handler talks to.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

type RecordImporter interface {
	Stage(ctx context.Context, r io.Reader) (*service.RecordPreview, error)
	Commit(ctx context.Context, batchID string) (*service.CommitResult, error)
	Cancel(ctx context.Context, batchID string) error
	Template() ([]byte, error)
}

type EmployeeImporter interface {
	Stage(ctx context.Context, r io.Reader) (*service.EmployeePreview, error)
	Commit(ctx context.Context, batchID string) (*service.CommitResult, error)
	Cancel(ctx context.Context, batchID string) error
	Template() ([]byte, error)
}

type Handler struct {
	bot        Bot
	records    RecordImporter
	employees  EmployeeImporter
	allowedIDs map[int64]bool
	logger     *logrus.Logger
}

// NewHandler builds the bot handler. With an empty allow list every chat may
// import.
func NewHandler(
	bot Bot,
	records RecordImporter,
	employees EmployeeImporter,
	allowedChatIDs []int64,
	logger *logrus.Logger,
) *Handler {
	allowed := make(map[int64]bool, len(allowedChatIDs))
	for _, id := range allowedChatIDs {
		allowed[id] = true
	}

	return &Handler{
		bot:        bot,
		records:    records,
		employees:  employees,
		allowedIDs: allowed,
		logger:     logger,
	}
}

func (h *Handler) HandleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			h.HandleUpdate(ctx, update)
		}
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		h.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}

	h.handleMessage(ctx, update.Message)
}

func (h *Handler) allowed(chatID int64) bool {
	return len(h.allowedIDs) == 0 || h.allowedIDs[chatID]
}

func (h *Handler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	h.logger.WithFields(logrus.Fields{
		"chat_id": chatID,
		"text":    message.Text,
	}).Info("Message received")

	if !h.allowed(chatID) {
		h.reply(chatID, "❌ Access denied. Ask an administrator to add this chat to the allow list.")
		return
	}

	if message.Document != nil {
		h.handleDocument(ctx, message)
		return
	}

	if message.IsCommand() {
		h.handleCommand(message)
		return
	}

	h.sendHelpMessage(chatID)
}

// handleCallbackQuery processes the Import / Cancel buttons under a preview.
func (h *Handler) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID

	defer func() {
		if _, err := h.bot.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
			h.logger.WithError(err).Warn("Failed to answer callback")
		}
	}()

	if !h.allowed(chatID) {
		h.reply(chatID, "❌ Access denied.")
		return
	}

	action, ok := parseCallback(callback.Data)
	if !ok {
		h.logger.WithField("data", callback.Data).Warn("Unknown callback")
		return
	}

	// Drop the keyboard so a batch cannot be committed twice from the same message.
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, callback.Message.MessageID, tgbotapi.NewInlineKeyboardMarkup())
	if _, err := h.bot.Request(edit); err != nil {
		h.logger.WithError(err).Warn("Failed to remove preview keyboard")
	}

	switch action.verb {
	case verbCommit:
		h.commitBatch(ctx, chatID, action)
	case verbCancel:
		h.cancelBatch(ctx, chatID, action)
	}
}

func (h *Handler) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send message")
	}
}

func isXLSX(fileName string) bool {
	return strings.HasSuffix(strings.ToLower(fileName), ".xlsx")
}
