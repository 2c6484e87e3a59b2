package handler

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `🩺 Health records import bot

Send an .xlsx file to import yearly health records.
Send it with the caption "employees" to import the employee directory instead.

You will get a preview with the rows that failed validation, then press
✅ Import to save the valid rows or ❌ Cancel to discard the upload.

Commands:
/template - sample health-record workbook
/template_employees - sample employee workbook
/help - this message`

func (h *Handler) handleCommand(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	switch message.Command() {
	case "start", "help":
		h.sendHelpMessage(chatID)
	case "template":
		h.sendTemplate(chatID, "health_records_template.xlsx", h.records.Template)
	case "template_employees":
		h.sendTemplate(chatID, "employees_template.xlsx", h.employees.Template)
	default:
		h.reply(chatID, "❌ Unknown command. Use /help for the list of commands.")
	}
}

func (h *Handler) sendHelpMessage(chatID int64) {
	h.reply(chatID, helpText)
}

func (h *Handler) sendTemplate(chatID int64, name string, render func() ([]byte, error)) {
	data, err := render()
	if err != nil {
		h.logger.WithError(err).Error("Failed to render template")
		h.reply(chatID, "❌ Could not build the template: "+err.Error())
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	if _, err := h.bot.Send(doc); err != nil {
		h.logger.WithError(err).Error("Failed to send template")
	}
}
