package handler

import (
	"context"
	"errors"
	"io"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-records/internal/importer"
	"health-records/internal/models"
	"health-records/internal/service"
	"health-records/internal/testutil"
)

type fakeBot struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	files    map[string][]byte
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.sent = append(b.sent, c)
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.requests = append(b.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) DownloadFile(_ context.Context, fileID string) ([]byte, error) {
	data, ok := b.files[fileID]
	if !ok {
		return nil, errors.New("file not found")
	}
	return data, nil
}

func (b *fakeBot) texts() []string {
	var out []string
	for _, c := range b.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (b *fakeBot) lastText(t *testing.T) string {
	t.Helper()
	texts := b.texts()
	require.NotEmpty(t, texts)
	return texts[len(texts)-1]
}

type fakeRecords struct {
	preview   *service.RecordPreview
	stageErr  error
	committed []string
	cancelled []string
	commitErr error
}

func (f *fakeRecords) Stage(context.Context, io.Reader) (*service.RecordPreview, error) {
	return f.preview, f.stageErr
}

func (f *fakeRecords) Commit(_ context.Context, batchID string) (*service.CommitResult, error) {
	f.committed = append(f.committed, batchID)
	if f.commitErr != nil {
		return nil, f.commitErr
	}
	return &service.CommitResult{Created: 2, Updated: 1}, nil
}

func (f *fakeRecords) Cancel(_ context.Context, batchID string) error {
	f.cancelled = append(f.cancelled, batchID)
	return nil
}

func (f *fakeRecords) Template() ([]byte, error) { return []byte("xlsx"), nil }

type fakeEmployees struct {
	preview   *service.EmployeePreview
	committed []string
	cancelled []string
}

func (f *fakeEmployees) Stage(context.Context, io.Reader) (*service.EmployeePreview, error) {
	return f.preview, nil
}

func (f *fakeEmployees) Commit(_ context.Context, batchID string) (*service.CommitResult, error) {
	f.committed = append(f.committed, batchID)
	return &service.CommitResult{Created: 1}, nil
}

func (f *fakeEmployees) Cancel(_ context.Context, batchID string) error {
	f.cancelled = append(f.cancelled, batchID)
	return nil
}

func (f *fakeEmployees) Template() ([]byte, error) { return []byte("xlsx"), nil }

func strPtr(s string) *string { return &s }

func recordPreview() *service.RecordPreview {
	return &service.RecordPreview{
		BatchID:      "ab12cd34",
		Total:        2,
		ValidCount:   1,
		InvalidCount: 1,
		Rows: []models.StagingRow{
			{RowNumber: 2, EmployeeCode: strPtr("NV001"), IsValid: true},
			{RowNumber: 3, EmployeeCode: strPtr("NV404"), ErrorMessage: strPtr(importer.MsgEmployeeNotFound)},
		},
	}
}

func newTestHandler(allowed ...int64) (*Handler, *fakeBot, *fakeRecords, *fakeEmployees) {
	bot := &fakeBot{files: map[string][]byte{"f1": []byte("data")}}
	records := &fakeRecords{preview: recordPreview()}
	employees := &fakeEmployees{preview: &service.EmployeePreview{BatchID: "ee11ff22", Rows: []models.EmployeeStagingRow{}}}
	return NewHandler(bot, records, employees, allowed, testutil.Logger()), bot, records, employees
}

func documentUpdate(chatID int64, fileName, caption string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Document: &tgbotapi.Document{FileID: "f1", FileName: fileName},
		Caption:  caption,
	}}
}

func callbackUpdate(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func TestHandleDocument_SendsPreviewWithButtons(t *testing.T) {
	h, bot, _, _ := newTestHandler()

	h.HandleUpdate(context.Background(), documentUpdate(1, "records.xlsx", ""))

	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Contains(t, msg.Text, "ab12cd34")
	assert.Contains(t, msg.Text, "row 3 NV404: "+importer.MsgEmployeeNotFound)

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 2)
	assert.Equal(t, "commit:r:ab12cd34", *markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "cancel:r:ab12cd34", *markup.InlineKeyboard[0][1].CallbackData)
}

func TestHandleDocument_NoValidRowsOffersOnlyCancel(t *testing.T) {
	h, bot, records, _ := newTestHandler()
	records.preview.ValidCount = 0

	h.HandleUpdate(context.Background(), documentUpdate(1, "records.xlsx", ""))

	msg := bot.sent[0].(tgbotapi.MessageConfig)
	markup := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.Len(t, markup.InlineKeyboard[0], 1)
	assert.Equal(t, "cancel:r:ab12cd34", *markup.InlineKeyboard[0][0].CallbackData)
}

func TestHandleDocument_EmployeesCaption(t *testing.T) {
	h, bot, _, _ := newTestHandler()

	h.HandleUpdate(context.Background(), documentUpdate(1, "staff.xlsx", " Employees "))

	assert.Contains(t, bot.lastText(t), "Employee preview (batch ee11ff22)")
}

func TestHandleDocument_RejectsNonXLSX(t *testing.T) {
	h, bot, _, _ := newTestHandler()

	h.HandleUpdate(context.Background(), documentUpdate(1, "records.csv", ""))

	assert.Contains(t, bot.lastText(t), "Only .xlsx")
}

func TestHandleDocument_UnreadableFile(t *testing.T) {
	h, bot, records, _ := newTestHandler()
	records.stageErr = importer.ErrUnreadableFile

	h.HandleUpdate(context.Background(), documentUpdate(1, "records.xlsx", ""))

	assert.Contains(t, bot.lastText(t), "not a readable .xlsx")
}

func TestHandleMessage_AllowList(t *testing.T) {
	h, bot, records, _ := newTestHandler(42)

	h.HandleUpdate(context.Background(), documentUpdate(1, "records.xlsx", ""))

	assert.Contains(t, bot.lastText(t), "Access denied")
	assert.Empty(t, records.committed)
}

func TestHandleCallback_Commit(t *testing.T) {
	h, bot, records, employees := newTestHandler()

	h.HandleUpdate(context.Background(), callbackUpdate(1, "commit:r:ab12cd34"))

	assert.Equal(t, []string{"ab12cd34"}, records.committed)
	assert.Empty(t, employees.committed)
	assert.Contains(t, bot.lastText(t), "Created: 2")
	// keyboard removal plus the callback answer
	assert.Len(t, bot.requests, 2)
}

func TestHandleCallback_CommitNothingToImport(t *testing.T) {
	h, bot, records, _ := newTestHandler()
	records.commitErr = service.ErrNothingToImport

	h.HandleUpdate(context.Background(), callbackUpdate(1, "commit:r:ab12cd34"))

	assert.Contains(t, bot.lastText(t), "Nothing to import")
}

func TestHandleCallback_CancelEmployees(t *testing.T) {
	h, bot, _, employees := newTestHandler()

	h.HandleUpdate(context.Background(), callbackUpdate(1, "cancel:e:ee11ff22"))

	assert.Equal(t, []string{"ee11ff22"}, employees.cancelled)
	assert.Contains(t, bot.lastText(t), "cancelled")
}

func TestParseCallback(t *testing.T) {
	a, ok := parseCallback("commit:e:x1")
	require.True(t, ok)
	assert.Equal(t, callbackAction{verb: verbCommit, kind: kindEmployees, batchID: "x1"}, a)

	for _, data := range []string{"", "commit:r:", "drop:r:x1", "commit:z:x1", "commit"} {
		_, ok := parseCallback(data)
		assert.False(t, ok, data)
	}
}

func TestHandleCommand_Template(t *testing.T) {
	h, bot, _, _ := newTestHandler()

	h.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 1},
		Text:     "/template",
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 9}},
	}})

	require.Len(t, bot.sent, 1)
	doc, ok := bot.sent[0].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "health_records_template.xlsx", file.Name)
}

func TestFormatCommitResult(t *testing.T) {
	text := FormatCommitResult(&service.CommitResult{Created: 1, Updated: 2, Skipped: 3})
	assert.Contains(t, text, "Created: 1")
	assert.Contains(t, text, "Updated: 2")
	assert.Contains(t, text, "Skipped (employee no longer exists): 3")
}
