package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/umbcsclub/eventbot/config"
	"github.com/umbcsclub/eventbot/internal/domain"
	"github.com/umbcsclub/eventbot/internal/service"
	"github.com/umbcsclub/eventbot/internal/storage"
)

const (
	officerID = int64(42)
	chatID    = int64(-100)
)

type fakeTelegram struct {
	mu     sync.Mutex
	sent   []tgbotapi.Chattable
	nextID int
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeTelegram) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// texts returns the text of every message, edit and callback answer sent.
func (f *fakeTelegram) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		case tgbotapi.CallbackConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeTelegram) count(substr string) int {
	n := 0
	for _, t := range f.texts() {
		if strings.Contains(t, substr) {
			n++
		}
	}
	return n
}

func newTestBot(t *testing.T) (*Bot, *fakeTelegram, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	require.NoError(t, store.SetSupportedLanguages(context.Background(), []string{"en"}))

	logger := zap.NewNop()
	catalog := service.NewLanguageCatalog(store, nil, 0, logger)
	translations := service.NewTranslationService(nil, "en", time.Second, 1, logger, nil)
	events := service.NewEventService(store, catalog, translations, nil, service.EventServiceConfig{
		Timezone:          time.UTC,
		ReferenceLanguage: "en",
	}, logger, nil)

	tg := &fakeTelegram{}
	cfg := &config.Config{AllowedUserIDs: []int64{officerID}}
	b := newBot(cfg, events, service.NewCalendarService(store, nil, "en", logger), nil, logger, tg, "clubevents_bot")
	return b, tg, store
}

func command(text string) tgbotapi.Update {
	cmd, _, _ := strings.Cut(text, " ")
	msg := message(text)
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	return tgbotapi.Update{Message: msg}
}

func message(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: officerID, FirstName: "Ada", UserName: "ada"},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Date:      int(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC).Unix()),
		Text:      text,
	}
}

func reply(text string) tgbotapi.Update {
	return tgbotapi.Update{Message: message(text)}
}

func callback(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: officerID},
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}}
}

func openWorkflow(t *testing.T, b *Bot) string {
	t.Helper()
	f, ok := b.forms.get(formKey{chatID: chatID, userID: officerID})
	require.True(t, ok, "form is open")
	return f.workflowID
}

const validForm = `Title: Hackathon
Date: 03/14/2025
Time: 18:00-21:00
Location: Room 101
Description: Build stuff`

func TestHandleUpdate_RefusesNonOfficers(t *testing.T) {
	b, tg, _ := newTestBot(t)
	u := command("/post")
	u.Message.From.ID = 7

	b.handleUpdate(context.Background(), u)
	assert.Equal(t, []string{"⛔ Only club officers can manage events"}, tg.texts())
	_, ok := b.forms.get(formKey{chatID: chatID, userID: 7})
	assert.False(t, ok)
}

func TestHandleFormReply_ValidationKeepsFormOpen(t *testing.T) {
	ctx := context.Background()
	b, tg, _ := newTestBot(t)

	b.handleUpdate(ctx, command("/post"))
	id := openWorkflow(t, b)

	b.handleUpdate(ctx, reply("Date: 03/14/2025\nTime: 18:00-21:00"))
	texts := tg.texts()
	assert.Contains(t, texts[len(texts)-1], "⚠️ title is required")
	assert.Contains(t, texts[len(texts)-1], "Reply to the form again")

	assert.Equal(t, id, openWorkflow(t, b))
	w, ok := b.events.Workflow(id)
	require.True(t, ok)
	assert.Equal(t, domain.StateCollecting, w.State())

	b.handleUpdate(ctx, reply(validForm))
	_, open := b.forms.get(formKey{chatID: chatID, userID: officerID})
	assert.False(t, open)
	assert.Equal(t, domain.StatePendingConfirm, w.State())
}

func TestOpenForm_ReplacesOlderWorkflow(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBot(t)

	b.handleUpdate(ctx, command("/post"))
	first := openWorkflow(t, b)
	b.handleUpdate(ctx, command("/post"))
	second := openWorkflow(t, b)

	assert.NotEqual(t, first, second)
	_, ok := b.events.Workflow(first)
	assert.False(t, ok, "older workflow is cancelled")
	_, err := b.events.Submit(ctx, first, domain.Draft{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrGateClosed)
}

func TestHandleCallback_DuplicateConfirm(t *testing.T) {
	ctx := context.Background()
	b, tg, store := newTestBot(t)

	b.handleUpdate(ctx, command("/post"))
	id := openWorkflow(t, b)
	b.handleUpdate(ctx, reply(validForm))

	b.handleUpdate(ctx, callback(callbackData(actionConfirm, id)))
	b.handleUpdate(ctx, callback(callbackData(actionConfirm, id)))

	assert.Equal(t, 1, tg.count("Event created successfully"))
	assert.Equal(t, 1, tg.count("This action was already handled"))

	events, err := store.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestHandleCallback_CancelThenConfirm(t *testing.T) {
	ctx := context.Background()
	b, tg, store := newTestBot(t)

	b.handleUpdate(ctx, command("/post"))
	id := openWorkflow(t, b)
	b.handleUpdate(ctx, reply(validForm))

	b.handleUpdate(ctx, callback(callbackData(actionCancel, id)))
	b.handleUpdate(ctx, callback(callbackData(actionConfirm, id)))

	assert.Equal(t, 1, tg.count("🗑️ Event cancelled!"))
	assert.Equal(t, 0, tg.count("Event created successfully"))
	events, err := store.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestHandleUpdate_RecoversFromPanic(t *testing.T) {
	tg := &fakeTelegram{}
	cfg := &config.Config{AllowedUserIDs: []int64{officerID}}
	// no event service: /langs dereferences nil
	b := newBot(cfg, nil, nil, nil, nil, tg, "clubevents_bot")

	assert.NotPanics(t, func() {
		b.handleUpdate(context.Background(), command("/langs"))
	})
	assert.Equal(t, []string{userMessage(domain.ErrInternal)}, tg.texts())
}
