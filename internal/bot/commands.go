package bot

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/umbcsclub/eventbot/internal/domain"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, op domain.Operator) {
	chatID := msg.Chat.ID
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	switch cmd {
	case "start", "help":
		b.cmdHelp(chatID)
	case "post":
		b.cmdPost(ctx, msg, op)
	case "put":
		b.cmdPut(ctx, msg, op, args)
	case "delete":
		b.cmdDelete(ctx, msg, op, args)
	case "get":
		b.cmdGet(ctx, chatID, args)
	case "langs":
		b.cmdLangs(ctx, chatID)
	case "ics":
		b.cmdICS(ctx, chatID, args)
	case "cancel":
		b.cmdCancel(ctx, msg)
	default:
		b.send(chatID, "Unknown command. /help for the command list")
	}
}

func (b *Bot) cmdHelp(chatID int64) {
	text := `<b>Club event commands</b>

/post - create an event (reply to the form)
/put ID - update an event
/delete ID - delete an event
/get [ID] [lang] - list events, optionally one event or in another language
/langs - supported languages
/ics [lang] - download the events as a calendar file
/cancel - discard the open form

Every change is shown as a preview first and only saved after you press Confirm.
💡 Type @` + b.username + ` in any chat to look up event IDs, or @` + b.username + ` lang to look up languages.`

	b.send(chatID, text)
}

func (b *Bot) cmdPost(ctx context.Context, msg *tgbotapi.Message, op domain.Operator) {
	w := b.events.StartCreate(ctx, op)
	b.openForm(ctx, msg, w.ID, domain.FlowCreate, "", domain.Draft{})
}

func (b *Bot) cmdPut(ctx context.Context, msg *tgbotapi.Message, op domain.Operator, args string) {
	id := firstField(args)
	if id == "" {
		b.send(msg.Chat.ID, "Please provide an event ID to update: /put ID")
		return
	}
	w, err := b.events.StartUpdate(ctx, op, id)
	if err != nil {
		b.replyError(msg.Chat.ID, err, "start update")
		return
	}
	b.openForm(ctx, msg, w.ID, domain.FlowUpdate, id, w.Draft())
}

// openForm sends the form prompt and remembers which workflow a reply
// belongs to. A form the operator left open in this chat is discarded.
func (b *Bot) openForm(ctx context.Context, msg *tgbotapi.Message, workflowID string, flow domain.Flow, eventID string, d domain.Draft) {
	prompt := tgbotapi.NewMessage(msg.Chat.ID, formPrompt(flow, eventID, d, b.events.Timezone().String()))
	prompt.ParseMode = tgbotapi.ModeHTML
	prompt.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true, Selective: true}
	prompt.ReplyToMessageID = msg.MessageID

	sent, err := b.tg.Send(prompt)
	if err != nil {
		b.logger.Error("send form failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		_, _ = b.events.Cancel(ctx, workflowID)
		return
	}

	key := formKey{chatID: msg.Chat.ID, userID: msg.From.ID}
	if prev, ok := b.forms.put(key, pendingForm{workflowID: workflowID, messageID: sent.MessageID}); ok {
		_, _ = b.events.Cancel(ctx, prev.workflowID)
	}
}

func (b *Bot) cmdDelete(ctx context.Context, msg *tgbotapi.Message, op domain.Operator, args string) {
	id := firstField(args)
	if id == "" {
		b.send(msg.Chat.ID, "Please provide an event ID to delete: /delete ID")
		return
	}
	w, err := b.events.StartDelete(ctx, op, id)
	if err != nil {
		b.replyError(msg.Chat.ID, err, "start delete")
		return
	}

	text := "Are you sure you want to delete this event?\n\n" + renderPreview(w.Preview(), msg.Time().In(b.events.Timezone()))
	if err := b.SendMessageWithKeyboard(msg.Chat.ID, text, confirmKeyboard(domain.FlowDelete, w.ID)); err != nil {
		b.logger.Error("send delete preview failed", zap.Error(err))
		_, _ = b.events.Cancel(ctx, w.ID)
	}
}

func (b *Bot) cmdGet(ctx context.Context, chatID int64, args string) {
	id, lang := b.getArgs(ctx, args)

	events, lang, err := b.events.ListEvents(ctx, id, lang)
	if err != nil {
		b.replyError(chatID, err, "list events")
		return
	}
	for _, text := range renderEvents(events, lang, b.events.ReferenceLanguage()) {
		b.send(chatID, text)
	}
}

// getArgs reads "/get [id] [lang]". A lone argument that names a supported
// language is taken as the language.
func (b *Bot) getArgs(ctx context.Context, args string) (string, string) {
	fields := strings.Fields(args)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		if b.events.ResolveLanguage(ctx, fields[0]) == nil {
			return "", fields[0]
		}
		return fields[0], ""
	default:
		return fields[0], fields[1]
	}
}

func (b *Bot) cmdLangs(ctx context.Context, chatID int64) {
	langs, err := b.events.Languages(ctx)
	if err != nil {
		b.replyError(chatID, err, "list languages")
		return
	}
	b.send(chatID, renderLanguages(langs, b.events.ReferenceLanguage()))
}

func (b *Bot) cmdICS(ctx context.Context, chatID int64, args string) {
	lang := firstField(args)
	if lang == "" {
		lang = b.events.ReferenceLanguage()
	}
	if err := b.events.ResolveLanguage(ctx, lang); err != nil {
		b.replyError(chatID, err, "resolve language")
		return
	}

	var buf bytes.Buffer
	if err := b.calendar.WriteFeed(ctx, &buf, lang); err != nil {
		b.replyError(chatID, err, "export calendar")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("events-%s.ics", lang),
		Bytes: buf.Bytes(),
	})
	doc.ParseMode = tgbotapi.ModeHTML
	doc.Caption = "📆 Club events"
	if b.cfg.WebhookURL != "" {
		doc.Caption += fmt.Sprintf("\nSubscribe: %s/events.ics?lang=%s", html.EscapeString(b.cfg.WebhookURL), html.EscapeString(lang))
	}
	if _, err := b.tg.Send(doc); err != nil {
		b.logger.Error("send calendar failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) cmdCancel(ctx context.Context, msg *tgbotapi.Message) {
	f, ok := b.forms.remove(formKey{chatID: msg.Chat.ID, userID: msg.From.ID})
	if !ok {
		b.send(msg.Chat.ID, "There is no open form.")
		return
	}
	if _, err := b.events.Cancel(ctx, f.workflowID); err != nil {
		b.replyError(msg.Chat.ID, err, "cancel form")
		return
	}
	b.send(msg.Chat.ID, "🗑️ Form discarded.")
}

func firstField(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
