package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/umbcsclub/eventbot/internal/domain"
	"github.com/umbcsclub/eventbot/internal/service"
)

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer b.recoverUpdate(update)

	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.InlineQuery != nil:
		b.handleInlineQuery(ctx, update.InlineQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID

	if !b.cfg.IsAllowedUser(msg.From.ID) {
		b.logger.Info("refused non-officer", zap.Int64("user_id", msg.From.ID))
		b.send(chatID, "⛔ Only club officers can manage events")
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg, operatorFrom(msg.From))
		return
	}

	b.handleFormReply(ctx, msg)
}

// handleFormReply submits the operator's open form. Validation errors keep
// the form open so the operator can send a corrected reply.
func (b *Bot) handleFormReply(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	key := formKey{chatID: chatID, userID: msg.From.ID}

	f, ok := b.forms.get(key)
	if !ok {
		b.send(chatID, "Use /post to create an event or /help for the command list")
		return
	}

	draft, err := parseForm(msg.Text)
	if err != nil {
		b.send(chatID, userMessage(err)+"\nReply to the form again with the corrected details.")
		return
	}

	preview, err := b.events.Submit(ctx, f.workflowID, draft)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			b.send(chatID, userMessage(err)+"\nReply to the form again with the corrected details.")
			return
		}
		b.forms.remove(key)
		b.replyError(chatID, err, "submit form")
		return
	}
	b.forms.remove(key)

	text := renderPreview(preview, msg.Time().In(b.events.Timezone()))
	if err := b.SendMessageWithKeyboard(chatID, text, confirmKeyboard(preview.Flow, f.workflowID)); err != nil {
		b.logger.Error("send preview failed", zap.String("workflow_id", f.workflowID), zap.Error(err))
		_, _ = b.events.Cancel(ctx, f.workflowID)
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if !b.cfg.IsAllowedUser(callback.From.ID) {
		b.answerCallback(callback.ID, "⛔ Only club officers can manage events")
		return
	}

	action, workflowID, ok := parseCallback(callback.Data)
	if !ok || callback.Message == nil {
		b.answerCallback(callback.ID, "Unknown action")
		return
	}

	chatID := callback.Message.Chat.ID
	msgID := callback.Message.MessageID
	at := callback.Message.Time().In(b.events.Timezone())

	switch action {
	case actionConfirm:
		b.answerCallback(callback.ID, "⏳ Saving…")

		// drop the buttons while translating
		if w, ok := b.events.Workflow(workflowID); ok && w.State() == domain.StatePendingConfirm {
			b.editPreview(chatID, msgID, renderPreview(w.Preview(), at))
		}

		out, err := b.events.Confirm(ctx, workflowID)
		if err != nil {
			if out.WorkflowID != "" {
				b.editPreview(chatID, msgID, renderPreview(out.Preview, at))
			}
			b.replyError(chatID, err, "confirm workflow")
			return
		}
		b.editPreview(chatID, msgID, renderPreview(out.Preview, at))
		b.send(chatID, confirmedMessage(out))

	case actionCancel:
		out, err := b.events.Cancel(ctx, workflowID)
		if err != nil {
			b.answerCallback(callback.ID, "This action was already handled")
			return
		}
		b.answerCallback(callback.ID, "Cancelled")
		b.editPreview(chatID, msgID, renderPreview(out.Preview, at))
		b.send(chatID, cancelledMessage(out.Flow))
	}
}

// recoverUpdate turns a handler panic into a logged error and a generic
// reply so one bad update cannot take the bot down.
func (b *Bot) recoverUpdate(update tgbotapi.Update) {
	r := recover()
	if r == nil {
		return
	}
	b.logger.Error("panic handling update",
		zap.Int("update_id", update.UpdateID),
		zap.Any("panic", r),
		zap.Stack("stack"),
	)

	switch {
	case update.Message != nil && update.Message.Chat != nil:
		b.send(update.Message.Chat.ID, userMessage(domain.ErrInternal))
	case update.CallbackQuery != nil:
		b.answerCallback(update.CallbackQuery.ID, "Something went wrong")
		if m := update.CallbackQuery.Message; m != nil && m.Chat != nil {
			b.send(m.Chat.ID, userMessage(domain.ErrInternal))
		}
	}
}

func confirmedMessage(out service.Outcome) string {
	switch out.Flow {
	case domain.FlowCreate:
		return fmt.Sprintf("✅ Event created successfully! (<code>%s</code>)", html.EscapeString(out.EventID))
	case domain.FlowUpdate:
		return "✅ Event updated successfully!"
	default:
		return "✅ Event deleted successfully!"
	}
}

func cancelledMessage(flow domain.Flow) string {
	switch flow {
	case domain.FlowCreate:
		return "🗑️ Event cancelled!"
	case domain.FlowUpdate:
		return "🗑️ Event update cancelled!"
	default:
		return "❌ Event deletion cancelled!"
	}
}

// handleInlineQuery serves id and language autocomplete: "@bot <partial>"
// suggests event ids and "@bot lang <partial>" suggests language codes.
func (b *Bot) handleInlineQuery(ctx context.Context, q *tgbotapi.InlineQuery) {
	answer := tgbotapi.InlineConfig{
		InlineQueryID: q.ID,
		IsPersonal:    true,
		CacheTime:     0,
		Results:       []interface{}{},
	}

	if b.cfg.IsAllowedUser(q.From.ID) {
		results, err := b.suggest(ctx, q.Query)
		if err != nil {
			b.logger.Warn("autocomplete failed", zap.String("query", q.Query), zap.Error(err))
		}
		answer.Results = results
	}

	if _, err := b.tg.Request(answer); err != nil {
		b.logger.Debug("answer inline query failed", zap.Error(err))
	}
}

func (b *Bot) suggest(ctx context.Context, query string) ([]interface{}, error) {
	kind, partial := parseInlineQuery(query)

	var values []string
	var err error
	if kind == "lang" {
		values, err = b.events.SuggestLanguages(ctx, partial)
	} else {
		values, err = b.events.SuggestEventIDs(ctx, partial)
	}
	if err != nil {
		return []interface{}{}, err
	}

	results := make([]interface{}, 0, len(values))
	for _, v := range values {
		results = append(results, tgbotapi.NewInlineQueryResultArticle(kind+":"+v, v, v))
	}
	return results, nil
}

// parseInlineQuery splits an inline query into its kind ("id" or "lang")
// and the partial value typed so far.
func parseInlineQuery(query string) (string, string) {
	query = strings.TrimSpace(query)
	head, rest, _ := strings.Cut(query, " ")
	if strings.EqualFold(head, "lang") {
		return "lang", strings.TrimSpace(rest)
	}
	return "id", query
}

// replyError answers with the user-facing message for err and logs errors
// that are not the operator's to fix.
func (b *Bot) replyError(chatID int64, err error, op string) {
	switch domain.FromError(err).Code {
	case domain.CodeValidation, domain.CodeNotFound, domain.CodeUnsupportedLanguage, domain.CodeGateClosed:
		b.logger.Debug(op, zap.Int64("chat_id", chatID), zap.Error(err))
	default:
		b.logger.Error(op, zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.send(chatID, userMessage(err))
}

func operatorFrom(u *tgbotapi.User) domain.Operator {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return domain.Operator{TelegramID: u.ID, Name: name, Username: u.UserName}
}
