package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/umbcsclub/eventbot/config"
	"github.com/umbcsclub/eventbot/internal/service"
)

// sender is the part of the Bot API the handlers talk to.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	api      *tgbotapi.BotAPI
	tg       sender
	username string
	cfg      *config.Config
	events   *service.EventService
	calendar *service.CalendarService
	metrics  *service.MetricsService
	logger   *zap.Logger
	forms    *formSessions
	updates  chan tgbotapi.Update
	server   *http.Server
}

func New(cfg *config.Config, events *service.EventService, calendar *service.CalendarService, metrics *service.MetricsService, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger = logger.Named("bot")
	logger.Info("authorized", zap.String("username", api.Self.UserName))

	bot := newBot(cfg, events, calendar, metrics, logger, api, api.Self.UserName)
	bot.api = api

	// Set bot commands (menu button)
	bot.setCommands()

	return bot, nil
}

func newBot(cfg *config.Config, events *service.EventService, calendar *service.CalendarService, metrics *service.MetricsService, logger *zap.Logger, tg sender, username string) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		tg:       tg,
		username: username,
		cfg:      cfg,
		events:   events,
		calendar: calendar,
		metrics:  metrics,
		logger:   logger,
		forms:    newFormSessions(),
		updates:  make(chan tgbotapi.Update, 100),
	}
}

func (b *Bot) setCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: "post", Description: "📝 Post an event to the club website"},
		{Command: "get", Description: "📅 Get events: /get [id] [lang]"},
		{Command: "put", Description: "✏️ Update an event: /put id"},
		{Command: "delete", Description: "🗑 Delete an event: /delete id"},
		{Command: "langs", Description: "🌐 Supported languages"},
		{Command: "ics", Description: "📆 Calendar file: /ics [lang]"},
		{Command: "cancel", Description: "✖️ Discard the open form"},
		{Command: "help", Description: "❓ Command reference"},
	}

	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := b.api.Request(cfg); err != nil {
		b.logger.Warn("failed to set commands", zap.Error(err))
	}
}

func (b *Bot) SetupWebhook() error {
	webhookURL := b.cfg.WebhookURL + "/bot"

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}

	_, err = b.api.Request(wh)
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	info, err := b.api.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}

	if info.LastErrorDate != 0 {
		b.logger.Warn("webhook last error", zap.String("message", info.LastErrorMessage))
	}

	b.logger.Info("webhook set", zap.String("url", webhookURL))
	return nil
}

// Start serves HTTP and dispatches updates until ctx is cancelled. Updates
// arrive through the webhook when WEBHOOK_URL is set and by long polling
// otherwise.
func (b *Bot) Start(ctx context.Context) error {
	var webhook gin.HandlerFunc
	var updates tgbotapi.UpdatesChannel

	if b.cfg.WebhookURL != "" {
		if err := b.SetupWebhook(); err != nil {
			return err
		}
		webhook = b.webhookHandler
		updates = b.updates
	} else {
		if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			return fmt.Errorf("delete webhook: %w", err)
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates = b.api.GetUpdatesChan(u)
		defer b.api.StopReceivingUpdates()
	}

	b.server = &http.Server{
		Addr:              ":" + b.cfg.ServerPort,
		Handler:           newRouter(b.cfg, b.events, b.calendar, b.metrics, b.logger, webhook),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		b.logger.Info("starting http server", zap.String("port", b.cfg.ServerPort))
		if err := b.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Error("http server error", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) Stop(ctx context.Context) error {
	if b.server != nil {
		return b.server.Shutdown(ctx)
	}
	return nil
}

// webhookHandler decodes a Telegram delivery and queues it for dispatch
func (b *Bot) webhookHandler(c *gin.Context) {
	update, err := b.api.HandleUpdate(c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, envelope{Error: &errorPayload{Code: "BAD_UPDATE", Message: err.Error()}})
		return
	}
	b.updates <- *update
	c.Status(http.StatusOK)
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.tg.Send(msg)
	return err
}

func (b *Bot) SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	_, err := b.tg.Send(msg)
	return err
}

// send is SendMessage with failures logged
func (b *Bot) send(chatID int64, text string) {
	if err := b.SendMessage(chatID, text); err != nil {
		b.logger.Warn("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// editPreview replaces a preview message and drops its keyboard
func (b *Bot) editPreview(chatID int64, msgID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.tg.Send(edit); err != nil {
		b.logger.Warn("edit preview failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) answerCallback(callbackID, text string) {
	if _, err := b.tg.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.logger.Debug("answer callback failed", zap.Error(err))
	}
}
