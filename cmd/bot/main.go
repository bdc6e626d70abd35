package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/umbcsclub/eventbot/config"
	"github.com/umbcsclub/eventbot/internal/bot"
	"github.com/umbcsclub/eventbot/internal/clients/caldav"
	"github.com/umbcsclub/eventbot/internal/clients/translate"
	"github.com/umbcsclub/eventbot/internal/logger"
	"github.com/umbcsclub/eventbot/internal/scheduler"
	"github.com/umbcsclub/eventbot/internal/service"
	"github.com/umbcsclub/eventbot/internal/storage"
)

func main() {
	app := &cli.App{
		Name:  "eventbot",
		Usage: "Publish club events to the website in every supported language.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file to load before the environment"},
		},
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			serveCommand(),
			languagesCommand(),
			calendarsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "eventbot:", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the Telegram bot and its HTTP server.",
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	cache := openCache(ctx, cfg, log)
	if cache != nil {
		defer cache.Close()
	}

	metrics := service.NewMetricsService()
	catalog := service.NewLanguageCatalog(store, cache, cfg.Redis.TTL, log)

	translator, err := translate.NewClient(ctx, cfg.Translate.APIKey, cfg.ReferenceLanguage)
	if err != nil {
		return err
	}
	if !translator.IsConfigured() {
		log.Warn("TRANSLATE_API_KEY not set, events will be stored untranslated")
	}
	translations := service.NewTranslationService(translator, cfg.ReferenceLanguage, cfg.Translate.Timeout, cfg.Translate.Concurrency, log, metrics)

	events := service.NewEventService(store, catalog, translations, validator.New(), service.EventServiceConfig{
		Timezone:          cfg.Timezone,
		ReferenceLanguage: cfg.ReferenceLanguage,
		SuggestionLimit:   cfg.AutocompleteLimit,
	}, log, metrics)
	if err := events.CheckLanguages(ctx); err != nil {
		return fmt.Errorf("%w (fix it with: eventbot languages set)", err)
	}

	calendar := service.NewCalendarService(store, calendarClient(cfg), cfg.ReferenceLanguage, log)
	if calendar.IsConfigured() {
		events.SetMirror(calendar)
		log.Info("CalDAV mirror enabled", zap.String("calendar", cfg.CalDAV.CalendarPath))
	}

	tgBot, err := bot.New(cfg, events, calendar, metrics, log)
	if err != nil {
		return err
	}

	sched := scheduler.New(cfg, calendar, catalog, log)

	go func() {
		if err := sched.Start(ctx); err != nil {
			log.Error("scheduler error", zap.Error(err))
		}
	}()

	go func() {
		if err := tgBot.Start(ctx); err != nil {
			log.Error("bot error", zap.Error(err))
			cancel()
		}
	}()

	log.Info("eventbot started",
		zap.String("store", cfg.Store.Backend),
		zap.String("timezone", cfg.Timezone.String()),
		zap.Bool("webhook", cfg.WebhookURL != ""),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	log.Info("shutting down")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := tgBot.Stop(shutdownCtx); err != nil {
		log.Error("error stopping bot", zap.Error(err))
	}

	log.Info("eventbot stopped")
	return nil
}

func languagesCommand() *cli.Command {
	return &cli.Command{
		Name:  "languages",
		Usage: "Manage the supported languages document.",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print the supported language codes.",
				Action: func(c *cli.Context) error {
					cfg, log, err := setup(c)
					if err != nil {
						return err
					}
					defer func() { _ = log.Sync() }()

					store, err := openStore(c.Context, cfg)
					if err != nil {
						return err
					}
					defer store.Close()

					langs, err := store.SupportedLanguages(c.Context)
					if err != nil {
						return err
					}
					for _, l := range langs {
						fmt.Fprintln(c.App.Writer, l)
					}
					return nil
				},
			},
			{
				Name:      "set",
				Usage:     "Replace the supported language codes.",
				ArgsUsage: "en,es,zh-CN",
				Action: func(c *cli.Context) error {
					langs := parseLanguageArgs(c.Args().Slice())
					if len(langs) == 0 {
						return fmt.Errorf("at least one language code is required")
					}

					cfg, log, err := setup(c)
					if err != nil {
						return err
					}
					defer func() { _ = log.Sync() }()

					if !contains(langs, cfg.ReferenceLanguage) {
						return fmt.Errorf("the reference language %q must stay supported", cfg.ReferenceLanguage)
					}

					store, err := openStore(c.Context, cfg)
					if err != nil {
						return err
					}
					defer store.Close()

					if err := store.SetSupportedLanguages(c.Context, langs); err != nil {
						return err
					}

					// refresh the shared cache so running bots see the change
					if cache := openCache(c.Context, cfg, log); cache != nil {
						defer cache.Close()
						if err := service.NewLanguageCatalog(store, cache, cfg.Redis.TTL, log).Refresh(c.Context); err != nil {
							return err
						}
					}

					log.Info("supported languages updated", zap.Strings("languages", langs))
					return nil
				},
			},
		},
	}
}

func calendarsCommand() *cli.Command {
	return &cli.Command{
		Name:  "calendars",
		Usage: "Inspect and resync the CalDAV mirror.",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the calendars visible to the CalDAV account.",
				Action: func(c *cli.Context) error {
					cfg, log, err := setup(c)
					if err != nil {
						return err
					}
					defer func() { _ = log.Sync() }()

					client := caldav.NewClient(cfg.CalDAV.URL, cfg.CalDAV.Username, cfg.CalDAV.Password, cfg.CalDAV.CalendarPath)
					if !client.IsConfigured() {
						return fmt.Errorf("CALDAV_URL, CALDAV_USERNAME and CALDAV_PASSWORD are required")
					}
					cals, err := client.DiscoverCalendars(c.Context)
					if err != nil {
						return err
					}
					for _, cal := range cals {
						fmt.Fprintf(c.App.Writer, "%s\t%s\n", cal.Path, cal.DisplayName)
					}
					return nil
				},
			},
			{
				Name:  "resync",
				Usage: "Push every event to the mirror calendar now.",
				Action: func(c *cli.Context) error {
					cfg, log, err := setup(c)
					if err != nil {
						return err
					}
					defer func() { _ = log.Sync() }()

					store, err := openStore(c.Context, cfg)
					if err != nil {
						return err
					}
					defer store.Close()

					calendar := service.NewCalendarService(store, calendarClient(cfg), cfg.ReferenceLanguage, log)
					result, err := calendar.ResyncAll(c.Context)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "published %d, removed %d, errors %d\n", result.Published, result.Removed, len(result.Errors))
					for _, e := range result.Errors {
						fmt.Fprintln(c.App.Writer, "  "+e)
					}
					return nil
				},
			},
		},
	}
}

func setup(c *cli.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFile(c.String("env-file"))
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	store, err := storage.Open(ctx, storage.Options{
		Backend:          cfg.Store.Backend,
		DatabasePath:     cfg.Store.DatabasePath,
		ProjectID:        cfg.Store.FirestoreProject,
		CredentialsFile:  cfg.Store.CredentialsFile,
		DefaultLanguages: cfg.Store.DefaultLanguages,
		Timezone:         cfg.Timezone,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	return store, nil
}

// openCache returns nil when no Redis address is configured or the server
// is unreachable; the language catalog then reads the store directly.
func openCache(ctx context.Context, cfg *config.Config, log *zap.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, language cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}

func calendarClient(cfg *config.Config) service.CalendarClient {
	if !cfg.CalDAVEnabled() {
		return nil
	}
	return caldav.NewClient(cfg.CalDAV.URL, cfg.CalDAV.Username, cfg.CalDAV.Password, cfg.CalDAV.CalendarPath)
}

func parseLanguageArgs(args []string) []string {
	var langs []string
	for _, arg := range args {
		for _, l := range strings.Split(arg, ",") {
			if l = strings.TrimSpace(l); l != "" && !contains(langs, l) {
				langs = append(langs, l)
			}
		}
	}
	return langs
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
