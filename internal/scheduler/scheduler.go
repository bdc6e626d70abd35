package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/umbcsclub/eventbot/config"
	"github.com/umbcsclub/eventbot/internal/service"
)

// languageRefreshSpec reloads the language catalog so replicas pick up
// changes made with `eventbot languages set`.
const languageRefreshSpec = "*/5 * * * *"

type Scheduler struct {
	cron      *cron.Cron
	cfg       *config.Config
	calendar  *service.CalendarService
	languages *service.LanguageCatalog
	logger    *zap.Logger
}

func New(cfg *config.Config, calendar *service.CalendarService, languages *service.LanguageCatalog, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cron.New(cron.WithLocation(cfg.Timezone))

	return &Scheduler{
		cron:      c,
		cfg:       cfg,
		calendar:  calendar,
		languages: languages,
		logger:    logger.Named("scheduler"),
	}
}

// Start registers the jobs and blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.register(ctx); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("timezone", s.cfg.Timezone.String()),
		zap.String("resync", s.cfg.ResyncSchedule),
		zap.Int("jobs", len(s.cron.Entries())),
	)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) register(ctx context.Context) error {
	if s.calendar != nil && s.calendar.IsConfigured() && s.cfg.ResyncSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.ResyncSchedule, func() { s.resyncCalendar(ctx) }); err != nil {
			return fmt.Errorf("add calendar resync: %w", err)
		}
	}

	if s.languages != nil {
		if _, err := s.cron.AddFunc(languageRefreshSpec, func() { s.refreshLanguages(ctx) }); err != nil {
			return fmt.Errorf("add language refresh: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) resyncCalendar(ctx context.Context) {
	result, err := s.calendar.ResyncAll(ctx)
	if err != nil {
		s.logger.Error("calendar resync failed", zap.Error(err))
		return
	}
	for _, e := range result.Errors {
		s.logger.Warn("calendar resync error", zap.String("detail", e))
	}
}

func (s *Scheduler) refreshLanguages(ctx context.Context) {
	if err := s.languages.Refresh(ctx); err != nil {
		s.logger.Warn("language refresh failed", zap.Error(err))
	}
}
