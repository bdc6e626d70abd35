package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/umbcsclub/eventbot/internal/domain"
)

var errEmptyTranslation = errors.New("empty translation")

// Translator translates text into a target language. It may fail.
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// TranslationService fans free-text fields out to every supported language.
type TranslationService struct {
	translator  Translator
	refLang     string
	timeout     time.Duration
	concurrency int
	logger      *zap.Logger
	metrics     *MetricsService
}

func NewTranslationService(translator Translator, refLang string, timeout time.Duration, concurrency int, logger *zap.Logger, metrics *MetricsService) *TranslationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &TranslationService{
		translator:  translator,
		refLang:     refLang,
		timeout:     timeout,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

// TranslateWithFallback translates text into lang and never fails: on any
// translator error, timeout or empty result it returns text unchanged.
// Text already in the reference language is returned as is.
func (s *TranslationService) TranslateWithFallback(ctx context.Context, text, lang string) string {
	if lang == s.refLang || text == "" || s.translator == nil {
		return text
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := s.translator.Translate(callCtx, text, lang)
	if err == nil && out == "" {
		err = errEmptyTranslation
	}
	s.metrics.ObserveTranslation(err == nil, time.Since(start))
	if err != nil {
		s.logger.Warn("translation failed, using reference text",
			zap.String("lang", lang),
			zap.Error(err),
		)
		return text
	}
	return out
}

// TranslatedFields holds one localized map per translated event field.
type TranslatedFields struct {
	Title       domain.LocalizedText
	Description domain.LocalizedText
	Location    domain.LocalizedText
}

// FanOut translates title, description and location into every language.
// The calls run concurrently and FanOut returns once every (field, language)
// pair holds either its translation or the reference text.
func (s *TranslationService) FanOut(ctx context.Context, draft domain.Draft, languages []string) TranslatedFields {
	sources := [3]string{draft.Title, draft.Description, draft.Location}
	results := make([][3]string, len(languages))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, lang := range languages {
		i, lang := i, lang
		for f, text := range sources {
			f, text := f, text
			g.Go(func() error {
				results[i][f] = s.TranslateWithFallback(ctx, text, lang)
				return nil
			})
		}
	}
	_ = g.Wait()

	out := TranslatedFields{
		Title:       make(domain.LocalizedText, len(languages)),
		Description: make(domain.LocalizedText, len(languages)),
		Location:    make(domain.LocalizedText, len(languages)),
	}
	for i, lang := range languages {
		out.Title[lang] = results[i][0]
		out.Description[lang] = results[i][1]
		out.Location[lang] = results[i][2]
	}
	return out
}
