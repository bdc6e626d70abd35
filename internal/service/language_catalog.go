package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const languageCacheKey = "eventbot:languages"

// LanguageSource reads the supported languages document.
type LanguageSource interface {
	SupportedLanguages(ctx context.Context) ([]string, error)
}

// LanguageCatalog serves the supported language codes, optionally cached in
// Redis so several bot replicas share one view of the document.
type LanguageCatalog struct {
	source LanguageSource
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewLanguageCatalog creates a catalog. cache may be nil.
func NewLanguageCatalog(source LanguageSource, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *LanguageCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LanguageCatalog{source: source, cache: cache, ttl: ttl, logger: logger}
}

// Languages returns the supported language codes in document order.
func (c *LanguageCatalog) Languages(ctx context.Context) ([]string, error) {
	if c.cache != nil {
		raw, err := c.cache.Get(ctx, languageCacheKey).Bytes()
		switch {
		case err == nil:
			var langs []string
			if jerr := json.Unmarshal(raw, &langs); jerr == nil {
				return langs, nil
			}
		case !errors.Is(err, redis.Nil):
			c.logger.Warn("language cache read failed", zap.Error(err))
		}
	}
	return c.load(ctx)
}

// Refresh reloads the languages from the store into the cache.
func (c *LanguageCatalog) Refresh(ctx context.Context) error {
	_, err := c.load(ctx)
	return err
}

func (c *LanguageCatalog) load(ctx context.Context) ([]string, error) {
	langs, err := c.source.SupportedLanguages(ctx)
	if err != nil {
		return nil, fmt.Errorf("read supported languages: %w", err)
	}
	if c.cache != nil {
		raw, _ := json.Marshal(langs)
		if err := c.cache.Set(ctx, languageCacheKey, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("language cache write failed", zap.Error(err))
		}
	}
	return langs, nil
}

// IsSupported reports whether code is one of the supported languages.
func (c *LanguageCatalog) IsSupported(ctx context.Context, code string) (bool, error) {
	langs, err := c.Languages(ctx)
	if err != nil {
		return false, err
	}
	for _, l := range langs {
		if l == code {
			return true, nil
		}
	}
	return false, nil
}
