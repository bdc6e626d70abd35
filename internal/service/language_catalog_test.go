package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	langs []string
	err   error
	reads int
}

func (s *countingSource) SupportedLanguages(context.Context) ([]string, error) {
	s.reads++
	return s.langs, s.err
}

func TestLanguageCatalog_WithoutCache(t *testing.T) {
	src := &countingSource{langs: []string{"en", "es", "zh-CN"}}
	c := NewLanguageCatalog(src, nil, 0, nil)
	ctx := context.Background()

	langs, err := c.Languages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "es", "zh-CN"}, langs)

	ok, err := c.IsSupported(ctx, "zh-CN")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.IsSupported(ctx, "ZH-cn")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Refresh(ctx))
	assert.Equal(t, 4, src.reads)
}

func TestLanguageCatalog_SourceError(t *testing.T) {
	c := NewLanguageCatalog(&countingSource{err: errors.New("unavailable")}, nil, 0, nil)

	_, err := c.IsSupported(context.Background(), "en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read supported languages")
}
