package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("ALLOWED_USER_IDS", "11, 22")

	cfg, err := LoadFile(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, []int64{11, 22}, cfg.AllowedUserIDs)
	assert.Equal(t, "America/New_York", cfg.Timezone.String())
	assert.Equal(t, "en", cfg.ReferenceLanguage)
	assert.Equal(t, 25, cfg.AutocompleteLimit)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, []string{"en"}, cfg.Store.DefaultLanguages)
	assert.Equal(t, 10*time.Second, cfg.Translate.Timeout)
	assert.Equal(t, 8, cfg.Translate.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, "0 4 * * *", cfg.ResyncSchedule)
	assert.False(t, cfg.CalDAVEnabled())
	assert.True(t, cfg.IsAllowedUser(22))
	assert.False(t, cfg.IsAllowedUser(33))
}

func TestLoadFromEnvFile(t *testing.T) {
	// Empty values keep godotenv from exporting the file into the test
	// process; viper ignores empty env values and reads the file instead.
	for _, key := range []string{"TELEGRAM_BOT_TOKEN", "ALLOWED_USER_IDS", "DEFAULT_LANGUAGES", "TRANSLATE_TIMEOUT"} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), ".env")
	content := "TELEGRAM_BOT_TOKEN=file-token\nALLOWED_USER_IDS=7\nDEFAULT_LANGUAGES=en,es,zh-CN\nTRANSLATE_TIMEOUT=3s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token", cfg.TelegramToken)
	assert.Equal(t, []string{"en", "es", "zh-CN"}, cfg.Store.DefaultLanguages)
	assert.Equal(t, 3*time.Second, cfg.Translate.Timeout)
}

func TestValidateBot(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("ALLOWED_USER_IDS", "1")
	cfg, err := LoadFile(missingEnvFile(t))
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.ValidateBot(), "TELEGRAM_BOT_TOKEN")

	cfg.TelegramToken = "token"
	assert.NoError(t, cfg.ValidateBot())

	cfg.AllowedUserIDs = nil
	assert.ErrorContains(t, cfg.ValidateBot(), "ALLOWED_USER_IDS")
}

func TestLoadRejectsBadIDs(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("ALLOWED_USER_IDS", "1,abc")
	_, err := LoadFile(missingEnvFile(t))
	assert.ErrorContains(t, err, "ALLOWED_USER_IDS")
}

func TestLoadRejectsBadTimezone(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("ALLOWED_USER_IDS", "1")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err := LoadFile(missingEnvFile(t))
	assert.ErrorContains(t, err, "TIMEZONE")
}
