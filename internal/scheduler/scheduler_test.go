package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umbcsclub/eventbot/config"
	"github.com/umbcsclub/eventbot/internal/clients/caldav"
	"github.com/umbcsclub/eventbot/internal/service"
	"github.com/umbcsclub/eventbot/internal/storage"
)

func TestRegister(t *testing.T) {
	store := storage.NewMemory()
	languages := service.NewLanguageCatalog(store, nil, 0, nil)

	tests := []struct {
		name   string
		client *caldav.Client
		spec   string
		jobs   int
	}{
		{"mirror configured", caldav.NewClient("https://dav.example.com", "bot", "secret", "/cal/"), "0 4 * * *", 2},
		{"mirror disabled", nil, "0 4 * * *", 1},
		{"resync disabled", caldav.NewClient("https://dav.example.com", "bot", "secret", "/cal/"), "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Timezone: time.UTC, ResyncSchedule: tt.spec}
			var client service.CalendarClient
			if tt.client != nil {
				client = tt.client
			}
			calendar := service.NewCalendarService(store, client, "en", nil)

			s := New(cfg, calendar, languages, nil)
			require.NoError(t, s.register(context.Background()))
			assert.Len(t, s.cron.Entries(), tt.jobs)
		})
	}
}

func TestRegisterRejectsBadSpec(t *testing.T) {
	cfg := &config.Config{Timezone: time.UTC, ResyncSchedule: "every night"}
	client := caldav.NewClient("https://dav.example.com", "bot", "secret", "/cal/")
	calendar := service.NewCalendarService(storage.NewMemory(), client, "en", nil)

	s := New(cfg, calendar, nil, nil)
	assert.Error(t, s.register(context.Background()))
}
