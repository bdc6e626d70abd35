package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umbcsclub/eventbot/internal/domain"
)

func newSQLite(t *testing.T) Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "events.db"), time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func backends(t *testing.T) map[string]Store {
	return map[string]Store{
		"sqlite": newSQLite(t),
		"memory": NewMemory(),
	}
}

func sampleEvent() *domain.Event {
	return &domain.Event{
		Title:       domain.LocalizedText{"en": "Hackathon", "es": "Hackatón"},
		Description: domain.LocalizedText{"en": "Annual hackathon", "es": "Annual hackathon"},
		Location:    domain.LocalizedText{"en": "Library", "es": "Biblioteca"},
		Start:       time.Date(2025, time.May, 10, 18, 0, 0, 0, time.UTC),
		End:         time.Date(2025, time.May, 10, 20, 0, 0, 0, time.UTC),
	}
}

func TestStoreEventLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			id, err := store.InsertEvent(ctx, sampleEvent())
			require.NoError(t, err)
			require.NotEmpty(t, id)

			got, err := store.GetEvent(ctx, id)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, id, got.ID)
			assert.Equal(t, "Hackatón", got.Title["es"])
			assert.True(t, got.Start.Equal(sampleEvent().Start))
			assert.Equal(t, []string{}, got.Attendees)

			require.NoError(t, store.SetAttendees(ctx, id, []string{"u1"}))

			got.Location = domain.LocalizedText{"en": "Gym", "es": "Gimnasio"}
			got.Attendees = []string{}
			require.NoError(t, store.ReplaceEvent(ctx, got))

			again, err := store.GetEvent(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, domain.LocalizedText{"en": "Gym", "es": "Gimnasio"}, again.Location)
			assert.Equal(t, []string{"u1"}, again.Attendees, "replace keeps the stored attendees")

			require.NoError(t, store.DeleteEvent(ctx, id))
			gone, err := store.GetEvent(ctx, id)
			require.NoError(t, err)
			assert.Nil(t, gone)
		})
	}
}

func TestStoreListKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var ids []string
			for i := 0; i < 3; i++ {
				id, err := store.InsertEvent(ctx, sampleEvent())
				require.NoError(t, err)
				ids = append(ids, id)
			}
			events, err := store.ListEvents(ctx)
			require.NoError(t, err)
			require.Len(t, events, 3)
			for i, e := range events {
				assert.Equal(t, ids[i], e.ID)
			}
		})
	}
}

func TestStoreSetAttendeesMissingEvent(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := store.SetAttendees(ctx, "missing", []string{"u1"})
			assert.True(t, errors.Is(err, ErrNoDocument))
		})
	}
}

func TestStoreReplaceMissingEvent(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			e := sampleEvent()
			e.ID = "missing"
			err := store.ReplaceEvent(ctx, e)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNoDocument))

			events, err := store.ListEvents(ctx)
			require.NoError(t, err)
			assert.Empty(t, events)
		})
	}
}

func TestStoreSupportedLanguages(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			langs, err := store.SupportedLanguages(ctx)
			require.NoError(t, err)
			assert.Empty(t, langs)

			require.NoError(t, store.SetSupportedLanguages(ctx, []string{"en", "es"}))
			langs, err = store.SupportedLanguages(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"en", "es"}, langs)

			require.NoError(t, store.SetSupportedLanguages(ctx, []string{"en", "fr"}))
			langs, err = store.SupportedLanguages(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"en", "fr"}, langs)
		})
	}
}

func TestOpenSeedsLanguagesOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seed.db")
	opts := Options{Backend: BackendSQLite, DatabasePath: path, DefaultLanguages: []string{"en", "es"}, Timezone: time.UTC}

	store, err := Open(ctx, opts)
	require.NoError(t, err)
	require.NoError(t, store.SetSupportedLanguages(ctx, []string{"en", "zh-CN"}))
	require.NoError(t, store.Close())

	store, err = Open(ctx, opts)
	require.NoError(t, err)
	defer store.Close()
	langs, err := store.SupportedLanguages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "zh-CN"}, langs)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "mongo"})
	assert.Error(t, err)
}
