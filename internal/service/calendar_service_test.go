package service

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umbcsclub/eventbot/internal/clients/caldav"
	"github.com/umbcsclub/eventbot/internal/domain"
	"github.com/umbcsclub/eventbot/internal/storage"
)

type fakeCalendar struct {
	objects map[string]*caldav.Event
	failPut map[string]bool
}

func newFakeCalendar(uids ...string) *fakeCalendar {
	f := &fakeCalendar{objects: map[string]*caldav.Event{}, failPut: map[string]bool{}}
	for _, uid := range uids {
		f.objects[uid] = &caldav.Event{UID: uid}
	}
	return f
}

func (f *fakeCalendar) IsConfigured() bool { return true }

func (f *fakeCalendar) DiscoverCalendars(context.Context) ([]caldav.Calendar, error) {
	return []caldav.Calendar{{Path: "/cal/events/", DisplayName: "Events"}}, nil
}

func (f *fakeCalendar) ListUIDs(context.Context) ([]string, error) {
	var uids []string
	for uid := range f.objects {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids, nil
}

func (f *fakeCalendar) PutEvent(_ context.Context, e *caldav.Event) error {
	if f.failPut[e.UID] {
		return errors.New("412 precondition failed")
	}
	f.objects[e.UID] = e
	return nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, uid string) error {
	delete(f.objects, uid)
	return nil
}

func seedEvents(t *testing.T) (*storage.Memory, []string) {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemory()
	start := time.Date(2025, 3, 14, 22, 0, 0, 0, time.UTC)
	var ids []string
	for _, title := range []string{"Hackathon", "Game night"} {
		id, err := store.InsertEvent(ctx, &domain.Event{
			Title:       domain.LocalizedText{"en": title, "es": "ES " + title},
			Description: domain.LocalizedText{"en": "details"},
			Location:    domain.LocalizedText{"en": "Room 101"},
			Start:       start,
			End:         start.Add(2 * time.Hour),
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return store, ids
}

func TestCalendarService_PublishAndRemove(t *testing.T) {
	ctx := context.Background()
	store, ids := seedEvents(t)
	remote := newFakeCalendar()
	svc := NewCalendarService(store, remote, "en", nil)

	e, err := store.GetEvent(ctx, ids[0])
	require.NoError(t, err)
	require.NoError(t, svc.Publish(ctx, e))

	got := remote.objects[ids[0]+"@eventbot"]
	require.NotNil(t, got)
	assert.Equal(t, "Hackathon", got.Summary)
	assert.Equal(t, "Room 101", got.Location)

	require.NoError(t, svc.Remove(ctx, ids[0]))
	assert.Empty(t, remote.objects)
}

func TestCalendarService_UnconfiguredIsNoop(t *testing.T) {
	ctx := context.Background()
	store, ids := seedEvents(t)
	svc := NewCalendarService(store, nil, "en", nil)

	e, err := store.GetEvent(ctx, ids[0])
	require.NoError(t, err)
	assert.NoError(t, svc.Publish(ctx, e))
	assert.NoError(t, svc.Remove(ctx, ids[0]))
	assert.False(t, svc.IsConfigured())

	_, err = svc.ResyncAll(ctx)
	assert.Error(t, err)
}

func TestCalendarService_ResyncAll(t *testing.T) {
	ctx := context.Background()
	store, ids := seedEvents(t)
	remote := newFakeCalendar("stale@eventbot", "dentist@icloud.com")
	remote.failPut[ids[1]+"@eventbot"] = true
	svc := NewCalendarService(store, remote, "en", nil)

	result, err := svc.ResyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Published)
	assert.Equal(t, 1, result.Removed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], ids[1])

	assert.Contains(t, remote.objects, ids[0]+"@eventbot")
	assert.Contains(t, remote.objects, "dentist@icloud.com")
	assert.NotContains(t, remote.objects, "stale@eventbot")
}

func TestCalendarService_WriteFeed(t *testing.T) {
	ctx := context.Background()
	store, ids := seedEvents(t)
	svc := NewCalendarService(store, nil, "en", nil)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteFeed(ctx, &buf, "es"))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "PRODID:"+caldav.ProductID)
	assert.Contains(t, out, "SUMMARY:ES Hackathon")
	assert.Contains(t, out, "SUMMARY:ES Game night")
	// no Spanish location stored
	assert.Contains(t, out, "LOCATION:Room 101")
	assert.Contains(t, out, "UID:"+ids[0]+"@eventbot")
	assert.Contains(t, out, "DTSTART:20250314T220000Z")
}
