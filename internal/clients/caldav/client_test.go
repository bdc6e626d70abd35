package caldav

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventToICS(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	ev := &Event{
		UID:         "abc@eventbot",
		Summary:     "Hackathon",
		Description: "Annual hackathon",
		Location:    "Library",
		StartTime:   time.Date(2025, time.May, 10, 18, 0, 0, 0, loc),
		EndTime:     time.Date(2025, time.May, 10, 20, 0, 0, 0, loc),
	}

	var buf bytes.Buffer
	require.NoError(t, ical.NewEncoder(&buf).Encode(EventToICS(ev, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))))
	out := buf.String()

	assert.Contains(t, out, "UID:abc@eventbot")
	assert.Contains(t, out, "SUMMARY:Hackathon")
	assert.Contains(t, out, "LOCATION:Library")
	assert.Contains(t, out, "DTSTART:20250510T230000Z")
	assert.Contains(t, out, "DTEND:20250511T010000Z")
	assert.Contains(t, out, "PRODID:"+ProductID)
}

func TestObjectUID(t *testing.T) {
	cal := EventToICS(&Event{UID: "x1", Summary: "s"}, time.Now())
	assert.Equal(t, "x1", objectUID(&caldav.CalendarObject{Data: cal}))
}

func TestIsConfigured(t *testing.T) {
	var nilClient *Client
	assert.False(t, nilClient.IsConfigured())
	assert.False(t, NewClient("", "u", "p", "/cal/").IsConfigured())
	assert.True(t, NewClient("https://dav.example.com", "u", "p", "/cal/").IsConfigured())
}

func TestEventPath(t *testing.T) {
	assert.Equal(t, "/cal/x1.ics", NewClient("", "", "", "/cal").eventPath("x1"))
	assert.Equal(t, "/cal/x1.ics", NewClient("", "", "", "/cal/").eventPath("x1"))
}
