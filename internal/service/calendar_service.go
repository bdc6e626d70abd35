package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"go.uber.org/zap"

	"github.com/umbcsclub/eventbot/internal/clients/caldav"
	"github.com/umbcsclub/eventbot/internal/domain"
)

const uidSuffix = "@eventbot"

// EventLister reads every stored event.
type EventLister interface {
	ListEvents(ctx context.Context) ([]*domain.Event, error)
}

// CalendarClient is the remote CalDAV calendar events are mirrored to.
type CalendarClient interface {
	IsConfigured() bool
	DiscoverCalendars(ctx context.Context) ([]caldav.Calendar, error)
	ListUIDs(ctx context.Context) ([]string, error)
	PutEvent(ctx context.Context, event *caldav.Event) error
	DeleteEvent(ctx context.Context, uid string) error
}

// CalendarService exports events as iCalendar and mirrors them to CalDAV
type CalendarService struct {
	events  EventLister
	client  CalendarClient
	refLang string
	logger  *zap.Logger
	now     func() time.Time
}

// NewCalendarService creates a new calendar service. client may be nil.
func NewCalendarService(events EventLister, client CalendarClient, refLang string, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{
		events:  events,
		client:  client,
		refLang: refLang,
		logger:  logger,
		now:     time.Now,
	}
}

// IsConfigured returns true if the CalDAV mirror is configured
func (s *CalendarService) IsConfigured() bool {
	return s.client != nil && s.client.IsConfigured()
}

// DiscoverCalendars returns the calendars visible to the mirror account
func (s *CalendarService) DiscoverCalendars(ctx context.Context) ([]caldav.Calendar, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("CalDAV not configured")
	}
	return s.client.DiscoverCalendars(ctx)
}

// === Mirror ===

// Publish creates or replaces the mirrored copy of an event.
func (s *CalendarService) Publish(ctx context.Context, e *domain.Event) error {
	if !s.IsConfigured() {
		return nil
	}
	return s.client.PutEvent(ctx, s.toCalDAV(e, s.refLang))
}

// Remove deletes the mirrored copy of an event.
func (s *CalendarService) Remove(ctx context.Context, id string) error {
	if !s.IsConfigured() {
		return nil
	}
	return s.client.DeleteEvent(ctx, eventUID(id))
}

// SyncResult contains sync operation results
type SyncResult struct {
	Published int
	Removed   int
	Errors    []string
}

// ResyncAll pushes every stored event to the calendar and removes mirrored
// events that no longer exist. Remote events not created by the bot are left
// alone.
func (s *CalendarService) ResyncAll(ctx context.Context) (*SyncResult, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("CalDAV not configured")
	}

	events, err := s.events.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	remote, err := s.client.ListUIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list remote events: %w", err)
	}

	result := &SyncResult{}
	local := make(map[string]bool, len(events))
	for _, e := range events {
		local[eventUID(e.ID)] = true
		if err := s.client.PutEvent(ctx, s.toCalDAV(e, s.refLang)); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("put %s: %v", e.ID, err))
			continue
		}
		result.Published++
	}

	for _, uid := range remote {
		if !strings.HasSuffix(uid, uidSuffix) || local[uid] {
			continue
		}
		if err := s.client.DeleteEvent(ctx, uid); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", uid, err))
			continue
		}
		result.Removed++
	}

	s.logger.Info("calendar resync finished",
		zap.Int("published", result.Published),
		zap.Int("removed", result.Removed),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// === iCalendar export ===

// Feed builds an iCalendar feed of every event in lang. Missing
// translations fall back to the reference language.
func (s *CalendarService) Feed(ctx context.Context, lang string) (*ical.Calendar, error) {
	events, err := s.events.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	cal := caldav.NewCalendar()
	cal.Props.SetText("X-WR-CALNAME", "CS Club Events")
	stamp := s.now()
	for _, e := range events {
		cal.Children = append(cal.Children, caldav.NewVEvent(s.toCalDAV(e, lang), stamp).Component)
	}
	return cal, nil
}

// WriteFeed encodes the feed for lang to w.
func (s *CalendarService) WriteFeed(ctx context.Context, w io.Writer, lang string) error {
	cal, err := s.Feed(ctx, lang)
	if err != nil {
		return err
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func (s *CalendarService) toCalDAV(e *domain.Event, lang string) *caldav.Event {
	return &caldav.Event{
		UID:         eventUID(e.ID),
		Summary:     e.Title.Get(lang, s.refLang),
		Description: e.Description.Get(lang, s.refLang),
		Location:    e.Location.Get(lang, s.refLang),
		StartTime:   e.Start,
		EndTime:     e.End,
	}
}

func eventUID(id string) string {
	return id + uidSuffix
}
