package domain

import (
	"sort"
	"time"
)

// LocalizedText maps a language code to text in that language.
type LocalizedText map[string]string

// Get returns the text for lang, falling back to fallback language when lang is missing.
func (t LocalizedText) Get(lang, fallback string) string {
	if v, ok := t[lang]; ok && v != "" {
		return v
	}
	return t[fallback]
}

// Languages returns the language codes present, sorted.
func (t LocalizedText) Languages() []string {
	langs := make([]string, 0, len(t))
	for k := range t {
		langs = append(langs, k)
	}
	sort.Strings(langs)
	return langs
}

// Clone returns an independent copy.
func (t LocalizedText) Clone() LocalizedText {
	if t == nil {
		return nil
	}
	c := make(LocalizedText, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}

// Event is a club event as stored in the events collection
type Event struct {
	ID          string
	Title       LocalizedText
	Description LocalizedText
	Location    LocalizedText
	Start       time.Time
	End         time.Time
	Attendees   []string // owned by the attendance feature, never edited here
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	c.Title = e.Title.Clone()
	c.Description = e.Description.Clone()
	c.Location = e.Location.Clone()
	if e.Attendees != nil {
		c.Attendees = append([]string{}, e.Attendees...)
	}
	return &c
}

// FormatDate returns the start date in operator input form (MM/DD/YYYY)
func (e *Event) FormatDate() string {
	return FormatDate(e.Start)
}

// FormatTimeRange returns the time range in operator input form (HH:MM-HH:MM)
func (e *Event) FormatTimeRange() string {
	return FormatTimeRange(e.Start, e.End)
}

// Draft returns the reference-language values of the event as an editable draft.
func (e *Event) Draft(refLang string) Draft {
	return Draft{
		Title:       e.Title[refLang],
		Date:        e.FormatDate(),
		TimeRange:   e.FormatTimeRange(),
		Location:    e.Location[refLang],
		Description: e.Description[refLang],
	}
}

// IsUpcoming returns true if the event has not ended yet
func (e *Event) IsUpcoming(now time.Time) bool {
	return !e.End.Before(now)
}
