package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/umbcsclub/eventbot/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

// Storage is a sqlite-backed document store. Events are kept one row per
// document with the localized fields stored as JSON, mirroring the layout of
// the Firestore collections.
type Storage struct {
	db *sql.DB
	tz *time.Location
}

func New(dbPath string, tz *time.Location) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if tz == nil {
		tz = time.UTC
	}

	s := &Storage{db: db, tz: tz}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			title TEXT NOT NULL DEFAULT '{}',
			description TEXT NOT NULL DEFAULT '{}',
			location TEXT NOT NULL DEFAULT '{}',
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			attendees TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_time)`,
		// Site configuration documents (language_support, ...)
		`CREATE TABLE IF NOT EXISTS site (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL DEFAULT '{}'
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// === Events ===

type eventRow struct {
	id          string
	title       string
	description string
	location    string
	start       string
	end         string
	attendees   string
}

func (r *eventRow) toEvent(tz *time.Location) (*domain.Event, error) {
	e := &domain.Event{ID: r.id}
	if err := json.Unmarshal([]byte(r.title), &e.Title); err != nil {
		return nil, fmt.Errorf("decode title: %w", err)
	}
	if err := json.Unmarshal([]byte(r.description), &e.Description); err != nil {
		return nil, fmt.Errorf("decode description: %w", err)
	}
	if err := json.Unmarshal([]byte(r.location), &e.Location); err != nil {
		return nil, fmt.Errorf("decode location: %w", err)
	}
	if err := json.Unmarshal([]byte(r.attendees), &e.Attendees); err != nil {
		return nil, fmt.Errorf("decode attendees: %w", err)
	}
	if e.Attendees == nil {
		e.Attendees = []string{}
	}

	start, err := time.Parse(time.RFC3339, r.start)
	if err != nil {
		return nil, fmt.Errorf("decode start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, r.end)
	if err != nil {
		return nil, fmt.Errorf("decode end: %w", err)
	}
	e.Start = start.In(tz)
	e.End = end.In(tz)
	return e, nil
}

func encodeEvent(e *domain.Event) (*eventRow, error) {
	r := &eventRow{
		id:    e.ID,
		start: e.Start.Format(time.RFC3339),
		end:   e.End.Format(time.RFC3339),
	}
	fields := []struct {
		dst *string
		v   any
	}{
		{&r.title, nonNilText(e.Title)},
		{&r.description, nonNilText(e.Description)},
		{&r.location, nonNilText(e.Location)},
		{&r.attendees, nonNilAttendees(e.Attendees)},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.v)
		if err != nil {
			return nil, fmt.Errorf("encode event: %w", err)
		}
		*f.dst = string(b)
	}
	return r, nil
}

func nonNilText(t domain.LocalizedText) domain.LocalizedText {
	if t == nil {
		return domain.LocalizedText{}
	}
	return t
}

func nonNilAttendees(a []string) []string {
	if a == nil {
		return []string{}
	}
	return a
}

const eventColumns = `id, title, description, location, start_time, end_time, attendees`

// GetEvent returns an event by ID, or nil when it does not exist
func (s *Storage) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	r := &eventRow{}
	err := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`,
		id,
	).Scan(&r.id, &r.title, &r.description, &r.location, &r.start, &r.end, &r.attendees)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.toEvent(s.tz)
}

// ListEvents returns every event in insertion order
func (s *Storage) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		r := &eventRow{}
		if err := rows.Scan(&r.id, &r.title, &r.description, &r.location, &r.start, &r.end, &r.attendees); err != nil {
			return nil, err
		}
		e, err := r.toEvent(s.tz)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", r.id, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// InsertEvent stores a new event and returns the assigned ID
func (s *Storage) InsertEvent(ctx context.Context, e *domain.Event) (string, error) {
	stored := e.Clone()
	stored.ID = newDocumentID()
	r, err := encodeEvent(stored)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.id, r.title, r.description, r.location, r.start, r.end, r.attendees,
	)
	if err != nil {
		return "", err
	}
	return stored.ID, nil
}

// ReplaceEvent overwrites the content of an existing event document.
// The stored attendees are left as they are.
func (s *Storage) ReplaceEvent(ctx context.Context, e *domain.Event) error {
	r, err := encodeEvent(e)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET title = ?, description = ?, location = ?, start_time = ?, end_time = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		r.title, r.description, r.location, r.start, r.end, r.id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %s: %w", e.ID, ErrNoDocument)
	}
	return nil
}

// SetAttendees replaces the attendee list of an existing event
func (s *Storage) SetAttendees(ctx context.Context, id string, attendees []string) error {
	raw, err := json.Marshal(nonNilAttendees(attendees))
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET attendees = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(raw), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNoDocument)
	}
	return nil
}

// DeleteEvent deletes an event by ID
func (s *Storage) DeleteEvent(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	return err
}

// === Site configuration ===

// SupportedLanguages returns the language codes of the language_support document
func (s *Storage) SupportedLanguages(ctx context.Context) ([]string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM site WHERE key = ?`, languageSupportKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc languageSupport
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode language support: %w", err)
	}
	return doc.Languages, nil
}

// SetSupportedLanguages replaces the language_support document
func (s *Storage) SetSupportedLanguages(ctx context.Context, langs []string) error {
	b, err := json.Marshal(languageSupport{Languages: langs})
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO site (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		languageSupportKey, string(b),
	)
	return err
}

func newDocumentID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}
