package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/umbcsclub/eventbot/internal/domain"
)

// Memory is an in-process Store used for local development and tests.
type Memory struct {
	mu        sync.RWMutex
	order     []string
	events    map[string]*domain.Event
	languages []string
}

func NewMemory() *Memory {
	return &Memory{events: make(map[string]*domain.Event)}
}

func (m *Memory) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.events[id]
	if !ok {
		return nil, nil
	}
	return e.Clone(), nil
}

func (m *Memory) ListEvents(_ context.Context) ([]*domain.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := make([]*domain.Event, 0, len(m.order))
	for _, id := range m.order {
		events = append(events, m.events[id].Clone())
	}
	return events, nil
}

func (m *Memory) InsertEvent(_ context.Context, e *domain.Event) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := e.Clone()
	stored.ID = newDocumentID()
	if stored.Attendees == nil {
		stored.Attendees = []string{}
	}
	m.events[stored.ID] = stored
	m.order = append(m.order, stored.ID)
	return stored.ID, nil
}

func (m *Memory) ReplaceEvent(_ context.Context, e *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.events[e.ID]
	if !ok {
		return fmt.Errorf("event %s: %w", e.ID, ErrNoDocument)
	}
	next := e.Clone()
	next.Attendees = append([]string{}, stored.Attendees...)
	m.events[e.ID] = next
	return nil
}

func (m *Memory) SetAttendees(_ context.Context, id string, attendees []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.events[id]
	if !ok {
		return fmt.Errorf("event %s: %w", id, ErrNoDocument)
	}
	stored.Attendees = append([]string{}, attendees...)
	return nil
}

func (m *Memory) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return nil
	}
	delete(m.events, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) SupportedLanguages(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.languages...), nil
}

func (m *Memory) SetSupportedLanguages(_ context.Context, langs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.languages = append([]string(nil), langs...)
	return nil
}

func (m *Memory) Close() error { return nil }
