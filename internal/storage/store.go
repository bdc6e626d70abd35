package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/umbcsclub/eventbot/internal/domain"
)

// ErrNoDocument is returned when a write targets a document that does not exist.
var ErrNoDocument = errors.New("document does not exist")

const languageSupportKey = "language_support"

type languageSupport struct {
	Languages []string `json:"languages" firestore:"languages"`
}

// Store is the document store the bot persists events in.
type Store interface {
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	ListEvents(ctx context.Context) ([]*domain.Event, error)
	InsertEvent(ctx context.Context, e *domain.Event) (string, error)
	// ReplaceEvent overwrites title, description, location and times.
	// Attendees are only written through SetAttendees.
	ReplaceEvent(ctx context.Context, e *domain.Event) error
	SetAttendees(ctx context.Context, id string, attendees []string) error
	DeleteEvent(ctx context.Context, id string) error
	SupportedLanguages(ctx context.Context) ([]string, error)
	SetSupportedLanguages(ctx context.Context, langs []string) error
	Close() error
}

// Backends.
const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend          string
	DatabasePath     string
	ProjectID        string
	CredentialsFile  string
	DefaultLanguages []string
	Timezone         *time.Location
}

// Open connects to the configured backend. Local backends get the language
// document seeded with DefaultLanguages when it is missing.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		store Store
		err   error
	)
	switch opts.Backend {
	case BackendSQLite, "":
		store, err = New(opts.DatabasePath, opts.Timezone)
	case BackendFirestore:
		return NewFirestore(ctx, opts.ProjectID, opts.CredentialsFile, opts.Timezone)
	case BackendMemory:
		store = NewMemory()
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := seedLanguages(ctx, store, opts.DefaultLanguages); err != nil {
		store.Close()
		return nil, fmt.Errorf("seed languages: %w", err)
	}
	return store, nil
}

func seedLanguages(ctx context.Context, store Store, langs []string) error {
	if len(langs) == 0 {
		return nil
	}
	existing, err := store.SupportedLanguages(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	return store.SetSupportedLanguages(ctx, langs)
}
