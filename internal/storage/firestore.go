package storage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/umbcsclub/eventbot/internal/domain"
)

const (
	eventsCollection = "events"
	siteCollection   = "site"
)

// eventDoc is the document shape the club website reads.
type eventDoc struct {
	Title map[string]string `firestore:"title"`
	Desc  map[string]string `firestore:"desc"`
	Where map[string]string `firestore:"where"`
	Start time.Time         `firestore:"start"`
	End   time.Time         `firestore:"end"`
	Who   []string          `firestore:"who"`
}

// Firestore stores events in a Cloud Firestore database.
type Firestore struct {
	client *firestore.Client
	tz     *time.Location
}

// NewFirestore connects to the project's default database. An empty
// credentialsFile falls back to application default credentials.
func NewFirestore(ctx context.Context, projectID, credentialsFile string, tz *time.Location) (*Firestore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firestore project id is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	if tz == nil {
		tz = time.UTC
	}
	return &Firestore{client: client, tz: tz}, nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) toEvent(snap *firestore.DocumentSnapshot) (*domain.Event, error) {
	var doc eventDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode event %s: %w", snap.Ref.ID, err)
	}
	who := doc.Who
	if who == nil {
		who = []string{}
	}
	return &domain.Event{
		ID:          snap.Ref.ID,
		Title:       domain.LocalizedText(doc.Title),
		Description: domain.LocalizedText(doc.Desc),
		Location:    domain.LocalizedText(doc.Where),
		Start:       doc.Start.In(f.tz),
		End:         doc.End.In(f.tz),
		Attendees:   who,
	}, nil
}

func fromEvent(e *domain.Event) eventDoc {
	return eventDoc{
		Title: nonNilText(e.Title),
		Desc:  nonNilText(e.Description),
		Where: nonNilText(e.Location),
		Start: e.Start,
		End:   e.End,
		Who:   nonNilAttendees(e.Attendees),
	}
}

// GetEvent returns an event by ID, or nil when it does not exist
func (f *Firestore) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	ref := f.client.Collection(eventsCollection).Doc(id)
	if ref == nil {
		return nil, nil
	}
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f.toEvent(snap)
}

// ListEvents streams the whole events collection
func (f *Firestore) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	iter := f.client.Collection(eventsCollection).Documents(ctx)
	defer iter.Stop()

	var events []*domain.Event
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		e, err := f.toEvent(snap)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// InsertEvent adds a document with a store-generated ID
func (f *Firestore) InsertEvent(ctx context.Context, e *domain.Event) (string, error) {
	ref, _, err := f.client.Collection(eventsCollection).Add(ctx, fromEvent(e))
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

// ReplaceEvent overwrites the content of an existing document; it never
// creates one and leaves "who" untouched.
func (f *Firestore) ReplaceEvent(ctx context.Context, e *domain.Event) error {
	ref := f.client.Collection(eventsCollection).Doc(e.ID)
	if ref == nil {
		return fmt.Errorf("event %q: %w", e.ID, ErrNoDocument)
	}
	doc := fromEvent(e)
	return f.update(ctx, ref, e.ID, []firestore.Update{
		{Path: "title", Value: doc.Title},
		{Path: "desc", Value: doc.Desc},
		{Path: "where", Value: doc.Where},
		{Path: "start", Value: doc.Start},
		{Path: "end", Value: doc.End},
	})
}

// SetAttendees replaces the "who" list of an existing document
func (f *Firestore) SetAttendees(ctx context.Context, id string, attendees []string) error {
	ref := f.client.Collection(eventsCollection).Doc(id)
	if ref == nil {
		return fmt.Errorf("event %q: %w", id, ErrNoDocument)
	}
	return f.update(ctx, ref, id, []firestore.Update{{Path: "who", Value: nonNilAttendees(attendees)}})
}

func (f *Firestore) update(ctx context.Context, ref *firestore.DocumentRef, id string, updates []firestore.Update) error {
	return f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("event %s: %w", id, ErrNoDocument)
			}
			return err
		}
		return tx.Update(ref, updates)
	})
}

func (f *Firestore) DeleteEvent(ctx context.Context, id string) error {
	ref := f.client.Collection(eventsCollection).Doc(id)
	if ref == nil {
		return nil
	}
	_, err := ref.Delete(ctx)
	return err
}

func (f *Firestore) SupportedLanguages(ctx context.Context) ([]string, error) {
	snap, err := f.client.Collection(siteCollection).Doc(languageSupportKey).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc languageSupport
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode language support: %w", err)
	}
	return doc.Languages, nil
}

func (f *Firestore) SetSupportedLanguages(ctx context.Context, langs []string) error {
	_, err := f.client.Collection(siteCollection).Doc(languageSupportKey).Set(ctx, languageSupport{Languages: langs})
	return err
}
