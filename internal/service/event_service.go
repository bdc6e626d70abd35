package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/umbcsclub/eventbot/internal/domain"
)

// EventStore is the document store the workflows read and write.
type EventStore interface {
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	ListEvents(ctx context.Context) ([]*domain.Event, error)
	InsertEvent(ctx context.Context, e *domain.Event) (string, error)
	ReplaceEvent(ctx context.Context, e *domain.Event) error
	DeleteEvent(ctx context.Context, id string) error
}

// EventMirror receives persisted changes for best-effort replication.
type EventMirror interface {
	Publish(ctx context.Context, e *domain.Event) error
	Remove(ctx context.Context, id string) error
}

// EventServiceConfig carries the reference settings of the workflows.
type EventServiceConfig struct {
	Timezone          *time.Location
	ReferenceLanguage string
	SuggestionLimit   int
}

// Outcome is the result of firing a workflow gate.
type Outcome struct {
	WorkflowID string
	Flow       domain.Flow
	State      domain.State
	EventID    string
	Preview    domain.Preview
}

// EventService drives the create/update/delete workflows and the read-side
// lookups shared by the bot commands.
type EventService struct {
	store        EventStore
	languages    *LanguageCatalog
	translations *TranslationService
	mirror       EventMirror
	validate     *validator.Validate
	tz           *time.Location
	refLang      string
	suggestLimit int
	logger       *zap.Logger
	metrics      *MetricsService
	now          func() time.Time

	mu        sync.Mutex
	workflows map[string]*Workflow
}

func NewEventService(store EventStore, languages *LanguageCatalog, translations *TranslationService, validate *validator.Validate, cfg EventServiceConfig, logger *zap.Logger, metrics *MetricsService) *EventService {
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.ReferenceLanguage == "" {
		cfg.ReferenceLanguage = "en"
	}
	if cfg.SuggestionLimit <= 0 {
		cfg.SuggestionLimit = 25
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{
		store:        store,
		languages:    languages,
		translations: translations,
		validate:     validate,
		tz:           cfg.Timezone,
		refLang:      cfg.ReferenceLanguage,
		suggestLimit: cfg.SuggestionLimit,
		logger:       logger,
		metrics:      metrics,
		now:          time.Now,
		workflows:    make(map[string]*Workflow),
	}
}

// SetMirror attaches a replication target for persisted changes.
func (s *EventService) SetMirror(m EventMirror) {
	s.mirror = m
}

// ReferenceLanguage is the language operators type in.
func (s *EventService) ReferenceLanguage() string {
	return s.refLang
}

// Timezone is the reference timezone of event times.
func (s *EventService) Timezone() *time.Location {
	return s.tz
}

// === Workflows ===

// StartCreate opens a create workflow awaiting the operator's form.
func (s *EventService) StartCreate(ctx context.Context, op domain.Operator) *Workflow {
	w := newWorkflow(domain.FlowCreate, op, nil, s.now())
	s.register(w)
	return w
}

// StartUpdate opens an update workflow with the draft pre-populated from the
// existing event's reference-language values.
func (s *EventService) StartUpdate(ctx context.Context, op domain.Operator, id string) (*Workflow, error) {
	existing, err := s.ResolveEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	w := newWorkflow(domain.FlowUpdate, op, existing, s.now())
	w.setDraft(existing.Draft(s.refLang))
	s.register(w)
	return w, nil
}

// StartDelete opens a delete workflow already awaiting confirmation.
func (s *EventService) StartDelete(ctx context.Context, op domain.Operator, id string) (*Workflow, error) {
	existing, err := s.ResolveEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	w := newWorkflow(domain.FlowDelete, op, existing, s.now())
	w.pendingDelete(s.deletePreview(op, existing))
	s.register(w)
	return w, nil
}

// Workflow returns an in-flight workflow.
func (s *EventService) Workflow(id string) (*Workflow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workflows[id]
	return w, ok
}

// Submit validates the operator's form and renders the preview. A validation
// error leaves the workflow collecting so the form can be sent again.
func (s *EventService) Submit(ctx context.Context, workflowID string, draft domain.Draft) (domain.Preview, error) {
	w, ok := s.Workflow(workflowID)
	if !ok || w.State() != domain.StateCollecting {
		return domain.Preview{}, domain.ErrGateClosed
	}

	draft = draft.Normalize()
	if err := s.validate.Struct(draft); err != nil {
		return domain.Preview{}, draftError(err)
	}
	start, end, err := domain.ParseSchedule(draft.Date, draft.TimeRange, s.tz)
	if err != nil {
		return domain.Preview{}, err
	}

	var preview domain.Preview
	if w.Flow == domain.FlowUpdate {
		preview = s.updatePreview(w.Operator, w.existing, draft)
	} else {
		preview = s.createPreview(w.Operator, draft)
	}

	if !w.stage(draft, start, end, preview) {
		return domain.Preview{}, domain.ErrGateClosed
	}
	s.logger.Info("workflow pending confirmation",
		zap.String("workflow_id", w.ID),
		zap.String("flow", string(w.Flow)),
		zap.Int64("operator", w.Operator.TelegramID),
	)
	return w.Preview(), nil
}

// Confirm fires the gate: translate (create/update) and persist. A second
// confirm or a confirm after cancel returns domain.ErrGateClosed and does
// nothing. A failed store write yields a Failed outcome and an
// ErrPersistence-coded error.
func (s *EventService) Confirm(ctx context.Context, workflowID string) (Outcome, error) {
	w, ok := s.Workflow(workflowID)
	if !ok || !w.fireConfirm() {
		return Outcome{}, domain.ErrGateClosed
	}
	defer s.release(w)

	var err error
	switch w.Flow {
	case domain.FlowCreate:
		err = s.persistCreate(ctx, w)
	case domain.FlowUpdate:
		err = s.persistUpdate(ctx, w)
	case domain.FlowDelete:
		err = s.persistDelete(ctx, w)
	}

	if err != nil {
		perr := domain.Wrap(err, domain.CodePersistence, domain.ErrPersistence.Message)
		w.failed(perr)
		s.metrics.ObserveWorkflow(string(w.Flow), "failed")
		s.logger.Error("workflow persistence failed",
			zap.String("workflow_id", w.ID),
			zap.String("flow", string(w.Flow)),
			zap.String("event_id", w.EventID()),
			zap.Error(err),
		)
		return s.outcome(w), perr
	}

	s.metrics.ObserveWorkflow(string(w.Flow), "persisted")
	s.logger.Info("workflow persisted",
		zap.String("workflow_id", w.ID),
		zap.String("flow", string(w.Flow)),
		zap.String("event_id", w.EventID()),
		zap.Int64("operator", w.Operator.TelegramID),
	)
	return s.outcome(w), nil
}

// Cancel fires the gate without touching the store.
func (s *EventService) Cancel(ctx context.Context, workflowID string) (Outcome, error) {
	w, ok := s.Workflow(workflowID)
	if !ok || !w.fireCancel() {
		return Outcome{}, domain.ErrGateClosed
	}
	s.release(w)
	s.metrics.ObserveWorkflow(string(w.Flow), "cancelled")
	s.logger.Info("workflow cancelled",
		zap.String("workflow_id", w.ID),
		zap.String("flow", string(w.Flow)),
		zap.Int64("operator", w.Operator.TelegramID),
	)
	return s.outcome(w), nil
}

func (s *EventService) persistCreate(ctx context.Context, w *Workflow) error {
	draft := w.Draft()
	fields, err := s.translate(ctx, draft)
	if err != nil {
		return err
	}
	start, end := w.schedule()
	e := &domain.Event{
		Title:       fields.Title,
		Description: fields.Description,
		Location:    fields.Location,
		Start:       start,
		End:         end,
		Attendees:   []string{},
	}
	id, err := s.store.InsertEvent(ctx, e)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	e.ID = id
	w.persisted(id)
	s.publish(ctx, e)
	return nil
}

func (s *EventService) persistUpdate(ctx context.Context, w *Workflow) error {
	draft := w.Draft()
	fields, err := s.translate(ctx, draft)
	if err != nil {
		return err
	}
	start, end := w.schedule()
	e := &domain.Event{
		ID:          w.existing.ID,
		Title:       fields.Title,
		Description: fields.Description,
		Location:    fields.Location,
		Start:       start,
		End:         end,
	}
	if err := s.store.ReplaceEvent(ctx, e); err != nil {
		return fmt.Errorf("replace event %s: %w", e.ID, err)
	}
	w.persisted("")
	s.publish(ctx, e)
	return nil
}

func (s *EventService) persistDelete(ctx context.Context, w *Workflow) error {
	id := w.existing.ID
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	w.persisted("")
	if s.mirror != nil {
		if err := s.mirror.Remove(ctx, id); err != nil {
			s.metrics.ObserveMirrorError()
			s.logger.Warn("calendar mirror remove failed", zap.String("event_id", id), zap.Error(err))
		}
	}
	return nil
}

func (s *EventService) translate(ctx context.Context, draft domain.Draft) (TranslatedFields, error) {
	langs, err := s.languages.Languages(ctx)
	if err != nil {
		return TranslatedFields{}, err
	}
	return s.translations.FanOut(ctx, draft, withReference(langs, s.refLang)), nil
}

func (s *EventService) publish(ctx context.Context, e *domain.Event) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Publish(ctx, e); err != nil {
		s.metrics.ObserveMirrorError()
		s.logger.Warn("calendar mirror publish failed", zap.String("event_id", e.ID), zap.Error(err))
	}
}

func (s *EventService) register(w *Workflow) {
	s.mu.Lock()
	s.workflows[w.ID] = w
	s.mu.Unlock()
	s.logger.Debug("workflow started",
		zap.String("workflow_id", w.ID),
		zap.String("flow", string(w.Flow)),
		zap.Int64("operator", w.Operator.TelegramID),
	)
}

func (s *EventService) release(w *Workflow) {
	s.mu.Lock()
	delete(s.workflows, w.ID)
	s.mu.Unlock()
}

func (s *EventService) outcome(w *Workflow) Outcome {
	return Outcome{
		WorkflowID: w.ID,
		Flow:       w.Flow,
		State:      w.State(),
		EventID:    w.EventID(),
		Preview:    w.Preview(),
	}
}

// withReference makes sure the reference language is always stored.
func withReference(langs []string, ref string) []string {
	for _, l := range langs {
		if l == ref {
			return langs
		}
	}
	return append([]string{ref}, langs...)
}

// === Previews ===

func (s *EventService) createPreview(op domain.Operator, d domain.Draft) domain.Preview {
	return domain.Preview{
		Flow:   domain.FlowCreate,
		Status: domain.StatusPending,
		Author: op.Mention(),
		Fields: []domain.PreviewField{
			{Name: "Title", New: d.Title, Changed: true},
			{Name: "Date", New: d.Date, Changed: true},
			{Name: "Time", New: d.TimeRange, Changed: true},
			{Name: "Location", New: d.Location, Changed: true},
			{Name: "Description", New: d.Description, Changed: true},
		},
	}
}

func (s *EventService) updatePreview(op domain.Operator, old *domain.Event, d domain.Draft) domain.Preview {
	prev := old.Draft(s.refLang)
	field := func(name, before, after string) domain.PreviewField {
		return domain.PreviewField{Name: name, Old: before, New: after, Changed: before != after}
	}
	return domain.Preview{
		Flow:    domain.FlowUpdate,
		EventID: old.ID,
		Status:  domain.StatusPending,
		Author:  op.Mention(),
		Fields: []domain.PreviewField{
			field("Title", prev.Title, d.Title),
			field("Date", prev.Date, d.Date),
			field("Time", prev.TimeRange, d.TimeRange),
			field("Location", prev.Location, d.Location),
			field("Description", prev.Description, d.Description),
		},
	}
}

func (s *EventService) deletePreview(op domain.Operator, e *domain.Event) domain.Preview {
	d := e.Draft(s.refLang)
	return domain.Preview{
		Flow:    domain.FlowDelete,
		EventID: e.ID,
		Status:  domain.StatusPending,
		Author:  op.Mention(),
		Fields: []domain.PreviewField{
			{Name: "Title", Old: d.Title},
			{Name: "Date", Old: d.Date},
			{Name: "Time", Old: d.TimeRange},
			{Name: "Location", Old: d.Location},
		},
	}
}

// === Lookups ===

// ResolveEvent returns the event with id, or domain.ErrNotFound.
func (s *EventService) ResolveEvent(ctx context.Context, id string) (*domain.Event, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.Validation("please provide an event ID")
	}
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if e == nil {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

// ResolveLanguage returns domain.ErrUnsupportedLanguage unless code is supported.
func (s *EventService) ResolveLanguage(ctx context.Context, code string) error {
	ok, err := s.languages.IsSupported(ctx, code)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnsupportedLanguage
	}
	return nil
}

// ListEvents returns every event, or only id when set, after checking that
// the id exists and the language is supported. An empty lang means the
// reference language.
func (s *EventService) ListEvents(ctx context.Context, id, lang string) ([]*domain.Event, string, error) {
	if lang == "" {
		lang = s.refLang
	}
	if id != "" {
		if _, err := s.ResolveEvent(ctx, id); err != nil {
			return nil, "", err
		}
	}
	if err := s.ResolveLanguage(ctx, lang); err != nil {
		return nil, "", err
	}

	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("list events: %w", err)
	}
	if id == "" {
		return events, lang, nil
	}
	for _, e := range events {
		if e.ID == id {
			return []*domain.Event{e}, lang, nil
		}
	}
	return nil, lang, nil
}

// CheckLanguages fails when the language document does not list the
// reference language, since every stored event must carry its text.
func (s *EventService) CheckLanguages(ctx context.Context) error {
	ok, err := s.languages.IsSupported(ctx, s.refLang)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("reference language %q is missing from the supported languages", s.refLang)
	}
	return nil
}

// Languages returns every supported language code.
func (s *EventService) Languages(ctx context.Context) ([]string, error) {
	return s.languages.Languages(ctx)
}

// SuggestEventIDs returns event ids containing partial, case-insensitively,
// in store order and capped at the suggestion limit.
func (s *EventService) SuggestEventIDs(ctx context.Context, partial string) ([]string, error) {
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return matchSubstring(ids, partial, s.suggestLimit), nil
}

// SuggestLanguages returns supported language codes containing partial.
func (s *EventService) SuggestLanguages(ctx context.Context, partial string) ([]string, error) {
	langs, err := s.languages.Languages(ctx)
	if err != nil {
		return nil, err
	}
	return matchSubstring(langs, partial, s.suggestLimit), nil
}

func matchSubstring(values []string, partial string, limit int) []string {
	needle := strings.ToLower(strings.TrimSpace(partial))
	out := []string{}
	for _, v := range values {
		if len(out) == limit {
			break
		}
		if strings.Contains(strings.ToLower(v), needle) {
			out = append(out, v)
		}
	}
	return out
}

// === Validation ===

var draftFieldNames = map[string]string{
	"Title":       "title",
	"Date":        "date",
	"TimeRange":   "time",
	"Location":    "location",
	"Description": "description",
}

func draftError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Wrap(err, domain.CodeValidation, "invalid event details")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := draftFieldNames[fe.Field()]
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, name+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", name, fe.Param()))
		default:
			msgs = append(msgs, name+" is invalid")
		}
	}
	return domain.Validation(strings.Join(msgs, "; "))
}
