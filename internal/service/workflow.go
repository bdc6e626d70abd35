package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/umbcsclub/eventbot/internal/domain"
)

// Workflow is one create, update or delete interaction. It owns the draft and
// the rendered preview, and its confirm/cancel gate fires at most once.
//
//	Collecting -> PendingConfirm -> Translating -> Persisted | Failed
//	Collecting | PendingConfirm -> Cancelled
//
// Delete workflows start in PendingConfirm and skip Translating.
type Workflow struct {
	ID        string
	Flow      domain.Flow
	Operator  domain.Operator
	CreatedAt time.Time

	mu       sync.Mutex
	state    domain.State
	fired    bool
	existing *domain.Event
	draft    domain.Draft
	start    time.Time
	end      time.Time
	preview  domain.Preview
	eventID  string
	err      error
}

func newWorkflow(flow domain.Flow, op domain.Operator, existing *domain.Event, now time.Time) *Workflow {
	w := &Workflow{
		ID:        uuid.NewString(),
		Flow:      flow,
		Operator:  op,
		CreatedAt: now,
		state:     domain.StateCollecting,
		existing:  existing,
	}
	if existing != nil {
		w.eventID = existing.ID
	}
	return w
}

// State returns the current state.
func (w *Workflow) State() domain.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Draft returns the draft the operator is editing.
func (w *Workflow) Draft() domain.Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Preview returns a copy of the rendered preview.
func (w *Workflow) Preview() domain.Preview {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := w.preview
	p.Fields = append([]domain.PreviewField(nil), w.preview.Fields...)
	return p
}

// EventID is the target event, or the assigned id once a create persisted.
func (w *Workflow) EventID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.eventID
}

// Err is the failure of a Failed workflow.
func (w *Workflow) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *Workflow) setDraft(d domain.Draft) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft = d
}

// stage records a validated draft and moves to PendingConfirm.
func (w *Workflow) stage(d domain.Draft, start, end time.Time, preview domain.Preview) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != domain.StateCollecting {
		return false
	}
	w.draft = d
	w.start = start
	w.end = end
	w.preview = preview
	w.state = domain.StatePendingConfirm
	return true
}

// pendingDelete moves a delete workflow straight to PendingConfirm.
func (w *Workflow) pendingDelete(preview domain.Preview) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.preview = preview
	w.state = domain.StatePendingConfirm
}

// fireConfirm closes the gate for a confirm. It reports false when the gate
// already fired or the workflow is not awaiting confirmation.
func (w *Workflow) fireConfirm() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fired || w.state != domain.StatePendingConfirm {
		return false
	}
	w.fired = true
	if w.Flow.Translates() {
		w.state = domain.StateTranslating
	}
	return true
}

// fireCancel closes the gate for a cancel and marks the workflow Cancelled.
func (w *Workflow) fireCancel() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fired || (w.state != domain.StateCollecting && w.state != domain.StatePendingConfirm) {
		return false
	}
	w.fired = true
	w.state = domain.StateCancelled
	w.preview.Status = domain.StatusCancelled
	return true
}

func (w *Workflow) persisted(eventID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = domain.StatePersisted
	w.preview.Status = domain.StatusConfirmed
	if eventID != "" {
		w.eventID = eventID
		w.preview.EventID = eventID
	}
}

func (w *Workflow) failed(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = domain.StateFailed
	w.preview.Status = domain.StatusFailed
	w.err = err
}

func (w *Workflow) schedule() (time.Time, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.start, w.end
}
