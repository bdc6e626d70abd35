package domain

// Flow is the kind of mutation a workflow performs.
type Flow string

const (
	FlowCreate Flow = "create"
	FlowUpdate Flow = "update"
	FlowDelete Flow = "delete"
)

// Translates reports whether the flow runs the translation fan-out.
func (f Flow) Translates() bool {
	return f == FlowCreate || f == FlowUpdate
}

// State is a workflow state.
type State int

const (
	StateCollecting State = iota
	StatePendingConfirm
	StateTranslating
	StatePersisted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StatePendingConfirm:
		return "pending_confirm"
	case StateTranslating:
		return "translating"
	case StatePersisted:
		return "persisted"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StatePersisted || s == StateCancelled || s == StateFailed
}

// Status is the operator-facing status shown on a preview.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Emoji returns the status color marker
func (s Status) Emoji() string {
	switch s {
	case StatusPending:
		return "🟡"
	case StatusConfirmed:
		return "🟢"
	case StatusCancelled:
		return "🔴"
	case StatusFailed:
		return "⚠️"
	default:
		return "⚪"
	}
}

// PreviewField is one titled line of a preview. Old is empty for create previews.
type PreviewField struct {
	Name    string
	Old     string
	New     string
	Changed bool
}

// Preview is the human-readable summary of a pending change.
type Preview struct {
	Flow    Flow
	EventID string
	Fields  []PreviewField
	Status  Status
	Author  string
}
