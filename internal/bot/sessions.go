package bot

import "sync"

type formKey struct {
	chatID int64
	userID int64
}

// pendingForm links an operator's open form message to its workflow.
type pendingForm struct {
	workflowID string
	messageID  int
}

// formSessions tracks at most one open form per operator and chat.
type formSessions struct {
	mu    sync.Mutex
	forms map[formKey]pendingForm
}

func newFormSessions() *formSessions {
	return &formSessions{forms: make(map[formKey]pendingForm)}
}

// put opens a form and returns the one it replaced, if any.
func (s *formSessions) put(k formKey, f pendingForm) (pendingForm, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.forms[k]
	s.forms[k] = f
	return prev, ok
}

func (s *formSessions) get(k formKey) (pendingForm, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forms[k]
	return f, ok
}

func (s *formSessions) remove(k formKey) (pendingForm, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forms[k]
	delete(s.forms, k)
	return f, ok
}
