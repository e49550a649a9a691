package dispatch

import (
	"sync"

	"github.com/google/uuid"

	"luna/internal/llm"
)

// Session is the conversation shared with the model. It lives in memory
// only and is never persisted. Turns are only ever appended; Reset is the
// one way to drop them.
type Session struct {
	mu    sync.Mutex
	id    string
	turns []llm.Turn
}

func NewSession() *Session {
	return &Session{id: uuid.NewString()}
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) Append(turns ...llm.Turn) {
	s.mu.Lock()
	s.turns = append(s.turns, turns...)
	s.mu.Unlock()
}

// History returns a copy of the turns so far.
func (s *Session) History() []llm.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Turn(nil), s.turns...)
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Reset drops the history and starts a new session id.
func (s *Session) Reset() {
	s.mu.Lock()
	s.turns = nil
	s.id = uuid.NewString()
	s.mu.Unlock()
}
