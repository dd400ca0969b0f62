package domain

import (
	"sync"
	"sync/atomic"
	"time"
)

// SessionState is a pipeline state of a query session.
type SessionState string

const (
	StateInit         SessionState = "INIT"
	StatePlanning     SessionState = "PLANNING"
	StateSearching    SessionState = "SEARCHING"
	StateScoring      SessionState = "SCORING"
	StateSynthesizing SessionState = "SYNTHESIZING"
	StateDone         SessionState = "DONE"
	StateError        SessionState = "ERROR"
	StateCancelled    SessionState = "CANCELLED"
)

// Terminal reports whether s ends the session.
func (s SessionState) Terminal() bool {
	return s == StateDone || s == StateError || s == StateCancelled
}

// Exchange is one delivered question/answer pair on a session's transcript.
type Exchange struct {
	QueryID  string
	Question string
	Answer   Answer
	At       time.Time
}

// QuerySession is one client-visible query lifecycle. It is created at intake
// and destroyed when a terminal state is reached. The cancellation flag is
// cooperative: the orchestrator checks it between stages and retry attempts,
// never mid-call.
type QuerySession struct {
	SessionID string
	QueryID   string
	QueryText string
	StartedAt time.Time

	state     atomic.Value // SessionState
	cancelled atomic.Bool

	mu         sync.Mutex
	transcript []Exchange
}

// NewQuerySession creates a session in the INIT state.
func NewQuerySession(sessionID, queryID, queryText string) *QuerySession {
	s := &QuerySession{
		SessionID: sessionID,
		QueryID:   queryID,
		QueryText: queryText,
		StartedAt: time.Now(),
	}
	s.state.Store(StateInit)
	return s
}

// State returns the current pipeline state.
func (s *QuerySession) State() SessionState {
	return s.state.Load().(SessionState)
}

// SetState records a state transition.
func (s *QuerySession) SetState(state SessionState) {
	s.state.Store(state)
}

// Cancel requests cooperative cancellation.
func (s *QuerySession) Cancel() {
	s.cancelled.Store(true)
}

// Cancelled reports whether cancellation has been requested.
func (s *QuerySession) Cancelled() bool {
	return s.cancelled.Load()
}

// RecordAnswer appends a delivered answer to the session transcript. Only
// answers that actually reached the client belong here; failed and cancelled
// sessions leave the transcript untouched.
func (s *QuerySession) RecordAnswer(answer Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, Exchange{
		QueryID:  s.QueryID,
		Question: s.QueryText,
		Answer:   answer,
		At:       time.Now(),
	})
}

// Transcript returns a copy of the delivered question/answer history.
func (s *QuerySession) Transcript() []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Exchange, len(s.transcript))
	copy(out, s.transcript)
	return out
}
