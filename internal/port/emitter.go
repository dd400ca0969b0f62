package port

import "ragpipe/internal/domain"

// Emitter delivers ordered events for a session to its consumer. Events for
// one session arrive in emit order; a stalled consumer never blocks the
// producer. Emitting after the terminal event is a no-op.
type Emitter interface {
	Emit(sessionID string, event domain.Event)
}
