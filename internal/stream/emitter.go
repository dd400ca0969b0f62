package stream

import (
	"log/slog"
	"sync"

	"ragpipe/internal/domain"
)

// DefaultCapacity bounds the per-session backlog of undelivered progress
// events.
const DefaultCapacity = 64

// Emitter buffers and delivers session events in emit order. A stalled
// consumer never blocks the producer: when a session's backlog is full the
// oldest non-terminal update is dropped. The terminal answer/error event is
// never dropped and is always delivered; after it, further emits for the
// session are no-ops.
type Emitter struct {
	mu       sync.Mutex
	sessions map[string]*sessionStream
	capacity int
	logger   *slog.Logger
}

type sessionStream struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []domain.Event
	sealed   bool // terminal event enqueued
	pumping  bool
	capacity int
}

// NewEmitter creates an emitter with the given per-session buffer capacity
// (DefaultCapacity when non-positive).
func NewEmitter(capacity int, logger *slog.Logger) *Emitter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		sessions: make(map[string]*sessionStream),
		capacity: capacity,
		logger:   logger,
	}
}

func (e *Emitter) stream(sessionID string) *sessionStream {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.sessions[sessionID]
	if !ok {
		st = &sessionStream{capacity: e.capacity}
		st.cond = sync.NewCond(&st.mu)
		e.sessions[sessionID] = st
	}
	return st
}

// Emit appends an event to the session's stream.
func (e *Emitter) Emit(sessionID string, event domain.Event) {
	st := e.stream(sessionID)

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.sealed {
		return
	}

	if len(st.buf) >= st.capacity {
		// The head is never terminal here: a terminal event seals the
		// stream, so only progress updates can pile up.
		st.buf = st.buf[1:]
		e.logger.Debug("dropped buffered update", "session_id", sessionID)
	}
	st.buf = append(st.buf, event)
	if event.Terminal() {
		st.sealed = true
	}
	st.cond.Signal()
}

// Subscribe returns the session's event channel. The channel yields events in
// emit order and is closed after the terminal event. One consumer per
// session.
func (e *Emitter) Subscribe(sessionID string) <-chan domain.Event {
	st := e.stream(sessionID)
	out := make(chan domain.Event)

	st.mu.Lock()
	if st.pumping {
		st.mu.Unlock()
		close(out)
		return out
	}
	st.pumping = true
	st.mu.Unlock()

	go func() {
		for {
			st.mu.Lock()
			for len(st.buf) == 0 {
				st.cond.Wait()
			}
			event := st.buf[0]
			st.buf = st.buf[1:]
			st.mu.Unlock()

			out <- event
			if event.Terminal() {
				close(out)
				e.release(sessionID)
				return
			}
		}
	}()
	return out
}

// release drops a finished session's buffer. The stream stays sealed for the
// producer side via the session map until this runs; emits racing with
// release recreate an empty stream that no consumer reads, which is harmless
// because the orchestrator emits nothing after its terminal event.
func (e *Emitter) release(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, sessionID)
}

// ActiveSessions returns the number of sessions whose streams have not been
// released yet.
func (e *Emitter) ActiveSessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}
