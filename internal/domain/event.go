package domain

import "encoding/json"

// EventType discriminates server-pushed events.
type EventType string

const (
	EventNodeUpdate EventType = "node_update"
	EventAnswer     EventType = "answer"
	EventError      EventType = "error"
)

// Event is one server-pushed message for a session. node_update carries
// Summary, answer carries Text and Citations, error carries Message.
type Event struct {
	Type      EventType  `json:"type"`
	Summary   string     `json:"summary,omitempty"`
	Text      string     `json:"text,omitempty"`
	Citations []Citation `json:"citations,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// Terminal reports whether the event ends the session's stream. Cancellation
// is delivered error-shaped, so answer and error are the only terminal types.
func (e Event) Terminal() bool {
	return e.Type == EventAnswer || e.Type == EventError
}

// MarshalJSON serializes only the fields that belong to the event's type.
// Answer events always carry a citations array, empty when the answer has no
// evidence.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventAnswer:
		citations := e.Citations
		if citations == nil {
			citations = []Citation{}
		}
		return json.Marshal(struct {
			Type      EventType  `json:"type"`
			Text      string     `json:"text"`
			Citations []Citation `json:"citations"`
		}{e.Type, e.Text, citations})
	case EventError:
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Message string    `json:"message"`
		}{e.Type, e.Message})
	default:
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Summary string    `json:"summary"`
		}{e.Type, e.Summary})
	}
}

// NodeUpdate builds a progress event.
func NodeUpdate(summary string) Event {
	return Event{Type: EventNodeUpdate, Summary: summary}
}

// AnswerEvent builds the terminal answer event. Citations are never nil on
// the wire; an evidence-free answer carries an empty list.
func AnswerEvent(a Answer) Event {
	citations := a.Citations
	if citations == nil {
		citations = []Citation{}
	}
	return Event{Type: EventAnswer, Text: a.Text, Citations: citations}
}

// ErrorEvent builds the terminal error event.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}

// QueryRequest is the client intake message.
type QueryRequest struct {
	Type      string `json:"type"`
	QueryID   string `json:"query_id"`
	Content   string `json:"content"`
	SessionID string `json:"session_id"`
}
