package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEventTerminal(t *testing.T) {
	if NodeUpdate("planning").Terminal() {
		t.Error("node_update must not be terminal")
	}
	if !AnswerEvent(Answer{}).Terminal() {
		t.Error("answer must be terminal")
	}
	if !ErrorEvent("boom").Terminal() {
		t.Error("error must be terminal")
	}
}

func TestAnswerEventMarshal_EmptyCitations(t *testing.T) {
	data, err := json.Marshal(AnswerEvent(Answer{Text: "no evidence"}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"citations":[]`) {
		t.Errorf("expected empty citations array on the wire, got %s", data)
	}
}

func TestAnswerEventMarshal_WithCitations(t *testing.T) {
	answer := Answer{
		Text: "found it",
		Citations: []Citation{
			{DocID: "doc-1", ChunkID: "chunk-1", Section: "2.1", Score: 0.9},
		},
	}
	data, err := json.Marshal(AnswerEvent(answer))
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["type"] != "answer" {
		t.Errorf("expected type answer, got %v", decoded["type"])
	}
	citations, ok := decoded["citations"].([]any)
	if !ok || len(citations) != 1 {
		t.Fatalf("expected one citation, got %v", decoded["citations"])
	}
}

func TestNodeUpdateMarshal(t *testing.T) {
	data, err := json.Marshal(NodeUpdate("searching candidates"))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"node_update","summary":"searching candidates"}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}
}

func TestErrorEventMarshal(t *testing.T) {
	data, err := json.Marshal(ErrorEvent("cancelled"))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"error","message":"cancelled"}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}
}
