package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ragpipe/internal/domain"
)

func newServerEmbedder(t *testing.T, handler http.HandlerFunc) (*OpenAIEmbedder, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	t.Setenv("TEST_API_KEY", "test-key")
	e, err := NewOpenAICompatibleEmbedder("TEST_API_KEY", "text-embedding-3-small", ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	return e, ts
}

func TestEmbed_ParsesResponse(t *testing.T) {
	e, _ := newServerEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		// Out-of-order data entries must land at their declared index.
		json.NewEncoder(w).Encode(embeddingResponse{Data: []embeddingData{
			{Index: 1, Embedding: []float32{0.2}},
			{Index: 0, Embedding: []float32{0.1}},
		}})
	})

	got, err := e.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(got))
	}
	if got[0][0] != 0.1 || got[1][0] != 0.2 {
		t.Errorf("embeddings not ordered by index: %v", got)
	}
}

func TestEmbed_ServerErrorIsTransient(t *testing.T) {
	e, _ := newServerEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := e.Embed(context.Background(), []string{"text"})
	if !domain.IsTransient(err) {
		t.Errorf("5xx should be transient, got %v", err)
	}
}

func TestEmbed_RateLimitIsTransient(t *testing.T) {
	e, _ := newServerEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := e.Embed(context.Background(), []string{"text"})
	if !domain.IsTransient(err) {
		t.Errorf("429 should be transient, got %v", err)
	}
}

func TestEmbed_ClientErrorIsPermanent(t *testing.T) {
	e, _ := newServerEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad model", http.StatusBadRequest)
	})

	_, err := e.Embed(context.Background(), []string{"text"})
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.IsTransient(err) {
		t.Errorf("4xx should not be transient: %v", err)
	}
}

func TestEmbed_ConnectionErrorIsTransient(t *testing.T) {
	e, ts := newServerEmbedder(t, func(w http.ResponseWriter, r *http.Request) {})
	ts.Close()

	_, err := e.Embed(context.Background(), []string{"text"})
	if !domain.IsTransient(err) {
		t.Errorf("connection failure should be transient, got %v", err)
	}
}

func TestEmbed_EmptyInput(t *testing.T) {
	e, _ := newServerEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	})

	got, err := e.Embed(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(8)

	first, err := e.Embed(context.Background(), []string{"same text"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Embed(context.Background(), []string{"same text"})
	if err != nil {
		t.Fatal(err)
	}
	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatalf("mock embeddings differ at %d", i)
		}
	}
	if len(first[0]) != 8 {
		t.Errorf("expected dimension 8, got %d", len(first[0]))
	}
}
