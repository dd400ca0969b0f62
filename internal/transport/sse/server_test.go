package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ragpipe/internal/adapter/memory"
	"ragpipe/internal/adapter/rank"
	"ragpipe/internal/adapter/synthesis"
	"ragpipe/internal/domain"
	"ragpipe/internal/stream"
	"ragpipe/internal/usecase"
)

type stubPlanner struct{}

func (stubPlanner) Plan(string) domain.FacetWeights { return domain.DefaultFacetWeights() }

type stubSearch struct {
	candidates []domain.ScoredCandidate
}

func (s *stubSearch) Search(ctx context.Context, queryText string, weights domain.FacetWeights, limit int, alpha float64, filters *domain.HardFilters) ([]domain.ScoredCandidate, error) {
	return s.candidates, nil
}

func newTestServer(t *testing.T, candidates []domain.ScoredCandidate) *httptest.Server {
	t.Helper()
	emitter := stream.NewEmitter(0, nil)
	scorer := rank.NewDecayScorer(memory.NewMemStore(), 6, 0.3)
	orch := usecase.NewOrchestrator(
		stubPlanner{},
		&stubSearch{candidates: candidates},
		scorer,
		synthesis.NewExtractiveSynthesizer(3),
		emitter,
		usecase.DefaultOptions(),
		nil,
	)
	ts := httptest.NewServer(NewServer(orch, emitter, nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func readFrames(resp *http.Response) []string {
	var frames []string
	var current strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			frames = append(frames, current.String())
			current.Reset()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	return frames
}

func TestQuery_StreamsEventsUntilAnswer(t *testing.T) {
	candidates := []domain.ScoredCandidate{
		{Chunk: domain.Chunk{ID: "chunk-1", DocID: "doc-1", Body: "The committee approved the proposal without objections from any member."}, CombinedScore: 0.9},
	}
	ts := newTestServer(t, candidates)

	body := `{"type":"query","content":"what was approved?","session_id":"s1","query_id":"q1"}`
	resp, err := http.Post(ts.URL+"/query", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	frames := readFrames(resp)
	require.NotEmpty(t, frames)

	var types []string
	for _, frame := range frames {
		first := strings.SplitN(frame, "\n", 2)[0]
		require.True(t, strings.HasPrefix(first, "event: "), "frame missing event line: %q", frame)
		types = append(types, strings.TrimPrefix(first, "event: "))
	}
	assert.Equal(t, "answer", types[len(types)-1])
	for _, typ := range types[:len(types)-1] {
		assert.Equal(t, "node_update", typ)
	}

	last := frames[len(frames)-1]
	assert.Contains(t, last, `data: {"type":"answer"`)
	assert.Contains(t, last, `"citations":[{`)
}

func TestQuery_EmptyIndexAnswersWithEmptyCitations(t *testing.T) {
	ts := newTestServer(t, nil)

	body := `{"type":"query","content":"anything?","session_id":"s2"}`
	resp, err := http.Post(ts.URL+"/query", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	frames := readFrames(resp)
	require.NotEmpty(t, frames)
	assert.Contains(t, frames[len(frames)-1], `"citations":[]`)
}

func TestQuery_RejectsBadRequests(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/query", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/query", "application/json", strings.NewReader(`{"type":"subscribe"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQuery_EmptyContentStreamsError(t *testing.T) {
	ts := newTestServer(t, nil)

	body := `{"type":"query","content":"  ","session_id":"s3"}`
	resp, err := http.Post(ts.URL+"/query", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	frames := readFrames(resp)
	require.Len(t, frames, 1)
	assert.True(t, strings.HasPrefix(frames[0], "event: error"))
	assert.Contains(t, frames[0], "invalid query")
}

func TestCancel_ValidatesSession(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/cancel", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/cancel?session_id=unknown", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCancel_RunningSession(t *testing.T) {
	emitter := stream.NewEmitter(0, nil)
	scorer := rank.NewDecayScorer(memory.NewMemStore(), 6, 0.3)
	slow := &slowSearch{started: make(chan struct{})}
	orch := usecase.NewOrchestrator(
		stubPlanner{}, slow, scorer,
		synthesis.NewExtractiveSynthesizer(3),
		emitter, usecase.DefaultOptions(), nil,
	)
	ts := httptest.NewServer(NewServer(orch, emitter, nil).Handler())
	t.Cleanup(ts.Close)

	done := make(chan []string, 1)
	go func() {
		body := `{"type":"query","content":"slow one","session_id":"s-cancel"}`
		resp, err := http.Post(ts.URL+"/query", "application/json", strings.NewReader(body))
		if err != nil {
			done <- nil
			return
		}
		defer resp.Body.Close()
		done <- readFrames(resp)
	}()

	<-slow.started
	resp, err := http.Post(ts.URL+"/cancel?session_id=s-cancel", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case frames := <-done:
		require.NotEmpty(t, frames)
		last := frames[len(frames)-1]
		assert.True(t, strings.HasPrefix(last, "event: error"))
		assert.Contains(t, last, "cancelled")
	case <-time.After(3 * time.Second):
		t.Fatal("stream did not terminate after cancel")
	}
}

func TestQuery_ClientDisconnectReleasesStream(t *testing.T) {
	emitter := stream.NewEmitter(0, nil)
	scorer := rank.NewDecayScorer(memory.NewMemStore(), 6, 0.3)
	slow := &slowSearch{started: make(chan struct{})}
	orch := usecase.NewOrchestrator(
		stubPlanner{}, slow, scorer,
		synthesis.NewExtractiveSynthesizer(3),
		emitter, usecase.DefaultOptions(), nil,
	)
	ts := httptest.NewServer(NewServer(orch, emitter, nil).Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	body := `{"type":"query","content":"slow one","session_id":"s-gone"}`
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.URL+"/query", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	// Walk away mid-session. The session must still run to its terminal
	// event and release its stream.
	<-slow.started
	cancel()
	resp.Body.Close()

	deadline := time.Now().Add(3 * time.Second)
	for emitter.ActiveSessions() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("stream not released after disconnect, %d still active", emitter.ActiveSessions())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type slowSearch struct {
	started chan struct{}
}

func (s *slowSearch) Search(ctx context.Context, queryText string, weights domain.FacetWeights, limit int, alpha float64, filters *domain.HardFilters) ([]domain.ScoredCandidate, error) {
	close(s.started)
	time.Sleep(100 * time.Millisecond)
	return nil, nil
}
