package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"ragpipe/internal/domain"
)

// OpenAISynthesizer produces prose answers through an OpenAI-compatible chat
// completions endpoint. Citations always come from the supplied candidates,
// never from the model.
type OpenAISynthesizer struct {
	apiKey      string
	model       string
	baseURL     string
	maxEvidence int
	client      *http.Client
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAISynthesizer creates a chat-based synthesizer.
func NewOpenAISynthesizer(apiKeyEnv, model, baseURL string, maxEvidence int) (*OpenAISynthesizer, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if maxEvidence <= 0 {
		maxEvidence = 5
	}
	return &OpenAISynthesizer{
		apiKey:      apiKey,
		model:       model,
		baseURL:     baseURL,
		maxEvidence: maxEvidence,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

const systemPrompt = "You answer questions strictly from the numbered evidence passages provided. " +
	"Reference passages as [1], [2], ... If the evidence does not answer the question, say so plainly."

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, queryText string, candidates []domain.ScoredCandidate) (domain.Answer, error) {
	if len(candidates) == 0 {
		return domain.Answer{
			Text:      fmt.Sprintf("No evidence found for %q in the indexed corpus.", queryText),
			Citations: []domain.Citation{},
		}, nil
	}

	top := candidates
	if len(top) > s.maxEvidence {
		top = top[:s.maxEvidence]
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Question: %s\n\nEvidence:\n", queryText)
	citations := make([]domain.Citation, 0, len(top))
	for i, c := range top {
		fmt.Fprintf(&prompt, "[%d] %s\n", i+1, strings.TrimSpace(c.Chunk.Body))
		citations = append(citations, Cite(c))
	}

	text, err := s.complete(ctx, prompt.String())
	if err != nil {
		return domain.Answer{}, err
	}
	return domain.Answer{Text: text, Citations: citations}, nil
}

func (s *OpenAISynthesizer) complete(ctx context.Context, userPrompt string) (string, error) {
	reqBody := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", domain.Transient("synthesis request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.Transient("synthesis response read", err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return "", domain.Transient("synthesis API", fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("synthesis API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse synthesis response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("synthesis API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("synthesis API returned no choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}
