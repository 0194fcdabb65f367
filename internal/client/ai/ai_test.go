package ai

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/mkorchagin/quicknotes/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.DiscardHandler))
}

// fakeBackend serves the chat completions endpoint, failing or answering
// per model.
type fakeBackend struct {
	mu      sync.Mutex
	seen    []string
	answers map[string]string // model -> reply; missing model yields 500
}

func (f *fakeBackend) handler(w http.ResponseWriter, r *http.Request) {
	var req openai.ChatCompletionRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.seen = append(f.seen, req.Model)
	answer, ok := f.answers[req.Model]
	f.mu.Unlock()

	if !ok {
		http.Error(w, `{"error":{"message":"model overloaded"}}`, http.StatusInternalServerError)
		return
	}

	_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: answer}},
		},
	})
}

func newTestService(t *testing.T, backend *fakeBackend) *Service {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(backend.handler))
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return NewWithConfig(cfg, testLogger())
}

func TestGenerate_FirstModelWins(t *testing.T) {
	backend := &fakeBackend{answers: map[string]string{
		defaultModels[0]: "drafted text",
	}}
	s := newTestService(t, backend)

	text, err := s.Generate(context.Background(), "draft a note")
	require.NoError(t, err)
	require.Equal(t, "drafted text", text)
	require.Equal(t, []string{defaultModels[0]}, backend.seen)
}

func TestGenerate_FallsBackThroughModels(t *testing.T) {
	// First model fails, second answers.
	backend := &fakeBackend{answers: map[string]string{
		defaultModels[1]: "second choice answer",
	}}
	s := newTestService(t, backend)

	text, err := s.Generate(context.Background(), "draft a note")
	require.NoError(t, err)
	require.Equal(t, "second choice answer", text)
	require.Equal(t, []string{defaultModels[0], defaultModels[1]}, backend.seen)
}

func TestGenerate_AggregatesAllFailures(t *testing.T) {
	backend := &fakeBackend{answers: map[string]string{}}
	s := newTestService(t, backend)

	_, err := s.Generate(context.Background(), "draft a note")
	require.Error(t, err)
	require.Len(t, backend.seen, len(defaultModels))
	// The aggregate error names every attempted model.
	for _, model := range defaultModels {
		require.Contains(t, err.Error(), model)
	}
}

func TestGenerate_RejectsEmptyPrompt(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestService(t, backend)

	_, err := s.Generate(context.Background(), "   ")
	require.Error(t, err)
	require.Empty(t, backend.seen)
}
