// Package ai drafts and summarizes note content through an OpenAI-style
// chat completion API. A fixed sequence of model identifiers is tried in
// order; the caller only sees an error after every model has failed.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/mkorchagin/quicknotes/internal/logging"
)

// Models tried in order of preference.
var defaultModels = []string{
	openai.GPT4oMini,
	openai.GPT4o,
	openai.GPT3Dot5Turbo,
}

const systemPrompt = "You are a note-taking assistant. Answer with plain Markdown suitable for a note body, no preamble."

// Service wraps the generative-text backend.
type Service struct {
	client *openai.Client
	logger logging.Logger
	models []string
}

// New builds a Service with the given API key.
func New(apiKey string, logger logging.Logger) *Service {
	return NewWithConfig(openai.DefaultConfig(apiKey), logger)
}

// NewWithConfig builds a Service from an explicit client configuration.
// Tests use it to point the client at a local backend.
func NewWithConfig(cfg openai.ClientConfig, logger logging.Logger) *Service {
	return &Service{
		client: openai.NewClientWithConfig(cfg),
		logger: logger,
		models: defaultModels,
	}
}

// Generate produces text for prompt. Each configured model is attempted
// once; the first success wins. When all fail, the returned error joins
// every underlying failure so the last message is available for display.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("empty prompt")
	}

	var errs []error
	for _, model := range s.models {
		text, err := s.complete(ctx, model, prompt)
		if err == nil {
			return text, nil
		}
		s.logger.Warn(ctx, "generation attempt failed", "model", model, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", model, err))

		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("all models failed: %w", errors.Join(errs...))
}

func (s *Service) complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
