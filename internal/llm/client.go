package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"redraft/internal/domain"
)

// StructuredGenerator produces a JSON document for a prompt. The essay
// analyzer consumes it; tests substitute a stub.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, prompt string) (string, error)
}

// OpenAIClient calls an OpenAI-compatible chat-completions endpoint in
// JSON mode.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewOpenAIClient creates a client for the configured endpoint. baseURL
// may point at any OpenAI-compatible gateway; empty keeps the default.
func NewOpenAIClient(apiKey, baseURL, model string, timeout time.Duration, logger *slog.Logger) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("llm api key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// GenerateStructured sends the prompt with response_format json_object
// and returns the raw JSON string. Failures surface as llm_failed; the
// caller decides whether to resubmit.
func (c *OpenAIClient) GenerateStructured(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("calling llm", "model", c.model, "prompt_chars", len(prompt))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.logger.Error("llm call failed", "model", c.model, "error", err)
		return "", domain.NewError(domain.CodeLLMFailed, fmt.Sprintf("llm request failed: %v", err))
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", domain.NewError(domain.CodeLLMFailed, "empty llm response")
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("llm response received", "model", c.model, "chars", len(content))
	return content, nil
}
