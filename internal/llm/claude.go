package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"redraft/internal/domain"
)

// RubricGenerator produces the reusable evaluation rubric persisted on
// a work's first submission.
type RubricGenerator interface {
	GenerateRubric(ctx context.Context, prompt string) (string, error)
}

// ClaudeClient generates rubrics through the Anthropic messages API.
type ClaudeClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	logger    *slog.Logger
}

// NewClaudeClient creates a rubric client with the given API key.
func NewClaudeClient(apiKey, model string, maxTokens int, timeout time.Duration, logger *slog.Logger) (*ClaudeClient, error) {
	if apiKey == "" {
		return nil, errors.New("claude api key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &ClaudeClient{
		client:    &client,
		model:     model,
		maxTokens: int64(maxTokens),
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// GenerateRubric sends the rubric prompt and returns the raw text of
// the first content block. A deadline hit maps to claude_timeout so
// the caller can distinguish it from a malformed response.
func (c *ClaudeClient) GenerateRubric(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("calling claude", "model", c.model, "prompt_chars", len(prompt))

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Error("claude call timed out", "model", c.model, "timeout", c.timeout)
			return "", domain.NewError(domain.CodeClaudeTimeout, fmt.Sprintf("claude timeout after %s", c.timeout))
		}
		c.logger.Error("claude call failed", "model", c.model, "error", err)
		return "", domain.NewError(domain.CodeLLMFailed, fmt.Sprintf("claude request failed: %v", err))
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", domain.NewError(domain.CodeLLMFailed, "no text content in claude response")
	}

	c.logger.Debug("rubric generated", "chars", len(text))
	return text, nil
}
