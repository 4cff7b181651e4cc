// Package anthropic is the alternative advisory backend for deployments
// that talk to the Anthropic API directly instead of an OpenRouter
// gateway. Selected with ADVISORY_PROVIDER=anthropic.
package anthropic

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"siteqa/internal/application/port/output"
	"siteqa/internal/infrastructure/llm/openrouter"
	"siteqa/internal/infrastructure/prompts"
)

var _ output.AdvisoryPort = (*AnthropicAdapter)(nil)

const maxCallTimeout = 25 * time.Second

type AnthropicAdapter struct {
	client *anthropic.Client
	model  string
	logger output.LoggerPort
}

type Config struct {
	APIKey string
	Model  string
	Logger output.LoggerPort
}

func NewAnthropicAdapter(cfg Config) (*AnthropicAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key required")
	}

	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))

	model := cfg.Model
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}

	return &AnthropicAdapter{
		client: &client,
		model:  model,
		logger: cfg.Logger,
	}, nil
}

func (a *AnthropicAdapter) Decide(ctx context.Context, req output.AdvisoryRequest) (*output.AdvisoryResponse, error) {
	prompt, err := prompts.Build(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, maxCallTimeout)
	defer cancel()

	userMessage := anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))
	if req.Task == output.TaskReviewPage && req.Screenshot != nil {
		userMessage = anthropic.NewUserMessage(
			anthropic.NewTextBlock(prompt),
			anthropic.NewImageBlockBase64("image/"+req.Screenshot.Format, base64.StdEncoding.EncodeToString(req.Screenshot.Data)),
		)
	}

	start := time.Now()
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 2048,
		Messages:  []anthropic.MessageParam{userMessage},
	})
	if err != nil {
		return nil, fmt.Errorf("advisory call failed: %w", err)
	}

	var responseText string
	for _, block := range resp.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return nil, fmt.Errorf("empty response")
	}

	if a.logger != nil {
		a.logger.Debug("advisory call completed",
			"task", string(req.Task),
			"durationMs", time.Since(start).Milliseconds(),
		)
	}

	// Contract validation is shared with the OpenRouter backend so both
	// providers are held to the same output rules.
	return openrouter.ParseResponse(req, responseText)
}
