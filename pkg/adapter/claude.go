package adapter

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

const (
	claudeSystemPrompt    = "You are an insurance claims assistant. You write short, factual text for policyholders and insurers."
	claudeJSONInstruction = "Reply with a single JSON object and nothing else."
)

// ClaudeClient summarizes claims with the Anthropic Messages API
type ClaudeClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

type ClaudeOption func(*ClaudeClient)

func WithClaudeModel(m string) ClaudeOption {
	return func(c *ClaudeClient) {
		c.model = anthropic.Model(m)
	}
}

func WithClaudeMaxTokens(n int64) ClaudeOption {
	return func(c *ClaudeClient) {
		c.maxTokens = n
	}
}

// NewClaude creates a Claude client. apiKey must not be empty.
func NewClaude(apiKey string, opts ...ClaudeOption) (*ClaudeClient, error) {
	if apiKey == "" {
		return nil, goerr.Wrap(model.ErrValidation, "anthropic API key is required")
	}

	c := &ClaudeClient{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.ModelClaudeSonnet4_20250514,
		maxTokens: 1024,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Summarize implements interfaces.Summarizer
func (c *ClaudeClient) Summarize(ctx context.Context, claim *model.Claim) (string, error) {
	prompt, err := SummaryPrompt(claim)
	if err != nil {
		return "", err
	}

	summary, err := c.Generate(ctx, prompt, interfaces.GenerateOptions{Temperature: summaryTemperature})
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate summary", goerr.V("claim_id", claim.ID))
	}
	return summary, nil
}

// Generate implements interfaces.LLMClient. Claude has no JSON response mode, so JSON is requested in the system prompt.
func (c *ClaudeClient) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	system := claudeSystemPrompt
	if opts.JSON {
		system += " " + claudeJSONInstruction
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(opts.Temperature))
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", goerr.Wrap(model.ErrCollaborator, "claude request failed",
			goerr.V("model", c.model),
			goerr.V("error", err.Error()),
		)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", goerr.Wrap(model.ErrCollaborator, "empty response from claude", goerr.V("model", c.model))
	}
	return text, nil
}
