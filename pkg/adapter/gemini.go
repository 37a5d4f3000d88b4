package adapter

import (
	"context"
	"strings"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// GeminiClient summarizes claims with Gemini on Vertex AI or the Gemini API
type GeminiClient struct {
	client          *genai.Client
	generativeModel string
	maxTokens       int32
}

type GeminiOption func(*geminiConfig)

type geminiConfig struct {
	model     string
	apiKey    string
	maxTokens int32
}

func WithGenerativeModel(model string) GeminiOption {
	return func(c *geminiConfig) {
		c.model = model
	}
}

// WithGeminiAPIKey switches the backend from Vertex AI to the Gemini API
func WithGeminiAPIKey(key string) GeminiOption {
	return func(c *geminiConfig) {
		c.apiKey = key
	}
}

func WithGeminiMaxTokens(n int32) GeminiOption {
	return func(c *geminiConfig) {
		c.maxTokens = n
	}
}

func NewGemini(ctx context.Context, projectID, location string, opts ...GeminiOption) (*GeminiClient, error) {
	cfg := &geminiConfig{
		model:     "gemini-2.5-flash",
		maxTokens: 1024,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	clientConfig := &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	}
	if cfg.apiKey != "" {
		clientConfig = &genai.ClientConfig{
			APIKey:  cfg.apiKey,
			Backend: genai.BackendGeminiAPI,
		}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	return &GeminiClient{
		client:          client,
		generativeModel: cfg.model,
		maxTokens:       cfg.maxTokens,
	}, nil
}

// Summarize implements interfaces.Summarizer
func (g *GeminiClient) Summarize(ctx context.Context, claim *model.Claim) (string, error) {
	prompt, err := SummaryPrompt(claim)
	if err != nil {
		return "", err
	}

	summary, err := g.Generate(ctx, prompt, interfaces.GenerateOptions{Temperature: summaryTemperature})
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate summary", goerr.V("claim_id", claim.ID))
	}
	return summary, nil
}

// Generate implements interfaces.LLMClient
func (g *GeminiClient) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: g.maxTokens,
	}
	if opts.Temperature > 0 {
		config.Temperature = &opts.Temperature
	}
	if opts.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.generativeModel, genai.Text(prompt), config)
	if err != nil {
		return "", goerr.Wrap(model.ErrCollaborator, "gemini request failed",
			goerr.V("model", g.generativeModel),
			goerr.V("error", err.Error()),
		)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", goerr.Wrap(model.ErrCollaborator, "empty response from gemini", goerr.V("model", g.generativeModel))
	}
	return text, nil
}
