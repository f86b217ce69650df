package translator

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenRouterBaseURL is the OpenAI-compatible endpoint of OpenRouter.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = openai.GPT3Dot5Turbo

// OpenAIGenerator calls an OpenAI-compatible chat completion API.
type OpenAIGenerator struct {
	name   string
	cfg    ServiceConfig
	client *openai.Client
}

// NewOpenAIGenerator constructs a generator for OpenAI, or for any
// compatible endpoint when cfg.BaseURL is set.
func NewOpenAIGenerator(cfg ServiceConfig) (*OpenAIGenerator, error) {
	return newOpenAIGenerator(cfg, nil)
}

func newOpenAIGenerator(cfg ServiceConfig, httpClient *http.Client) (*OpenAIGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}

	conf := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	name := "openai"
	if cfg.BaseURL != "" {
		conf.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		if strings.Contains(cfg.BaseURL, "openrouter.ai") {
			name = "openrouter"
		}
	}
	if httpClient != nil {
		conf.HTTPClient = httpClient
	}

	return &OpenAIGenerator{
		name:   name,
		cfg:    cfg,
		client: openai.NewClientWithConfig(conf),
	}, nil
}

func (g *OpenAIGenerator) Name() string  { return g.name }
func (g *OpenAIGenerator) Model() string { return g.cfg.Model }

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (*Completion, error) {
	start := time.Now()

	chatReq := openai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: g.cfg.temperature(),
		MaxTokens:   g.cfg.maxTokens(),
	}
	if req.Structured {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := g.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned: %w", ErrEmptyReply)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, ErrEmptyReply
	}

	model := resp.Model
	if model == "" {
		model = g.cfg.Model
	}
	return &Completion{
		Text:         text,
		Model:        model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Latency:      time.Since(start),
	}, nil
}
