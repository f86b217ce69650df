// Package translator talks to the external text generation services that
// perform the actual translation, and wraps them in a Client that adds a hard
// per-call timeout, retry with backoff and token accounting.
package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceConfig selects and configures a generation backend.
type ServiceConfig struct {
	Provider    string  `mapstructure:"provider" json:"provider"`
	Credentials string  `mapstructure:"credentials" json:"credentials"`
	APIKey      string  `mapstructure:"api_key" json:"api_key"`
	Model       string  `mapstructure:"model" json:"model"`
	BaseURL     string  `mapstructure:"base_url" json:"base_url"`
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`
}

// Generation defaults.
const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 4000
)

func (c ServiceConfig) temperature() float32 {
	if c.Temperature <= 0 {
		return DefaultTemperature
	}
	return c.Temperature
}

func (c ServiceConfig) maxTokens() int {
	if c.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return c.MaxTokens
}

// Request is one call: a system instruction and a single user message.
// Segments carries the raw source texts for backends that translate entries
// one by one instead of reading the prompt.
type Request struct {
	System     string
	Prompt     string
	Segments   []string
	Structured bool
}

// Completion is a successful reply.
type Completion struct {
	Text         string        `json:"text"`
	Model        string        `json:"model"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	Latency      time.Duration `json:"latency"`
}

// Generator performs one request against an external service.
type Generator interface {
	Name() string
	Model() string
	Generate(ctx context.Context, req Request) (*Completion, error)
}

// ErrEmptyReply is returned when the service answered without content.
var ErrEmptyReply = errors.New("empty reply")

// CallError describes one failed attempt.
type CallError struct {
	Service string
	Attempt int
	Timeout bool
	Err     error
}

func (e *CallError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s attempt %d timed out: %v", e.Service, e.Attempt, e.Err)
	}
	return fmt.Sprintf("%s attempt %d: %v", e.Service, e.Attempt, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Providers lists the supported backend names.
func Providers() []string {
	return []string{"openai", "openrouter", "ollama", "google"}
}

// New builds the generator selected by cfg.Provider.
func New(cfg ServiceConfig) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		return NewOpenAIGenerator(cfg)
	case "openrouter":
		if cfg.BaseURL == "" {
			cfg.BaseURL = OpenRouterBaseURL
		}
		return NewOpenAIGenerator(cfg)
	case "ollama":
		return NewOllamaGenerator(cfg), nil
	case "google":
		return NewGoogleGenerator(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
