package translator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/valpere/vietsub/internal/retry"
	"github.com/valpere/vietsub/internal/usage"
)

// DefaultCallTimeout bounds a single generation call.
const DefaultCallTimeout = 10 * time.Minute

// Client performs translation calls with a per-call timeout and retries.
// It keeps no per-job state, so one Client may serve many jobs at once.
type Client struct {
	gen     Generator
	policy  retry.Policy
	timeout time.Duration
	logger  *slog.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p retry.Policy) ClientOption {
	return func(c *Client) { c.policy = p }
}

// WithCallTimeout overrides the per-call timeout.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(gen Generator, opts ...ClientOption) *Client {
	c := &Client{
		gen:     gen,
		policy:  retry.Default(),
		timeout: DefaultCallTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name is the backend name.
func (c *Client) Name() string { return c.gen.Name() }

// Model is the backend model identifier.
func (c *Client) Model() string { return c.gen.Model() }

// Translate sends req, retrying every failure under the retry policy. Each
// attempt runs under its own timeout. On success the reported token usage is
// added to acct, which may be nil. When all attempts fail the returned error
// is a *retry.ExhaustedError wrapping the last *CallError.
func (c *Client) Translate(ctx context.Context, req Request, acct *usage.Account) (*Completion, error) {
	policy := c.policy
	logger := c.logger
	prevOnRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn("generation call failed, retrying",
			"service", c.gen.Name(),
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		if prevOnRetry != nil {
			prevOnRetry(attempt, err, delay)
		}
	}

	var result *Completion
	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		comp, err := c.gen.Generate(callCtx, req)
		if err != nil {
			return &CallError{
				Service: c.gen.Name(),
				Attempt: attempt,
				Timeout: errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded),
				Err:     err,
			}
		}
		result = comp
		return nil
	})
	if err != nil {
		return nil, err
	}

	if acct != nil {
		acct.Add(result.InputTokens, result.OutputTokens)
	}
	logger.Debug("generation call succeeded",
		"service", c.gen.Name(),
		"model", result.Model,
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
		"latency", result.Latency,
	)
	return result, nil
}
