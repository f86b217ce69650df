package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// GoogleGenerator translates the request segments with the Google Cloud
// Translation API and renders them as a numbered reply so the usual
// reconciliation applies. It reports no token usage.
type GoogleGenerator struct {
	cfg    ServiceConfig
	target language.Tag
}

func NewGoogleGenerator(cfg ServiceConfig) *GoogleGenerator {
	return &GoogleGenerator{cfg: cfg, target: language.Vietnamese}
}

func (g *GoogleGenerator) Name() string { return "google" }

func (g *GoogleGenerator) Model() string {
	if g.cfg.Model != "" {
		return g.cfg.Model
	}
	return "google-translate"
}

func (g *GoogleGenerator) Generate(ctx context.Context, req Request) (*Completion, error) {
	start := time.Now()
	if len(req.Segments) == 0 {
		return nil, fmt.Errorf("no segments to translate: %w", ErrEmptyReply)
	}

	opts := []option.ClientOption{}
	if g.cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(g.cfg.Credentials))
	} else if g.cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(g.cfg.APIKey))
	}

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	defer client.Close()

	translations, err := client.Translate(ctx, req.Segments, g.target, &translate.Options{Format: translate.Text})
	if err != nil {
		return nil, fmt.Errorf("translation failed: %w", err)
	}
	if len(translations) == 0 {
		return nil, ErrEmptyReply
	}

	texts := make([]string, len(translations))
	for i, t := range translations {
		texts[i] = t.Text
	}
	return &Completion{
		Text:    NumberedReply(texts),
		Model:   g.Model(),
		Latency: time.Since(start),
	}, nil
}

// NumberedReply renders texts in the "[n] text" reply form.
func NumberedReply(texts []string) string {
	var sb strings.Builder
	for i, t := range texts {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s", i+1, t)
	}
	return sb.String()
}
