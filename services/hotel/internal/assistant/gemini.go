package assistant

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

//go:embed concierge.txt
var conciergeInstruction string

// ErrEmptyReply is returned when the model answers with no text.
var ErrEmptyReply = errors.New("assistant: model returned no text")

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string // empty uses the public endpoint
	Timeout time.Duration
}

// Gemini answers chat messages with a Gemini model, primed with the hotel facts.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("assistant: gemini api key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model, timeout: cfg.Timeout}, nil
}

func (g *Gemini) Respond(ctx context.Context, message string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(message), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: conciergeInstruction}}},
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}
