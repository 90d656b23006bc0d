package assistant

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Gemini completes chats with the Gemini API.
type Gemini struct {
	client *genai.Client
}

// GeminiOption adjusts the client configuration.
type GeminiOption func(*genai.ClientConfig)

// WithGeminiBaseURL points the client at another endpoint.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(cfg *genai.ClientConfig) { cfg.HTTPOptions.BaseURL = url }
}

// NewGemini creates a Gemini provider.
func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	for _, opt := range opts {
		opt(cfg)
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{client: client}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Complete(ctx context.Context, system string, messages []Message, model string) (string, error) {
	if model == "" || model == "mistral" {
		model = "gemini-2.0-flash"
	}
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	var cfg *genai.GenerateContentConfig
	if system != "" {
		cfg = &genai.GenerateContentConfig{SystemInstruction: genai.NewContentFromText(system, genai.RoleUser)}
	}
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}
