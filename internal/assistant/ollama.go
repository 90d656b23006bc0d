package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ollama talks to the /api/chat endpoint of an Ollama server.
type Ollama struct {
	endpoint string
	client   *http.Client
}

// NewOllama returns a provider for the server at endpoint.
func NewOllama(endpoint string, timeout time.Duration) *Ollama {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Ollama{endpoint: strings.TrimRight(endpoint, "/"), client: &http.Client{Timeout: timeout}}
}

func (o *Ollama) Name() string { return "ollama" }

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Error   string  `json:"error"`
}

func (o *Ollama) Complete(ctx context.Context, system string, messages []Message, model string) (string, error) {
	if model == "" {
		model = "mistral"
	}
	turns := make([]Message, 0, len(messages)+1)
	if system != "" {
		turns = append(turns, Message{Role: RoleSystem, Content: system})
	}
	turns = append(turns, messages...)
	body, err := json.Marshal(ollamaChatRequest{Model: model, Messages: turns})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	if out.Message.Content == "" {
		return "", fmt.Errorf("ollama returned an empty message")
	}
	return out.Message.Content, nil
}
