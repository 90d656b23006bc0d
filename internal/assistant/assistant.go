// Package assistant answers operator questions through a chat model. Two
// providers are supported: a local Ollama server and Google Gemini.
package assistant

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"portflow/pkg/domain"
)

//go:embed prompt.txt
var systemPrompt string

// SystemPrompt returns the port-operations instructions sent with every chat.
func SystemPrompt() string { return systemPrompt }

// Roles accepted from clients.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider completes a conversation. The system prompt is passed separately
// so providers can place it where their API expects it.
type Provider interface {
	Complete(ctx context.Context, system string, messages []Message, model string) (string, error)
	Name() string
}

// ErrUpstream wraps provider failures.
var ErrUpstream = errors.New("assistant provider failed")

// Assistant validates chat requests and forwards them to a provider.
type Assistant struct {
	provider Provider
	model    string
}

// New returns an assistant using model when a request names none.
func New(provider Provider, defaultModel string) *Assistant {
	return &Assistant{provider: provider, model: defaultModel}
}

// Provider returns the configured provider name.
func (a *Assistant) Provider() string { return a.provider.Name() }

func validate(messages []Message) error {
	if len(messages) == 0 {
		return domain.ValidationError{Field: "messages", Message: "at least one message is required"}
	}
	for i, m := range messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return domain.ValidationError{Field: fmt.Sprintf("messages[%d].role", i), Message: "must be user or assistant"}
		}
		if strings.TrimSpace(m.Content) == "" {
			return domain.ValidationError{Field: fmt.Sprintf("messages[%d].content", i), Message: "must not be empty"}
		}
	}
	if messages[len(messages)-1].Role != RoleUser {
		return domain.ValidationError{Field: "messages", Message: "last message must come from the user"}
	}
	return nil
}

// Chat returns the assistant's reply to the conversation.
func (a *Assistant) Chat(ctx context.Context, messages []Message, model string) (Message, error) {
	if err := validate(messages); err != nil {
		return Message{}, err
	}
	if model == "" {
		model = a.model
	}
	reply, err := a.provider.Complete(ctx, systemPrompt, messages, model)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %s: %v", ErrUpstream, a.provider.Name(), err)
	}
	return Message{Role: RoleAssistant, Content: strings.TrimSpace(reply)}, nil
}
