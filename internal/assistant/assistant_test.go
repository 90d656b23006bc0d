package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portflow/pkg/domain"
)

type stubProvider struct {
	system   string
	messages []Message
	model    string
	reply    string
	err      error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(_ context.Context, system string, messages []Message, model string) (string, error) {
	s.system, s.messages, s.model = system, messages, model
	return s.reply, s.err
}

func TestChatValidation(t *testing.T) {
	a := New(&stubProvider{reply: "ok"}, "mistral")
	cases := map[string][]Message{
		"empty":        nil,
		"bad role":     {{Role: "system", Content: "hi"}},
		"blank":        {{Role: RoleUser, Content: "  "}},
		"ends with ai": {{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hello"}},
	}
	for name, msgs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := a.Chat(context.Background(), msgs, "")
			assert.True(t, domain.IsValidation(err), "got %v", err)
		})
	}
}

func TestChatForwardsToProvider(t *testing.T) {
	stub := &stubProvider{reply: "  Le navire Atlas est à quai.  "}
	a := New(stub, "mistral")
	reply, err := a.Chat(context.Background(), []Message{{Role: RoleUser, Content: "Où est Atlas ?"}}, "")
	require.NoError(t, err)
	assert.Equal(t, Message{Role: RoleAssistant, Content: "Le navire Atlas est à quai."}, reply)
	assert.Equal(t, "mistral", stub.model)
	assert.Equal(t, SystemPrompt(), stub.system)
	assert.Contains(t, SystemPrompt(), "PortFlow AI")

	_, err = a.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, "llama3")
	require.NoError(t, err)
	assert.Equal(t, "llama3", stub.model)
}

func TestChatProviderFailure(t *testing.T) {
	a := New(&stubProvider{err: errors.New("connection refused")}, "mistral")
	_, err := a.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, "")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorContains(t, err, "connection refused")
}

func TestOllamaComplete(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"mistral","message":{"role":"assistant","content":"Bonjour"},"done":true}`))
	}))
	defer srv.Close()

	o := NewOllama(srv.URL+"/", time.Second)
	reply, err := o.Complete(context.Background(), "system text", []Message{{Role: RoleUser, Content: "Salut"}}, "")
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", reply)
	assert.Equal(t, "mistral", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, Message{Role: RoleSystem, Content: "system text"}, got.Messages[0])
	assert.Equal(t, Message{Role: RoleUser, Content: "Salut"}, got.Messages[1])
}

func TestOllamaErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"mistral\" not found"}`))
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, time.Second).Complete(context.Background(), "", []Message{{Role: RoleUser, Content: "x"}}, "mistral")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "404"))
}

func TestGeminiComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Trois navires sont à quai."}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), "test-key", WithGeminiBaseURL(srv.URL+"/"))
	require.NoError(t, err)
	reply, err := g.Complete(context.Background(), "system", []Message{{Role: RoleUser, Content: "Combien ?"}}, "")
	require.NoError(t, err)
	assert.Equal(t, "Trois navires sont à quai.", reply)
}

func TestGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "")
	assert.Error(t, err)
}

func TestGeminiMapsRoles(t *testing.T) {
	var got struct {
		Contents []struct {
			Role string `json:"role"`
		} `json:"contents"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), "test-key", WithGeminiBaseURL(srv.URL+"/"))
	require.NoError(t, err)
	history := []Message{
		{Role: RoleUser, Content: "Combien de navires ?"},
		{Role: RoleAssistant, Content: "Trois."},
		{Role: RoleUser, Content: "Et les grues ?"},
	}
	_, err = g.Complete(context.Background(), "system", history, "")
	require.NoError(t, err)
	require.Len(t, got.Contents, 3)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "model", got.Contents[1].Role)
	assert.Equal(t, "user", got.Contents[2].Role)
}
