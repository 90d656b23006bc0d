package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portflow/pkg/domain"
)

var _ domain.IdentityDirectory = (*SupabaseAdmin)(nil)

// SupabaseAdmin manages accounts through the GoTrue admin API using the
// project's service-role key.
type SupabaseAdmin struct {
	baseURL string
	key     string
	client  *http.Client
}

// NewSupabaseAdmin returns an admin client for the project at baseURL.
func NewSupabaseAdmin(baseURL, serviceRoleKey string, client *http.Client) *SupabaseAdmin {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &SupabaseAdmin{baseURL: strings.TrimRight(baseURL, "/"), key: serviceRoleKey, client: client}
}

type adminUserRequest struct {
	Email        string         `json:"email,omitempty"`
	Password     string         `json:"password,omitempty"`
	EmailConfirm bool           `json:"email_confirm,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

type adminUserResponse struct {
	ID string `json:"id"`
}

// apiError decodes the error shapes GoTrue returns.
type apiError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e apiError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func metadata(identity domain.Identity) map[string]any {
	return map[string]any{"full_name": identity.FullName, "role": identity.Role}
}

// CreateUser creates a confirmed account and returns its id.
func (s *SupabaseAdmin) CreateUser(ctx context.Context, identity domain.Identity) (string, error) {
	var out adminUserResponse
	err := s.do(ctx, http.MethodPost, "/auth/v1/admin/users", adminUserRequest{
		Email:        identity.Email,
		Password:     identity.Password,
		EmailConfirm: true,
		UserMetadata: metadata(identity),
	}, &out)
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("identity service returned no user id")
	}
	return out.ID, nil
}

// UpdateUser updates the account email, password (when set) and metadata.
func (s *SupabaseAdmin) UpdateUser(ctx context.Context, id string, identity domain.Identity) error {
	return s.do(ctx, http.MethodPut, "/auth/v1/admin/users/"+url.PathEscape(id), adminUserRequest{
		Email:        identity.Email,
		Password:     identity.Password,
		UserMetadata: metadata(identity),
	}, nil)
}

// DeleteUser removes the account.
func (s *SupabaseAdmin) DeleteUser(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+url.PathEscape(id), nil, nil)
}

func (s *SupabaseAdmin) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read identity response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.text() != "" {
			return errors.New(apiErr.text())
		}
		return fmt.Errorf("identity service returned %s", resp.Status)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode identity response: %w", err)
		}
	}
	return nil
}
