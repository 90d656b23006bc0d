package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portflow/internal/assistant"
	"portflow/internal/blob"
	"portflow/internal/core"
	"portflow/internal/export"
	"portflow/internal/identity"
	"portflow/internal/infra/persistence/memory"
	"portflow/internal/predictions"
	"portflow/internal/weather"
	"portflow/pkg/domain"
)

type stubWeather struct {
	current weather.Current
	err     error
}

func (s stubWeather) Current(context.Context) (weather.Current, error) { return s.current, s.err }

type stubProvider struct {
	reply string
	err   error
}

func (p stubProvider) Complete(context.Context, string, []assistant.Message, string) (string, error) {
	return p.reply, p.err
}

func (stubProvider) Name() string { return "stub" }

type stubForecaster struct {
	body json.RawMessage
	err  error
	days int
}

func (f *stubForecaster) Traffic(_ context.Context, days int) (json.RawMessage, error) {
	f.days = days
	return f.body, f.err
}

type fixture struct {
	store   *memory.Store
	service *core.Service
	local   *identity.Local
	tokens  *identity.Tokens
	handler http.Handler
}

type fixtureOption func(*Dependencies, *Options)

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	store := memory.NewStore()
	local := identity.NewLocal(store)
	svc := core.NewService(store, core.WithIdentityDirectory(local))
	tokens := identity.NewTokens("test-secret", time.Hour)

	worker := export.NewWorker(svc, blob.NewMemory(), nil, 4)
	worker.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = worker.Stop(ctx)
	})

	deps := Dependencies{
		Service:  svc,
		Tokens:   tokens,
		Accounts: local,
		Exports:  worker,
	}
	var o Options
	for _, opt := range opts {
		opt(&deps, &o)
	}
	srv, err := NewServer(deps, o)
	require.NoError(t, err)
	return &fixture{store: store, service: svc, local: local, tokens: tokens, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (f *fixture) insert(t *testing.T, table domain.Table, row domain.Row) domain.Row {
	t.Helper()
	stored, err := f.store.Insert(context.Background(), table, row)
	require.NoError(t, err)
	return stored
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody[map[string]any](t, rec)["status"])
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/cranes", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route not found", decodeBody[map[string]any](t, rec)["error"])
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.Invalid("bad"), http.StatusBadRequest},
		{domain.ErrNotFound{Table: domain.TableVessels, ID: "9"}, http.StatusNotFound},
		{export.ErrNotReady, http.StatusConflict},
		{export.ErrQueueFull, http.StatusServiceUnavailable},
		{export.ErrStopped, http.StatusServiceUnavailable},
		{core.ErrIdentityUnavailable, http.StatusServiceUnavailable},
		{predictions.ErrUpstream, http.StatusBadGateway},
		{assistant.ErrUpstream, http.StatusBadGateway},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestCORS(t *testing.T) {
	t.Run("wildcard preflight", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodOptions, "/containers", nil, "Origin", "https://ops.example")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodDelete)
	})
	t.Run("restricted origins", func(t *testing.T) {
		f := newFixture(t, func(_ *Dependencies, o *Options) {
			o.AllowedOrigins = []string{"https://ops.example"}
		})
		rec := f.do(t, http.MethodGet, "/containers", nil, "Origin", "https://ops.example")
		assert.Equal(t, "https://ops.example", rec.Header().Get("Access-Control-Allow-Origin"))
		rec = f.do(t, http.MethodGet, "/containers", nil, "Origin", "https://evil.example")
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFixture(t, func(_ *Dependencies, o *Options) { o.Registry = reg })

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/containers", nil).Code)
	rec := f.do(t, http.MethodGet, MetricsPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "portflow_http_requests_total")
	assert.Contains(t, body, `route="/containers"`)

	// /metrics stays the metrics table.
	rec = f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestNewServer_DuplicateRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := core.NewService(memory.NewStore())
	_, err := NewServer(Dependencies{Service: svc}, Options{Registry: reg})
	require.NoError(t, err)
	_, err = NewServer(Dependencies{Service: svc}, Options{Registry: reg})
	assert.Error(t, err)
}
