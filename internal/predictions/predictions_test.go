package predictions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portflow/pkg/domain"
)

func TestParseDaysAhead(t *testing.T) {
	n, err := ParseDaysAhead("")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = ParseDaysAhead("90")
	require.NoError(t, err)
	assert.Equal(t, 90, n)

	for _, bad := range []string{"0", "91", "-3", "seven", "1.5"} {
		_, err := ParseDaysAhead(bad)
		assert.True(t, domain.IsValidation(err), bad)
	}
}

func TestTraffic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predictions/traffic", r.URL.Path)
		assert.Equal(t, "14", r.URL.Query().Get("days_ahead"))
		_, _ = w.Write([]byte(`{"predictions":[{"date":"2025-03-15","vessels":12}]}`))
	}))
	defer srv.Close()

	doc, err := NewClient(srv.URL, time.Second).Traffic(context.Background(), 14)
	require.NoError(t, err)
	assert.JSONEq(t, `{"predictions":[{"date":"2025-03-15","vessels":12}]}`, string(doc))
}

func TestTrafficUpstreamFailures(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()
	_, err := NewClient(failing.URL, time.Second).Traffic(context.Background(), 7)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorContains(t, err, "503")

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer garbage.Close()
	_, err = NewClient(garbage.URL, time.Second).Traffic(context.Background(), 7)
	assert.ErrorIs(t, err, ErrUpstream)

	closed := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := closed.URL
	closed.Close()
	_, err = NewClient(addr, time.Second).Traffic(context.Background(), 7)
	assert.ErrorIs(t, err, ErrUpstream)
}
