package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portflow/internal/assistant"
	"portflow/internal/predictions"
	"portflow/internal/weather"
)

func TestCurrentWeather(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		f := newFixture(t, func(d *Dependencies, _ *Options) {
			d.Weather = stubWeather{current: weather.Current{Temperature: 21.4, Weather: "ciel dégagé", Humidity: 60, Wind: 4.1, Icon: "01d"}}
		})
		rec := f.do(t, http.MethodGet, "/weather/current", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeBody[weather.Current](t, rec)
		assert.Equal(t, "ciel dégagé", got.Weather)
		assert.Equal(t, 21.4, got.Temperature)
	})
	t.Run("invalid upstream payload", func(t *testing.T) {
		f := newFixture(t, func(d *Dependencies, _ *Options) {
			d.Weather = stubWeather{err: &weather.Error{Message: "invalid weather data from API", Details: map[string]any{"cod": "401"}}}
		})
		rec := f.do(t, http.MethodGet, "/weather/current", nil)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeBody[map[string]any](t, rec)
		assert.Equal(t, "invalid weather data from API", body["error"])
		assert.Equal(t, map[string]any{"cod": "401"}, body["details"])
	})
	t.Run("other failure", func(t *testing.T) {
		f := newFixture(t, func(d *Dependencies, _ *Options) {
			d.Weather = stubWeather{err: errors.New("cache exploded")}
		})
		rec := f.do(t, http.MethodGet, "/weather/current", nil)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeBody[map[string]any](t, rec)
		assert.Equal(t, "failed to fetch weather", body["error"])
		assert.Equal(t, "cache exploded", body["details"])
	})
	t.Run("not configured", func(t *testing.T) {
		f := newFixture(t)
		assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/weather/current", nil).Code)
	})
}

func TestAssistantChat(t *testing.T) {
	withProvider := func(p assistant.Provider) fixtureOption {
		return func(d *Dependencies, _ *Options) { d.Assistant = assistant.New(p, "mistral") }
	}
	conversation := map[string]any{"messages": []map[string]string{{"role": "user", "content": "Combien de navires à quai ?"}}}

	f := newFixture(t, withProvider(stubProvider{reply: "  Deux navires sont à quai.  "}))
	rec := f.do(t, http.MethodPost, "/assistant/chat", conversation)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reply := decodeBody[map[string]assistant.Message](t, rec)["message"]
	assert.Equal(t, assistant.Message{Role: assistant.RoleAssistant, Content: "Deux navires sont à quai."}, reply)

	rec = f.do(t, http.MethodPost, "/assistant/chat", map[string]any{"messages": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f = newFixture(t, withProvider(stubProvider{err: errors.New("connection refused")}))
	rec = f.do(t, http.MethodPost, "/assistant/chat", conversation)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestTrafficPredictions(t *testing.T) {
	forecaster := &stubForecaster{body: json.RawMessage(`{"predictions":[{"date":"2024-05-02","vessels":7}]}`)}
	f := newFixture(t, func(d *Dependencies, _ *Options) { d.Predictions = forecaster })

	rec := f.do(t, http.MethodGet, "/predictions/traffic", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, predictions.DefaultDaysAhead, forecaster.days)
	assert.JSONEq(t, string(forecaster.body), rec.Body.String())

	rec = f.do(t, http.MethodGet, "/predictions/traffic?days_ahead=30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30, forecaster.days)

	for _, bad := range []string{"0", "91", "soon"} {
		rec = f.do(t, http.MethodGet, "/predictions/traffic?days_ahead="+bad, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}

	forecaster.err = fmt.Errorf("%w: status 503", predictions.ErrUpstream)
	rec = f.do(t, http.MethodGet, "/predictions/traffic", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
