package api

import (
	"net/http"

	"go.uber.org/zap"

	"portflow/internal/assistant"
	"portflow/internal/predictions"
	"portflow/internal/weather"
)

func (s *Server) setupPassthroughRoutes() {
	s.router.HandleFunc("/weather/current", s.handleCurrentWeather).Methods(http.MethodGet)
	s.router.HandleFunc("/assistant/chat", s.handleChat).Methods(http.MethodPost)
	s.router.HandleFunc("/predictions/traffic", s.handleTrafficPredictions).Methods(http.MethodGet)
}

func (s *Server) handleCurrentWeather(w http.ResponseWriter, r *http.Request) {
	if s.deps.Weather == nil {
		writeError(w, http.StatusServiceUnavailable, "weather is not configured")
		return
	}
	current, err := s.deps.Weather.Current(r.Context())
	if err != nil {
		s.logger.Warn("weather lookup failed", zap.Error(err))
		payload := map[string]any{"error": "failed to fetch weather", "details": err.Error()}
		if werr, ok := weather.AsError(err); ok {
			payload["error"] = werr.Message
			payload["details"] = werr.Details
		}
		writeJSON(w, http.StatusInternalServerError, payload)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

type chatRequest struct {
	Messages []assistant.Message `json:"messages"`
	Model    string              `json:"model,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.deps.Assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "assistant is not configured")
		return
	}
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	reply, err := s.deps.Assistant.Chat(r.Context(), req.Messages, req.Model)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": reply})
}

func (s *Server) handleTrafficPredictions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Predictions == nil {
		writeError(w, http.StatusServiceUnavailable, "predictions are not configured")
		return
	}
	days, err := predictions.ParseDaysAhead(r.URL.Query().Get("days_ahead"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	body, err := s.deps.Predictions.Traffic(r.Context(), days)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
