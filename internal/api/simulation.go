package api

import (
	"net/http"
	"strconv"

	"portflow/internal/core"
	"portflow/internal/export"
	"portflow/pkg/domain"
)

func (s *Server) setupSimulationRoutes() {
	s.router.HandleFunc("/simulation_logs", s.handleListSimulationLogs).Methods(http.MethodGet)
	s.router.HandleFunc("/simulation_logs", s.handleRecordSimulationLog).Methods(http.MethodPost)
	s.router.HandleFunc("/simulation_logs/export", s.handleReport(export.KindSimulationLogs)).Methods(http.MethodGet)
	s.router.HandleFunc("/statistics/export", s.handleReport(export.KindStatistics)).Methods(http.MethodGet)
}

func simulationFilter(r *http.Request) (core.SimulationLogFilter, error) {
	q := r.URL.Query()
	filter := core.SimulationLogFilter{
		UserID:   q.Get("user_id"),
		Action:   domain.SimulationAction(q.Get("action")),
		Category: domain.SimulationCategory(q.Get("category")),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, domain.ValidationError{Field: "limit", Message: "must be a non-negative integer"}
		}
		filter.Limit = n
	}
	return filter, nil
}

func (s *Server) handleListSimulationLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := simulationFilter(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	logs, err := s.deps.Service.SimulationLogs(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if logs == nil {
		logs = []domain.SimulationLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleRecordSimulationLog(w http.ResponseWriter, r *http.Request) {
	var entry domain.SimulationLog
	if err := decodeJSON(w, r, &entry); err != nil {
		s.fail(w, r, err)
		return
	}
	stored, err := s.deps.Service.RecordSimulationLog(r.Context(), entry)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// handleReport renders a report synchronously as a download. The format
// query parameter selects csv (default) or json.
func (s *Server) handleReport(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format, err := export.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		body, err := export.Render(r.Context(), s.deps.Service, kind, format)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		attachment(w, kind, format)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}
