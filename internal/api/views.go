package api

import (
	"net/http"

	"portflow/pkg/domain"
)

func (s *Server) setupViewRoutes() {
	s.router.HandleFunc("/port_status", s.handleLatestPortStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/port_status", s.handleRecordPortStatus).Methods(http.MethodPost)
	s.router.HandleFunc("/team/active", s.handleActiveTeam).Methods(http.MethodGet)
	s.router.HandleFunc("/team_assignments", s.handleTeamAssignments).Methods(http.MethodGet)
	s.router.HandleFunc("/statistics", s.handleStatistics).Methods(http.MethodGet)
	s.router.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
}

func (s *Server) handleContainerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Service.ContainerStats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleVesselStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Service.VesselStats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleEquipmentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Service.EquipmentStats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCustomsStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.Service.CustomsStatus(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleResourceCurve(w http.ResponseWriter, r *http.Request) {
	points, err := s.deps.Service.ResourceCurve(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if points == nil {
		points = []domain.CurvePoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleLatestPortStatus(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Service.LatestPortStatus(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilRows(rows))
}

func (s *Server) handleRecordPortStatus(w http.ResponseWriter, r *http.Request) {
	var row domain.Row
	if err := decodeJSON(w, r, &row); err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.deps.Service.RecordPortStatus(r.Context(), row)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleActiveTeam(w http.ResponseWriter, r *http.Request) {
	members, err := s.deps.Service.ActiveTeam(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if members == nil {
		members = []domain.TeamMember{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleTeamAssignments(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Service.List(r.Context(), domain.TableTeamAssignments, domain.Query{})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilRows(rows))
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Service.Statistics(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := s.deps.Service.Dashboard(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}
