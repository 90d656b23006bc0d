package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"portflow/internal/export"
)

func (s *Server) setupExportRoutes() {
	r := s.router.PathPrefix("/exports").Subrouter()
	r.HandleFunc("", s.handleCreateExport).Methods(http.MethodPost)
	r.HandleFunc("/{id}", s.handleGetExport).Methods(http.MethodGet)
	r.HandleFunc("/{id}/download", s.handleDownloadExport).Methods(http.MethodGet)
}

func (s *Server) exportsReady(w http.ResponseWriter) bool {
	if s.deps.Exports == nil {
		writeError(w, http.StatusServiceUnavailable, "exports are not configured")
		return false
	}
	return true
}

func (s *Server) handleCreateExport(w http.ResponseWriter, r *http.Request) {
	if !s.exportsReady(w) {
		return
	}
	var req export.Request
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if claims, ok := ClaimsFrom(r.Context()); ok {
		req.RequestedBy = claims.Subject
	}
	record, err := s.deps.Exports.Enqueue(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
}

func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	if !s.exportsReady(w) {
		return
	}
	record, err := s.deps.Exports.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": record})
}

func (s *Server) handleDownloadExport(w http.ResponseWriter, r *http.Request) {
	if !s.exportsReady(w) {
		return
	}
	record, body, err := s.deps.Exports.Open(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer body.Close()
	w.Header().Set("Content-Type", record.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.Kind+"-"+record.ID+"."+string(record.Format)))
	if record.SizeBytes > 0 {
		w.Header().Set("Content-Length", fmt.Sprint(record.SizeBytes))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		s.logger.Warn("export download interrupted", zap.String("id", record.ID), zap.Error(err))
	}
}
