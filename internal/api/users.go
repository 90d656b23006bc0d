package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"portflow/internal/core"
	"portflow/pkg/domain"
)

func (s *Server) setupUserRoutes(r *mux.Router) {
	r.HandleFunc("", s.handleListUsers).Methods(http.MethodGet)
	r.HandleFunc("", s.handleCreateUser).Methods(http.MethodPost)
	r.HandleFunc("/all", s.handleAllUsers).Methods(http.MethodGet)
	r.HandleFunc("/{id}", s.handleGetUser).Methods(http.MethodGet)
	r.HandleFunc("/{id}", s.handleUpdateUser).Methods(http.MethodPut)
	r.HandleFunc("/{id}", s.handleDeleteUser).Methods(http.MethodDelete)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.deps.Service.ListUsers(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilRows(users))
}

func (s *Server) handleAllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.deps.Service.ListUsers(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": nonNilRows(users)})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.deps.Service.GetUser(r.Context(), mux.Vars(r)["id"])
	if domain.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in core.UserInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := s.deps.Service.CreateUser(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": id})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var in core.UserInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.deps.Service.UpdateUser(r.Context(), mux.Vars(r)["id"], in); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Service.DeleteUser(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
