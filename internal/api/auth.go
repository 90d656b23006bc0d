package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"portflow/internal/identity"
	"portflow/pkg/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// handleLogin exchanges local directory credentials for a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.deps.Accounts == nil || s.deps.Tokens == nil {
		writeError(w, http.StatusNotImplemented, "login requires the local identity directory")
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.fail(w, r, domain.Invalid("email and password are required"))
		return
	}
	account, err := s.deps.Accounts.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	token, expires, err := s.deps.Tokens.Issue(account.ID, account.Email, account.Role)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, TokenType: "bearer", ExpiresAt: expires})
}
