package api

import (
	"encoding/json"
	"net/http"

	"github.com/packlinehq/packline-api/internal/models"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
}

// loginHandler authenticates a dashboard user
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	user, err := s.authService.Login(r.Context(), req.Username, req.Password)

	if err != nil {
		s.respondWithServiceError(w, err, "User")
		return
	}

	s.respondWithJSON(w, http.StatusOK, loginResponse{
		Success: true,
		User:    user,
	})
}

// productionLoginHandler authenticates a production-floor user
func (s *Server) productionLoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	user, err := s.authService.ProductionLogin(r.Context(), req.Username, req.Password)

	if err != nil {
		s.respondWithServiceError(w, err, "User")
		return
	}

	s.respondWithJSON(w, http.StatusOK, loginResponse{
		Success: true,
		User:    user,
	})
}
