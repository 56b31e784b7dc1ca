package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/packlinehq/packline-api/internal/repository"
	apperrors "github.com/packlinehq/packline-api/pkg/errors"
)

// ApiResponse is the envelope every endpoint answers with
type ApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Details string      `json:"details,omitempty"`
}

// Health represents the health check response
type Health struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// healthCheckHandler handles the health check endpoint
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.respondWithError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}

	health := Health{
		Status:    "ok",
		Version:   "0.1.0",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    health,
	})
}

// notFoundHandler answers unknown routes in the envelope format
func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusNotFound, ApiResponse{
		Success: false,
		Error:   "Endpoint not found",
		Message: "Route " + r.Method + " " + r.URL.Path + " does not exist",
	})
}

// respondWithError sends a JSON response with an error message
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, ApiResponse{
		Success: false,
		Error:   message,
	})
}

// respondWithServiceError maps service-layer errors onto HTTP statuses. Raw
// driver detail is only exposed in development mode.
func (s *Server) respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	var appErr *apperrors.AppError

	if errors.As(err, &appErr) {
		s.respondWithJSON(w, appErr.StatusCode, ApiResponse{
			Success: false,
			Error:   appErr.Message,
		})
		return
	}

	if errors.Is(err, repository.ErrNotFound) {
		s.respondWithError(w, http.StatusNotFound, fallback+" not found")
		return
	}

	resp := ApiResponse{
		Success: false,
		Error:   "Internal server error",
	}

	if s.config.IsDevelopment() {
		resp.Details = err.Error()
	}

	s.respondWithJSON(w, http.StatusInternalServerError, resp)
}

// respondWithJSON sends a JSON response
func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)

	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
