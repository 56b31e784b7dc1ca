package api

import (
	"encoding/json"
	"net/http"

	"github.com/packlinehq/packline-api/internal/models"
)

// createStackHandler inserts a new inventory stack
func (s *Server) createStackHandler(w http.ResponseWriter, r *http.Request) {
	var stack models.Stack

	if err := json.NewDecoder(r.Body).Decode(&stack); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	created, err := s.stackService.CreateStack(r.Context(), &stack)

	if err != nil {
		s.respondWithServiceError(w, err, "Stack")
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{
		Success: true,
		Message: "Stack created",
		Data:    created,
	})
}

// getStacksHandler lists all inventory stacks
func (s *Server) getStacksHandler(w http.ResponseWriter, r *http.Request) {
	stacks, err := s.stackService.ListStacks(r.Context())

	if err != nil {
		s.respondWithServiceError(w, err, "Stacks")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    stacks,
	})
}

// updateStackHandler overwrites a stack's fields
func (s *Server) updateStackHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	var stack models.Stack

	if err := json.NewDecoder(r.Body).Decode(&stack); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	stack.ID = id

	if err := s.stackService.UpdateStack(r.Context(), &stack); err != nil {
		s.respondWithServiceError(w, err, "Stack")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Message: "Stack updated",
		Data:    stack,
	})
}

// deleteStackHandler removes a stack
func (s *Server) deleteStackHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := s.stackService.DeleteStack(r.Context(), id); err != nil {
		s.respondWithServiceError(w, err, "Stack")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Message: "Stack deleted",
	})
}
