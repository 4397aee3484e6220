package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/htmmed/qctrack/internal/models"
)

// handleUsers handles /api/users — admin account management.
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		users, err := s.app.Storage.Users().List(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing users: %v", err))
			return
		}
		out := make([]map[string]interface{}, len(users))
		for i, u := range users {
			out[i] = userResponse(u)
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"users": out})
	case http.MethodPost:
		var user models.User
		if !DecodeJSON(w, r, &user) {
			return
		}
		if strings.TrimSpace(user.Username) == "" || user.Password == "" || user.Role == "" {
			WriteError(w, http.StatusBadRequest, "username, password and role are required")
			return
		}
		user.ModifiedAt = time.Now()
		if err := s.app.Storage.Users().Save(r.Context(), &user); err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error saving user: %v", err))
			return
		}
		WriteJSON(w, http.StatusCreated, userResponse(&user))
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleUserByName handles /api/users/{username} — GET, PUT, DELETE (admin).
func (s *Server) handleUserByName(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	username := PathParam(r, "/api/users/", "")
	if username == "" {
		WriteError(w, http.StatusBadRequest, "username is required in path")
		return
	}

	store := s.app.Storage.Users()

	switch r.Method {
	case http.MethodGet:
		user, err := store.Get(r.Context(), username)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading user: %v", err))
			return
		}
		if user == nil {
			WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		WriteJSON(w, http.StatusOK, userResponse(user))
	case http.MethodPut:
		existing, err := store.Get(r.Context(), username)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading user: %v", err))
			return
		}
		if existing == nil {
			WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		var user models.User
		if !DecodeJSON(w, r, &user) {
			return
		}
		user.Username = username
		if user.Password == "" {
			user.Password = existing.Password
		}
		if user.Role == "" {
			user.Role = existing.Role
		}
		user.CreatedAt = existing.CreatedAt
		user.ModifiedAt = time.Now()
		if err := store.Save(r.Context(), &user); err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error saving user: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, userResponse(&user))
	case http.MethodDelete:
		if err := store.Delete(r.Context(), username); err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error deleting user: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "username": username})
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
