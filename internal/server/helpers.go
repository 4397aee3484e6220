package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/htmmed/qctrack/internal/common"
	"github.com/htmmed/qctrack/internal/models"
	"github.com/htmmed/qctrack/internal/services/permission"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// PathParam extracts a path parameter from the URL path.
// For a pattern like /api/reports/{id}/print, calling PathParam(r, "/api/reports/", "/print")
// extracts the {id} part.
func PathParam(r *http.Request, prefix, suffix string) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if suffix != "" {
		idx := strings.Index(rest, suffix)
		if idx < 0 {
			return rest
		}
		return rest[:idx]
	}
	// No suffix — return up to the next /
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// capability resolves the request role against the stored role table.
// An unauthenticated request yields a zero capability that can do nothing.
func (s *Server) capability(r *http.Request) (permission.Capability, error) {
	role := common.ResolveRole(r.Context())
	table, err := s.app.Storage.Settings().GetRoleTable(r.Context())
	if err != nil {
		return permission.Capability{}, err
	}
	return permission.Resolve(role, table), nil
}

// requireAdmin gates an endpoint to the admin role. Writes 403 and
// returns false for everyone else.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if common.ResolveRole(r.Context()) != models.RoleAdmin {
		WriteError(w, http.StatusForbidden, "admin role required")
		return false
	}
	return true
}

// actorName returns the authenticated username for activity attribution.
func actorName(r *http.Request) string {
	if uc := common.UserContextFromContext(r.Context()); uc != nil {
		return uc.Username
	}
	return ""
}
