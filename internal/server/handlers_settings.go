package server

import (
	"fmt"
	"net/http"

	"github.com/htmmed/qctrack/internal/models"
)

// handleRoleSettings handles /api/settings/roles — GET the role table,
// PUT a wholesale replacement (admin). The admin row is fixed policy and
// overwritten on save whatever the client sent.
func (s *Server) handleRoleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		table, err := s.app.Storage.Settings().GetRoleTable(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading role table: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, table)
	case http.MethodPut:
		if !s.requireAdmin(w, r) {
			return
		}
		var table models.RoleTable
		if !DecodeJSON(w, r, &table) {
			return
		}
		if table.Roles == nil {
			WriteError(w, http.StatusBadRequest, "roles table is required")
			return
		}
		table.Roles[models.RoleAdmin] = models.FullyPermissiveRoleConfig(models.RoleAdmin)
		table.UpdatedBy = actorName(r)
		if err := s.app.Storage.Settings().SaveRoleTable(r.Context(), &table); err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error saving role table: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, &table)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut)
	}
}

// handleAppearanceSettings handles /api/settings/appearance — GET and PUT
// the singleton appearance document (admin for PUT).
func (s *Server) handleAppearanceSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.app.Storage.Settings().GetAppearance(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading appearance: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		if !s.requireAdmin(w, r) {
			return
		}
		var settings models.AppearanceSettings
		if !DecodeJSON(w, r, &settings) {
			return
		}
		if err := s.app.Storage.Settings().SaveAppearance(r.Context(), &settings); err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error saving appearance: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, &settings)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut)
	}
}

// handleTheme handles GET /api/settings/theme — the CSS custom properties
// derived from the appearance settings.
func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	settings, err := s.app.Storage.Settings().GetAppearance(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading appearance: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"company_name": settings.CompanyName,
		"logo_url":     settings.LogoURL,
		"properties":   settings.ThemeProperties(),
	})
}
