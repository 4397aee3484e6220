package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/htmmed/qctrack/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Auth
	mux.HandleFunc("/api/auth/login", s.handleAuthLogin)
	mux.HandleFunc("/api/auth/validate", s.handleAuthValidate)

	// Reports
	mux.HandleFunc("/api/reports/export", s.handleReportExport)
	mux.HandleFunc("/api/reports/batch", s.handleReportBatch)
	mux.HandleFunc("/api/reports/", s.routeReports)
	mux.HandleFunc("/api/reports", s.handleReports)

	// Product catalog and cascade
	mux.HandleFunc("/api/products/import", s.handleProductImport)
	mux.HandleFunc("/api/products/cascade", s.handleCascade)
	mux.HandleFunc("/api/products/", s.handleProductByCode)
	mux.HandleFunc("/api/products", s.handleProducts)

	// Dashboard
	mux.HandleFunc("/api/dashboard/charts/", s.handleDashboardChart)
	mux.HandleFunc("/api/dashboard/reports", s.handleDashboardDrill)
	mux.HandleFunc("/api/dashboard", s.handleDashboard)

	// Settings
	mux.HandleFunc("/api/settings/roles", s.handleRoleSettings)
	mux.HandleFunc("/api/settings/appearance", s.handleAppearanceSettings)
	mux.HandleFunc("/api/settings/theme", s.handleTheme)

	// Users (admin)
	mux.HandleFunc("/api/users/", s.handleUserByName)
	mux.HandleFunc("/api/users", s.handleUsers)

	// Live subscriptions
	mux.HandleFunc("/api/ws/reports", s.handleReportsWS)
}

// routeReports dispatches /api/reports/{id} and its sub-resources.
func (s *Server) routeReports(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "report id is required in path")
		return
	}

	switch {
	case strings.HasSuffix(path, "/duplicate"):
		s.handleReportDuplicate(w, r, strings.TrimSuffix(path, "/duplicate"))
	case strings.HasSuffix(path, "/comments"):
		s.handleReportComment(w, r, strings.TrimSuffix(path, "/comments"))
	case strings.HasSuffix(path, "/print"):
		s.handleReportPrint(w, r, strings.TrimSuffix(path, "/print"))
	case strings.Contains(path, "/"):
		WriteError(w, http.StatusNotFound, "unknown report resource")
	default:
		s.handleReportByID(w, r, path)
	}
}

// handleHealth responds to GET/HEAD /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVersion responds to GET/HEAD /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// handleReportsWS upgrades GET /api/ws/reports to a WebSocket that streams
// report change events.
func (s *Server) handleReportsWS(w http.ResponseWriter, r *http.Request) {
	s.app.Hub.ServeWS(w, r)
}
