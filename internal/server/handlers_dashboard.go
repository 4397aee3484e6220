package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/htmmed/qctrack/internal/services/dashboard"
)

// requireDashboard resolves the caller's capability and gates on the
// dashboard permission.
func (s *Server) requireDashboard(w http.ResponseWriter, r *http.Request) bool {
	rc, err := s.capability(r)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error resolving permissions: %v", err))
		return false
	}
	if !rc.CanViewDashboard {
		WriteError(w, http.StatusForbidden, "role may not view the dashboard")
		return false
	}
	return true
}

// handleDashboard handles GET /api/dashboard — aggregate the filtered set.
// The same filter query parameters as the report listing apply.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if !s.requireDashboard(w, r) {
		return
	}

	filtered, err := s.visibleReports(r)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error aggregating reports: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, dashboard.Aggregate(filtered))
}

// handleDashboardDrill handles GET /api/dashboard/reports — the reports
// behind one dashboard bucket. Drill dimensions stack on top of the
// regular filter parameters.
func (s *Server) handleDashboardDrill(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if !s.requireDashboard(w, r) {
		return
	}

	filtered, err := s.visibleReports(r)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error aggregating reports: %v", err))
		return
	}

	q := r.URL.Query()
	if v := q.Get("drill_status"); v != "" {
		filtered = dashboard.ByStatus(filtered, v)
	}
	if v := q.Get("drill_origin"); v != "" {
		filtered = dashboard.ByOrigin(filtered, v)
	}
	if v := q.Get("drill_brand"); v != "" {
		filtered = dashboard.ByBrand(filtered, v)
	}
	if v := q.Get("drill_trade_name"); v != "" {
		filtered = dashboard.ByTradeName(filtered, v)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reports": filtered,
		"total":   len(filtered),
	})
}

// handleDashboardChart handles GET /api/dashboard/charts/{kind} — render
// a dashboard distribution as a PNG. Kinds: status, origin, trade-names.
func (s *Server) handleDashboardChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if !s.requireDashboard(w, r) {
		return
	}

	kind := strings.TrimPrefix(r.URL.Path, "/api/dashboard/charts/")

	filtered, err := s.visibleReports(r)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error aggregating reports: %v", err))
		return
	}
	ov := dashboard.Aggregate(filtered)

	var png []byte
	switch kind {
	case "status":
		png, err = dashboard.StatusPieChart(ov)
	case "origin":
		png, err = dashboard.OriginPieChart(ov)
	case "trade-names":
		png, err = dashboard.TopTradeNameBarChart(ov)
	default:
		WriteError(w, http.StatusNotFound, fmt.Sprintf("unknown chart %q", kind))
		return
	}
	if err != nil {
		if errors.Is(err, dashboard.ErrNoChartData) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error rendering chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
