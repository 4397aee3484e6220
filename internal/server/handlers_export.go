package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/htmmed/qctrack/internal/services/exporter"
	"github.com/htmmed/qctrack/internal/services/printer"
)

// handleReportExport handles GET /api/reports/export — download the
// filtered report list as a spreadsheet. The same filter query parameters
// as the listing apply; the role's origin restriction is enforced.
func (s *Server) handleReportExport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	filtered, err := s.visibleReports(r)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing reports: %v", err))
		return
	}

	file, err := exporter.ExportReports(filtered)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error building spreadsheet: %v", err))
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exporter.Filename(time.Now())))
	w.WriteHeader(http.StatusOK)
	if err := file.Write(w); err != nil {
		s.logger.Warn().Err(err).Msg("Error streaming spreadsheet")
	}
}

// handleReportPrint handles GET /api/reports/{id}/print — render one
// report as a printable PDF sheet.
func (s *Server) handleReportPrint(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	report, ok := s.loadVisibleReport(w, r, id)
	if !ok {
		return
	}

	appearance, err := s.app.Storage.Settings().GetAppearance(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading appearance settings: %v", err))
		return
	}

	pdf, err := printer.RenderReport(report, appearance)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error rendering report: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", report.ID+".pdf"))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
