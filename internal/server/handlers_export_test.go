package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/htmmed/qctrack/internal/models"
)

func TestReportExport(t *testing.T) {
	srv := newTestServer(t)
	seedReport(t, srv, nil)
	seedReport(t, srv, func(r *models.DefectReport) { r.DefectOrigin = models.OriginSupplier })

	// Production role exports only what it can see.
	req := asRole(httptest.NewRequest(http.MethodGet, "/api/reports/export", nil), "dan", models.RoleProduction)
	rec := httptest.NewRecorder()
	srv.handleReportExport(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "defect-reports-")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Defect Reports")
	require.NoError(t, err)
	// Header plus the one visible report.
	require.Len(t, rows, 2)
	assert.Equal(t, "ID", rows[0][0])
	assert.Contains(t, rows[1], "HTM-100")
}

func TestReportPrintPDF(t *testing.T) {
	srv := newTestServer(t)
	report := seedReport(t, srv, nil)

	req := asRole(httptest.NewRequest(http.MethodGet, "/api/reports/"+report.ID+"/print", nil), "alice", models.RoleTechnical)
	rec := httptest.NewRecorder()
	srv.routeReports(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}
