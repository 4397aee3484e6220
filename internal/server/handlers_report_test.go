package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htmmed/qctrack/internal/models"
)

func TestReportCreate(t *testing.T) {
	srv := newTestServer(t)
	seedCatalog(t, srv)

	body := jsonBody(t, map[string]interface{}{
		"reported_date":  "2024-05-01",
		"product_code":   "htm-100", // wrong case, canonicalized from catalog
		"batch_number":   "B2001",
		"distributor":    "MedSupply",
		"complaint_text": "cracked housing",
		"defect_origin":  "manufacturing", // legacy spelling
	})
	req := asRole(httptest.NewRequest(http.MethodPost, "/api/reports", body), "alice", models.RoleTechnical)
	rec := httptest.NewRecorder()
	srv.handleReports(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var report models.DefectReport
	decodeBody(t, rec, &report)
	assert.Regexp(t, `^rp_`, report.ID)
	assert.Equal(t, "HTM-100", report.ProductCode)
	assert.Equal(t, "FlowSet", report.TradeName)
	assert.Equal(t, models.BrandHTM, report.Brand)
	assert.Equal(t, models.OriginProduction, report.DefectOrigin)
	assert.Equal(t, models.StatusNew, report.Status)
}

func TestReportCreateValidation(t *testing.T) {
	srv := newTestServer(t)

	body := jsonBody(t, map[string]interface{}{
		"product_code": "HTM-100",
	})
	req := asRole(httptest.NewRequest(http.MethodPost, "/api/reports", body), "alice", models.RoleTechnical)
	rec := httptest.NewRecorder()
	srv.handleReports(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		First      string `json:"first"`
		Violations []struct {
			Field string `json:"field"`
		} `json:"violations"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, "reported_date", resp.First)
	assert.NotEmpty(t, resp.Violations)
}

func TestReportCreateForbidden(t *testing.T) {
	srv := newTestServer(t)

	body := jsonBody(t, map[string]interface{}{"reported_date": "2024-05-01"})
	req := asRole(httptest.NewRequest(http.MethodPost, "/api/reports", body), "gd", models.RoleGeneralDirector)
	rec := httptest.NewRecorder()
	srv.handleReports(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReportListFiltersAndPaginates(t *testing.T) {
	srv := newTestServer(t)
	seedReport(t, srv, nil)
	seedReport(t, srv, func(r *models.DefectReport) {
		r.Status = models.StatusCompleted
		r.ReportedDate = "2023-06-01"
		r.DefectOrigin = models.OriginSupplier
	})
	seedReport(t, srv, func(r *models.DefectReport) {
		r.BatchNumber = "B9999"
	})

	req := asRole(httptest.NewRequest(http.MethodGet, "/api/reports?status=new&page_size=1&page=2", nil), "alice", models.RoleAdmin)
	rec := httptest.NewRecorder()
	srv.handleReports(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Page struct {
			Reports   []models.DefectReport `json:"reports"`
			Total     int                   `json:"total"`
			PageCount int                   `json:"page_count"`
		} `json:"page"`
		Summary struct {
			Total int `json:"total"`
			New   int `json:"new"`
		} `json:"summary"`
		Years []string `json:"years"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, 2, resp.Page.Total)
	assert.Equal(t, 2, resp.Page.PageCount)
	assert.Len(t, resp.Page.Reports, 1)
	assert.Equal(t, 2, resp.Summary.New)
	assert.Equal(t, []string{"2024"}, resp.Years)
}

func TestReportListOriginRestriction(t *testing.T) {
	srv := newTestServer(t)
	seedReport(t, srv, nil) // production
	seedReport(t, srv, func(r *models.DefectReport) { r.DefectOrigin = models.OriginSupplier })

	// Production role sees production and mixed origins only.
	req := asRole(httptest.NewRequest(http.MethodGet, "/api/reports", nil), "bob", models.RoleProduction)
	rec := httptest.NewRecorder()
	srv.handleReports(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Page struct {
			Total int `json:"total"`
		} `json:"page"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, 1, resp.Page.Total)
}

func TestReportGetHidesRestrictedOrigin(t *testing.T) {
	srv := newTestServer(t)
	report := seedReport(t, srv, func(r *models.DefectReport) { r.DefectOrigin = models.OriginSupplier })

	req := asRole(httptest.NewRequest(http.MethodGet, "/api/reports/"+report.ID, nil), "bob", models.RoleProduction)
	rec := httptest.NewRecorder()
	srv.routeReports(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportQuickUpdateAutoCompletes(t *testing.T) {
	srv := newTestServer(t)
	report := seedReport(t, srv, func(r *models.DefectReport) {
		r.RootCause = "seal defect"
		r.Resolution = "replaced batch"
	})

	body := jsonBody(t, map[string]interface{}{
		"quantity_exchanged": 5,
		"exchange_date":      "2024-04-01",
	})
	req := asRole(httptest.NewRequest(http.MethodPatch, "/api/reports/"+report.ID, body), "alice", models.RoleTechnical)
	rec := httptest.NewRecorder()
	srv.routeReports(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := srv.app.Storage.Reports().Get(context.Background(), report.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.NotEmpty(t, got.CompletedDate)
	assert.Equal(t, 5, got.QuantityExchanged)
	require.NotEmpty(t, got.ActivityLog)
	assert.Equal(t, models.ActivityKindLog, got.ActivityLog[0].Kind)
}

func TestReportQuickUpdateForbiddenField(t *testing.T) {
	srv := newTestServer(t)
	report := seedReport(t, srv, nil)

	// Production may edit root cause and resolution, not status.
	body := jsonBody(t, map[string]interface{}{"status": models.StatusInProgress})
	req := asRole(httptest.NewRequest(http.MethodPatch, "/api/reports/"+report.ID, body), "bob", models.RoleProduction)
	rec := httptest.NewRecorder()
	srv.routeReports(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	got, err := srv.app.Storage.Reports().Get(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, got.Status)
}

func TestReportReplace(t *testing.T) {
	srv := newTestServer(t)
	report := seedReport(t, srv, nil)

	updated := *report
	updated.ComplaintText = "leaking connector, revised description"
	updated.Status = models.StatusInProgress

	req := asRole(httptest.NewRequest(http.MethodPut, "/api/reports/"+report.ID, jsonBody(t, &updated)), "alice", models.RoleTechnical)
	rec := httptest.NewRecorder()
	srv.routeReports(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := srv.app.Storage.Reports().Get(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.Equal(t, "leaking connector, revised description", got.ComplaintText)
	assert.Equal(t, report.CreatedAt.Unix(), got.CreatedAt.Unix())
}

func TestReportReplaceForbiddenFieldChange(t *testing.T) {
	srv := newTestServer(t)
	report := seedReport(t, srv, nil)

	// Supply may edit general, exchange quantity and status, not root cause.
	updated := *report
	updated.RootCause = "sneaky edit"

	req := asRole(httptest.NewRequest(http.MethodPut, "/api/reports/"+report.ID, jsonBody(t, &updated)), "carol", models.RoleSupply)
	rec := httptest.NewRecorder()
	srv.routeReports(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReportDelete(t *testing.T) {
	srv := newTestServer(t)
	report := seedReport(t, srv, nil)

	// Missing confirmation
	req := asRole(httptest.NewRequest(http.MethodDelete, "/api/reports/"+report.ID, nil), "alice", models.RoleAdmin)
	rec := httptest.NewRecorder()
	srv.routeReports(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Supply may not delete at all
	req = asRole(httptest.NewRequest(http.MethodDelete, "/api/reports/"+report.ID+"?confirm=true", nil), "carol", models.RoleSupply)
	rec = httptest.NewRecorder()
	srv.routeReports(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = asRole(httptest.NewRequest(http.MethodDelete, "/api/reports/"+report.ID+"?confirm=true", nil), "alice", models.RoleAdmin)
	rec = httptest.NewRecorder()
	srv.routeReports(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := srv.app.Storage.Reports().Get(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReportDuplicate(t *testing.T) {
	srv := newTestServer(t)
	report := seedReport(t, srv, func(r *models.DefectReport) {
		r.Status = models.StatusCompleted
		r.RootCause = "seal defect"
		r.Resolution = "replaced"
		r.CompletedDate = "2024-03-20"
		r.QuantityExchanged = 4
	})

	req := asRole(httptest.NewRequest(http.MethodPost, "/api/reports/"+report.ID+"/duplicate", nil), "alice", models.RoleTechnical)
	rec := httptest.NewRecorder()
	srv.routeReports(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var draft models.DefectReport
	decodeBody(t, rec, &draft)
	assert.True(t, draft.IsDraft())
	assert.Equal(t, models.StatusNew, draft.Status)
	assert.Empty(t, draft.RootCause)
	assert.Empty(t, draft.CompletedDate)
	assert.Zero(t, draft.QuantityExchanged)
	assert.Equal(t, report.ProductCode, draft.ProductCode)
	assert.Equal(t, report.QuantityDefective, draft.QuantityDefective)
}

func TestReportComment(t *testing.T) {
	srv := newTestServer(t)
	report := seedReport(t, srv, nil)

	body := jsonBody(t, map[string]string{"content": "called the distributor"})
	req := asRole(httptest.NewRequest(http.MethodPost, "/api/reports/"+report.ID+"/comments", body), "carol", models.RoleSupply)
	rec := httptest.NewRecorder()
	srv.routeReports(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got, err := srv.app.Storage.Reports().Get(context.Background(), report.ID)
	require.NoError(t, err)
	require.Len(t, got.ActivityLog, 1)
	assert.Equal(t, models.ActivityKindComment, got.ActivityLog[0].Kind)
	assert.Equal(t, "carol", got.ActivityLog[0].Author)
}

func TestReportBatchUpdate(t *testing.T) {
	srv := newTestServer(t)
	r1 := seedReport(t, srv, nil)
	r2 := seedReport(t, srv, nil)

	body := jsonBody(t, map[string]interface{}{
		"ids":   []string{r1.ID, r2.ID},
		"patch": map[string]string{"status": models.StatusInProgress},
	})
	req := asRole(httptest.NewRequest(http.MethodPost, "/api/reports/batch", body), "carol", models.RoleSupply)
	rec := httptest.NewRecorder()
	srv.handleReportBatch(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Updated int `json:"updated"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, 2, resp.Updated)

	got, err := srv.app.Storage.Reports().Get(context.Background(), r1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
}

func TestReportBatchUpdateAtomicOnMissing(t *testing.T) {
	srv := newTestServer(t)
	r1 := seedReport(t, srv, nil)

	body := jsonBody(t, map[string]interface{}{
		"ids":   []string{r1.ID, "rp_missing"},
		"patch": map[string]string{"status": models.StatusInProgress},
	})
	req := asRole(httptest.NewRequest(http.MethodPost, "/api/reports/batch", body), "alice", models.RoleAdmin)
	rec := httptest.NewRecorder()
	srv.handleReportBatch(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	got, err := srv.app.Storage.Reports().Get(context.Background(), r1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, got.Status)
}
