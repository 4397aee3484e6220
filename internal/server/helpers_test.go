package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/htmmed/qctrack/internal/app"
	"github.com/htmmed/qctrack/internal/common"
	"github.com/htmmed/qctrack/internal/models"
	"github.com/htmmed/qctrack/internal/storage"
)

// newTestServer builds a server over the embedded backend in a temp dir.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := common.NewSilentLogger()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = common.BackendEmbedded
	cfg.Storage.Path = filepath.Join(t.TempDir(), "qctrack")

	mgr, err := storage.NewManager(logger, cfg)
	require.NoError(t, err)

	a := app.NewAppWithStorage(cfg, logger, mgr)
	t.Cleanup(a.Close)

	return NewServer(a)
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(data)
}

// asRole attaches an authenticated identity to the request, bypassing the
// bearer middleware the way a validated token would.
func asRole(r *http.Request, username, role string) *http.Request {
	uc := &common.UserContext{Username: username, Name: username, Role: role}
	return r.WithContext(common.WithUserContext(r.Context(), uc))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

// seedReport persists a valid report directly through the store.
func seedReport(t *testing.T, srv *Server, mutate func(*models.DefectReport)) *models.DefectReport {
	t.Helper()
	report := &models.DefectReport{
		ReportedDate:      "2024-03-10",
		ProductCode:       "HTM-100",
		ProductLine:       "Infusion",
		TradeName:         "FlowSet",
		Brand:             models.BrandHTM,
		BatchNumber:       "B1001",
		Distributor:       "MedSupply",
		ComplaintText:     "leaking connector",
		DefectOrigin:      models.OriginProduction,
		Status:            models.StatusNew,
		QuantityReceived:  100,
		QuantityDefective: 3,
	}
	if mutate != nil {
		mutate(report)
	}
	require.NoError(t, srv.app.Storage.Reports().Create(context.Background(), report))
	return report
}

func seedCatalog(t *testing.T, srv *Server) {
	t.Helper()
	products := []*models.Product{
		{ProductCode: "HTM-100", TradeName: "FlowSet", DeviceName: "Infusion Set", ProductLine: "Infusion", Brand: models.BrandHTM},
		{ProductCode: "HTM-200", TradeName: "FlowSet Plus", DeviceName: "Infusion Set", ProductLine: "Infusion", Brand: models.BrandHTM},
		{ProductCode: "VMA-300", TradeName: "DermPatch", DeviceName: "Dressing", ProductLine: "Wound Care", Brand: models.BrandVMA},
	}
	_, err := srv.app.Storage.Products().BulkUpsert(context.Background(), products)
	require.NoError(t, err)
}
