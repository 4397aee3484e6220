package badgerdb

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htmmed/qctrack/internal/common"
	"github.com/htmmed/qctrack/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func strPtr(s string) *string { return &s }

func TestReportCreateAssignsID(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	r := &models.DefectReport{ReportedDate: "2025-06-01", Status: models.StatusNew}
	require.NoError(t, m.Reports().Create(ctx, r))

	assert.True(t, strings.HasPrefix(r.ID, "rp_"))
	assert.False(t, r.CreatedAt.IsZero())

	got, err := m.Reports().Get(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2025-06-01", got.ReportedDate)
}

func TestReportCreateReplacesDraftID(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	r := &models.DefectReport{ID: models.DraftIDPrefix + "abc12345", Status: models.StatusNew}
	require.NoError(t, m.Reports().Create(ctx, r))

	assert.False(t, r.IsDraft())
	assert.True(t, strings.HasPrefix(r.ID, "rp_"))
}

func TestReportGetMissingReturnsNilNil(t *testing.T) {
	m := newTestManager(t)

	got, err := m.Reports().Get(context.Background(), "rp_missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReportListOrderedByCreationDesc(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	first := &models.DefectReport{Status: models.StatusNew}
	require.NoError(t, m.Reports().Create(ctx, first))
	time.Sleep(5 * time.Millisecond)
	second := &models.DefectReport{Status: models.StatusNew}
	require.NoError(t, m.Reports().Create(ctx, second))

	got, err := m.Reports().List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID, "newest first")
	assert.Equal(t, first.ID, got[1].ID)
}

func TestReportUpdateAppliesPatch(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	r := &models.DefectReport{Status: models.StatusNew}
	require.NoError(t, m.Reports().Create(ctx, r))

	patch := models.ReportPatch{
		Status:    strPtr(models.StatusInProgress),
		RootCause: strPtr("sealing jaw drift"),
	}
	require.NoError(t, m.Reports().Update(ctx, r.ID, patch))

	got, err := m.Reports().Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.Equal(t, "sealing jaw drift", got.RootCause)
}

func TestReportUpdateMissing(t *testing.T) {
	m := newTestManager(t)
	err := m.Reports().Update(context.Background(), "rp_missing", models.ReportPatch{Status: strPtr(models.StatusCompleted)})
	assert.Error(t, err)
}

func TestReportReplaceKeepsCreatedAt(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	r := &models.DefectReport{Status: models.StatusNew, ComplaintText: "original"}
	require.NoError(t, m.Reports().Create(ctx, r))
	created := r.CreatedAt

	edited := *r
	edited.ComplaintText = "rewritten"
	edited.CreatedAt = time.Time{}
	require.NoError(t, m.Reports().Replace(ctx, &edited))

	got, err := m.Reports().Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", got.ComplaintText)
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestReportDelete(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	r := &models.DefectReport{Status: models.StatusNew}
	require.NoError(t, m.Reports().Create(ctx, r))
	require.NoError(t, m.Reports().Delete(ctx, r.ID))

	got, err := m.Reports().Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, m.Reports().Delete(ctx, r.ID))
}

func TestReportBatchUpdateAtomic(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	a := &models.DefectReport{Status: models.StatusNew}
	b := &models.DefectReport{Status: models.StatusNew}
	require.NoError(t, m.Reports().Create(ctx, a))
	require.NoError(t, m.Reports().Create(ctx, b))

	patch := models.ReportPatch{Status: strPtr(models.StatusInProgress)}

	n, err := m.Reports().BatchUpdate(ctx, []string{a.ID, b.ID}, patch)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// A missing id fails the whole batch; the existing report is untouched.
	_, err = m.Reports().BatchUpdate(ctx, []string{a.ID, "rp_missing"}, models.ReportPatch{Status: strPtr(models.StatusCompleted)})
	require.Error(t, err)

	got, err := m.Reports().Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
}

func TestReportBatchUpdateDeduplicatesIDs(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	r := &models.DefectReport{Status: models.StatusNew}
	require.NoError(t, m.Reports().Create(ctx, r))

	n, err := m.Reports().BatchUpdate(ctx, []string{r.ID, r.ID}, models.ReportPatch{Status: strPtr(models.StatusInProgress)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := m.Reports().Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
}

func TestReportAppendActivityUnion(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	r := &models.DefectReport{Status: models.StatusNew}
	require.NoError(t, m.Reports().Create(ctx, r))

	e1 := models.ActivityEntry{ID: "act_1", Kind: models.ActivityKindLog, Content: "created"}
	e2 := models.ActivityEntry{ID: "act_2", Kind: models.ActivityKindComment, Content: "checking batch"}

	require.NoError(t, m.Reports().AppendActivity(ctx, r.ID, e1))
	require.NoError(t, m.Reports().AppendActivity(ctx, r.ID, e1, e2))

	got, err := m.Reports().Get(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, got.ActivityLog, 2, "duplicate entry ids merge instead of duplicating")
	assert.Equal(t, "act_1", got.ActivityLog[0].ID)
	assert.Equal(t, "act_2", got.ActivityLog[1].ID)
}

func TestProductStore(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	p := &models.Product{ProductCode: "SP001", TradeName: "Sterile Pack A", Brand: "HTM"}
	require.NoError(t, m.Products().Upsert(ctx, p))

	got, err := m.Products().Get(ctx, "SP001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Sterile Pack A", got.TradeName)

	missing, err := m.Products().Get(ctx, "ZZ999")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, m.Products().Delete(ctx, "SP001"))
	assert.Error(t, m.Products().Delete(ctx, "SP001"))
}

func TestProductBulkUpsert(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	batch := []*models.Product{
		{ProductCode: "SP001", TradeName: "Sterile Pack A"},
		{ProductCode: "SP002", TradeName: "Sterile Pack B"},
		{TradeName: "Loose Item"},
	}
	n, err := m.Products().BulkUpsert(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	list, err := m.Products().List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestSettingsStoreDefaults(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	table, err := m.Settings().GetRoleTable(ctx)
	require.NoError(t, err)
	require.NotNil(t, table)
	assert.Contains(t, table.Roles, models.RoleAdmin)

	appearance, err := m.Settings().GetAppearance(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultAppearanceSettings().CompanyName, appearance.CompanyName)
}

func TestSettingsStoreRoundTrip(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	table := models.DefaultRoleTable()
	cfg := table.Roles[models.RoleSales]
	cfg.CanViewDashboard = true
	table.Roles[models.RoleSales] = cfg
	table.UpdatedBy = "admin"
	require.NoError(t, m.Settings().SaveRoleTable(ctx, table))

	got, err := m.Settings().GetRoleTable(ctx)
	require.NoError(t, err)
	assert.True(t, got.Roles[models.RoleSales].CanViewDashboard)
	assert.Equal(t, "admin", got.UpdatedBy)
	assert.False(t, got.UpdatedAt.IsZero())

	appearance := &models.AppearanceSettings{CompanyName: "Acme Medical", PrimaryColor: "#004080"}
	require.NoError(t, m.Settings().SaveAppearance(ctx, appearance))
	gotApp, err := m.Settings().GetAppearance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Acme Medical", gotApp.CompanyName)
}

func TestUserStore(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	u := &models.User{Username: "chi", Name: "Chi", Password: "secret", Role: models.RoleTechnical}
	require.NoError(t, m.Users().Save(ctx, u))
	created := u.CreatedAt
	require.False(t, created.IsZero())

	u.Password = "rotated"
	require.NoError(t, m.Users().Save(ctx, u))

	got, err := m.Users().Get(ctx, "chi")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "rotated", got.Password)
	assert.True(t, got.CreatedAt.Equal(created), "save preserves creation time")

	missing, err := m.Users().Get(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := m.Users().List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, m.Users().Delete(ctx, "chi"))
	assert.Error(t, m.Users().Delete(ctx, "chi"))
}
