package surrealdb

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htmmed/qctrack/internal/models"
)

func strPtr(s string) *string { return &s }

func TestReportStore_CreateAndGet(t *testing.T) {
	db := testDB(t)
	store := NewReportStore(db, testLogger())
	ctx := context.Background()

	r := &models.DefectReport{
		ID:            models.DraftIDPrefix + "abc12345",
		ReportedDate:  "2025-06-01",
		ProductCode:   "SP001",
		TradeName:     "Sterile Pack A",
		Brand:         models.BrandHTM,
		Status:        models.StatusNew,
		DefectOrigin:  models.OriginProduction,
		ComplaintText: "seal leak on arrival",
	}

	err := store.Create(ctx, r)
	require.NoError(t, err)
	assert.Contains(t, r.ID, "rp_")
	assert.False(t, r.IsDraft())
	assert.False(t, r.CreatedAt.IsZero())

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "SP001", got.ProductCode)
	assert.Equal(t, "seal leak on arrival", got.ComplaintText)
}

func TestReportStore_GetNotFound(t *testing.T) {
	db := testDB(t)
	store := NewReportStore(db, testLogger())

	got, err := store.Get(context.Background(), "rp_nonexistent")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestReportStore_ListOrderedByCreationDesc(t *testing.T) {
	db := testDB(t)
	store := NewReportStore(db, testLogger())
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		r := &models.DefectReport{
			ReportedDate:  "2025-06-0" + strconv.Itoa(i+1),
			Status:        models.StatusNew,
			ComplaintText: "complaint " + strconv.Itoa(i),
		}
		require.NoError(t, store.Create(ctx, r))
		ids = append(ids, r.ID)
	}

	got, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, ids[2], got[0].ID, "newest first")
	assert.Equal(t, ids[0], got[2].ID)
}

func TestReportStore_UpdateAppliesPatch(t *testing.T) {
	db := testDB(t)
	store := NewReportStore(db, testLogger())
	ctx := context.Background()

	r := &models.DefectReport{Status: models.StatusNew}
	require.NoError(t, store.Create(ctx, r))

	patch := models.ReportPatch{
		Status:    strPtr(models.StatusInProgress),
		RootCause: strPtr("sealing jaw drift"),
	}
	require.NoError(t, store.Update(ctx, r.ID, patch))

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.Equal(t, "sealing jaw drift", got.RootCause)
}

func TestReportStore_UpdateMissing(t *testing.T) {
	db := testDB(t)
	store := NewReportStore(db, testLogger())

	err := store.Update(context.Background(), "rp_missing", models.ReportPatch{Status: strPtr(models.StatusCompleted)})
	assert.Error(t, err)
}

func TestReportStore_ReplaceKeepsCreatedAt(t *testing.T) {
	db := testDB(t)
	store := NewReportStore(db, testLogger())
	ctx := context.Background()

	r := &models.DefectReport{Status: models.StatusNew, ComplaintText: "original"}
	require.NoError(t, store.Create(ctx, r))
	created := r.CreatedAt

	edited := *r
	edited.ComplaintText = "rewritten"
	require.NoError(t, store.Replace(ctx, &edited))

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", got.ComplaintText)
	assert.WithinDuration(t, created, got.CreatedAt, 0)
}

func TestReportStore_Delete(t *testing.T) {
	db := testDB(t)
	store := NewReportStore(db, testLogger())
	ctx := context.Background()

	r := &models.DefectReport{Status: models.StatusNew}
	require.NoError(t, store.Create(ctx, r))
	require.NoError(t, store.Delete(ctx, r.ID))

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, store.Delete(ctx, r.ID))
}

func TestReportStore_BatchUpdateAtomic(t *testing.T) {
	db := testDB(t)
	store := NewReportStore(db, testLogger())
	ctx := context.Background()

	a := &models.DefectReport{Status: models.StatusNew}
	b := &models.DefectReport{Status: models.StatusNew}
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))

	n, err := store.BatchUpdate(ctx, []string{a.ID, b.ID}, models.ReportPatch{Status: strPtr(models.StatusInProgress)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	gotA, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, gotA.Status)

	// A missing id rolls the whole batch back.
	_, err = store.BatchUpdate(ctx, []string{a.ID, "rp_missing"}, models.ReportPatch{Status: strPtr(models.StatusCompleted)})
	require.Error(t, err)

	gotA, err = store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, gotA.Status, "existing report untouched after failed batch")

	// A repeated id counts once and does not trip the missing-id check.
	n, err = store.BatchUpdate(ctx, []string{b.ID, b.ID}, models.ReportPatch{Status: strPtr(models.StatusCompleted)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReportStore_AppendActivityUnion(t *testing.T) {
	db := testDB(t)
	store := NewReportStore(db, testLogger())
	ctx := context.Background()

	r := &models.DefectReport{Status: models.StatusNew}
	require.NoError(t, store.Create(ctx, r))

	e1 := models.ActivityEntry{ID: "act_1", Kind: models.ActivityKindLog, Content: "created"}
	e2 := models.ActivityEntry{ID: "act_2", Kind: models.ActivityKindComment, Content: "checking batch"}

	require.NoError(t, store.AppendActivity(ctx, r.ID, e1))
	require.NoError(t, store.AppendActivity(ctx, r.ID, e1, e2))

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, got.ActivityLog, 2, "duplicate entries merge instead of duplicating")
}
