package surrealdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/htmmed/qctrack/internal/common"
	"github.com/htmmed/qctrack/internal/interfaces"
	"github.com/htmmed/qctrack/internal/models"
)

// reportSelectFields lists the fields to select from defect_report,
// aliasing report_id to id for struct mapping.
const reportSelectFields = `report_id as id, created_at, updated_at,
	reported_date, completed_date, exchange_date,
	product_code, product_line, trade_name, device_name, brand,
	batch_number, distributor, using_unit,
	quantity_received, quantity_defective, quantity_exchanged,
	complaint_text, root_cause, resolution, status, defect_origin,
	images, activity_log`

// ReportStore implements interfaces.ReportStore using SurrealDB.
type ReportStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

var _ interfaces.ReportStore = (*ReportStore)(nil)

// NewReportStore creates a new ReportStore.
func NewReportStore(db *surrealdb.DB, logger *common.Logger) *ReportStore {
	return &ReportStore{db: db, logger: logger}
}

func reportVars(r *models.DefectReport) map[string]any {
	return map[string]any{
		"rid":                surrealmodels.NewRecordID("defect_report", r.ID),
		"report_id":          r.ID,
		"created_at":         r.CreatedAt,
		"updated_at":         r.UpdatedAt,
		"reported_date":      r.ReportedDate,
		"completed_date":     r.CompletedDate,
		"exchange_date":      r.ExchangeDate,
		"product_code":       r.ProductCode,
		"product_line":       r.ProductLine,
		"trade_name":         r.TradeName,
		"device_name":        r.DeviceName,
		"brand":              r.Brand,
		"batch_number":       r.BatchNumber,
		"distributor":        r.Distributor,
		"using_unit":         r.UsingUnit,
		"quantity_received":  r.QuantityReceived,
		"quantity_defective": r.QuantityDefective,
		"quantity_exchanged": r.QuantityExchanged,
		"complaint_text":     r.ComplaintText,
		"root_cause":         r.RootCause,
		"resolution":         r.Resolution,
		"status":             r.Status,
		"defect_origin":      r.DefectOrigin,
		"images":             r.Images,
		"activity_log":       r.ActivityLog,
	}
}

const reportSetClause = `report_id = $report_id, created_at = $created_at, updated_at = $updated_at,
	reported_date = $reported_date, completed_date = $completed_date, exchange_date = $exchange_date,
	product_code = $product_code, product_line = $product_line, trade_name = $trade_name,
	device_name = $device_name, brand = $brand,
	batch_number = $batch_number, distributor = $distributor, using_unit = $using_unit,
	quantity_received = $quantity_received, quantity_defective = $quantity_defective,
	quantity_exchanged = $quantity_exchanged,
	complaint_text = $complaint_text, root_cause = $root_cause, resolution = $resolution,
	status = $status, defect_origin = $defect_origin,
	images = $images, activity_log = $activity_log`

func (s *ReportStore) Create(ctx context.Context, report *models.DefectReport) error {
	if report.ID == "" || strings.HasPrefix(report.ID, models.DraftIDPrefix) {
		report.ID = fmt.Sprintf("rp_%s", uuid.New().String()[:8])
	}
	now := time.Now().UTC()
	report.CreatedAt = now
	report.UpdatedAt = now

	sql := "UPSERT $rid SET " + reportSetClause
	if _, err := surrealdb.Query[any](ctx, s.db, sql, reportVars(report)); err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	s.logger.Debug().Str("id", report.ID).Msg("Report created")
	return nil
}

func (s *ReportStore) Get(ctx context.Context, id string) (*models.DefectReport, error) {
	sql := "SELECT " + reportSelectFields + " FROM $rid"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID("defect_report", id),
	}

	results, err := surrealdb.Query[[]models.DefectReport](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

func (s *ReportStore) List(ctx context.Context) ([]*models.DefectReport, error) {
	sql := "SELECT " + reportSelectFields + " FROM defect_report ORDER BY created_at DESC, report_id DESC"

	results, err := surrealdb.Query[[]models.DefectReport](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	reports := make([]*models.DefectReport, 0)
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			reports = append(reports, &(*results)[0].Result[i])
		}
	}
	return reports, nil
}

// patchClause renders a patch's set fields as a SET fragment with bound
// vars. Field order is sorted for a deterministic statement.
func patchClause(patch models.ReportPatch, vars map[string]any) string {
	fields := patch.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+1)
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s = $patch_%s", name, name))
		vars["patch_"+name] = fields[name]
	}
	parts = append(parts, "updated_at = $patch_updated_at")
	vars["patch_updated_at"] = time.Now().UTC()
	return strings.Join(parts, ", ")
}

func (s *ReportStore) Update(ctx context.Context, id string, patch models.ReportPatch) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("report %s not found", id)
	}

	vars := map[string]any{
		"rid": surrealmodels.NewRecordID("defect_report", id),
	}
	sql := "UPDATE $rid SET " + patchClause(patch, vars)
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to update report %s: %w", id, err)
	}
	return nil
}

func (s *ReportStore) Replace(ctx context.Context, report *models.DefectReport) error {
	existing, err := s.Get(ctx, report.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("report %s not found", report.ID)
	}

	report.CreatedAt = existing.CreatedAt
	report.UpdatedAt = time.Now().UTC()

	sql := "UPSERT $rid SET " + reportSetClause
	if _, err := surrealdb.Query[any](ctx, s.db, sql, reportVars(report)); err != nil {
		return fmt.Errorf("failed to replace report %s: %w", report.ID, err)
	}
	return nil
}

func (s *ReportStore) Delete(ctx context.Context, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("report %s not found", id)
	}

	if _, err := surrealdb.Delete[models.DefectReport](ctx, s.db, surrealmodels.NewRecordID("defect_report", id)); err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete report %s: %w", id, err)
	}
	s.logger.Debug().Str("id", id).Msg("Report deleted")
	return nil
}

// BatchUpdate patches every id in one transaction. A missing id throws
// inside the transaction, rolling the whole batch back. Repeated ids
// count once.
func (s *ReportStore) BatchUpdate(ctx context.Context, ids []string, patch models.ReportPatch) (int, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	vars := map[string]any{"ids": ids}
	clause := patchClause(patch, vars)

	sql := `BEGIN TRANSACTION;
LET $found = (SELECT VALUE report_id FROM defect_report WHERE report_id IN $ids);
IF array::len($found) != array::len($ids) { THROW "report missing from batch" };
UPDATE defect_report SET ` + clause + ` WHERE report_id IN $ids;
COMMIT TRANSACTION;`

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return 0, fmt.Errorf("failed to batch update reports: %w", err)
	}
	s.logger.Debug().Int("count", len(ids)).Msg("Batch update applied")
	return len(ids), nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// AppendActivity unions entries into the activity log so concurrent
// appends merge instead of clobbering each other.
func (s *ReportStore) AppendActivity(ctx context.Context, id string, entries ...models.ActivityEntry) error {
	if len(entries) == 0 {
		return nil
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("report %s not found", id)
	}

	sql := `UPDATE $rid SET
		activity_log = array::union(activity_log ?? [], $entries),
		updated_at = $now`
	vars := map[string]any{
		"rid":     surrealmodels.NewRecordID("defect_report", id),
		"entries": entries,
		"now":     time.Now().UTC(),
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to append activity on %s: %w", id, err)
	}
	return nil
}
