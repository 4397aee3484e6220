package badgerdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/htmmed/qctrack/internal/common"
	"github.com/htmmed/qctrack/internal/interfaces"
	"github.com/htmmed/qctrack/internal/models"
)

type reportStore struct {
	db     *badgerhold.Store
	logger *common.Logger
}

var _ interfaces.ReportStore = (*reportStore)(nil)

func newReportID() string {
	return "rp_" + uuid.New().String()[:8]
}

func (s *reportStore) Create(_ context.Context, report *models.DefectReport) error {
	if report.ID == "" || strings.HasPrefix(report.ID, models.DraftIDPrefix) {
		report.ID = newReportID()
	}
	now := time.Now().UTC()
	report.CreatedAt = now
	report.UpdatedAt = now

	if err := s.db.Insert(report.ID, report); err != nil {
		if err == badgerhold.ErrKeyExists {
			return fmt.Errorf("report %s already exists", report.ID)
		}
		return fmt.Errorf("failed to create report: %w", err)
	}
	s.logger.Debug().Str("id", report.ID).Msg("Report created")
	return nil
}

func (s *reportStore) Get(_ context.Context, id string) (*models.DefectReport, error) {
	var report models.DefectReport
	err := s.db.Get(id, &report)
	if err == badgerhold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", id, err)
	}
	return &report, nil
}

func (s *reportStore) List(_ context.Context) ([]*models.DefectReport, error) {
	var reports []models.DefectReport
	if err := s.db.Find(&reports, nil); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	out := make([]*models.DefectReport, len(reports))
	for i := range reports {
		out[i] = &reports[i]
	}
	return out, nil
}

func (s *reportStore) Update(_ context.Context, id string, patch models.ReportPatch) error {
	return s.db.Badger().Update(func(tx *badger.Txn) error {
		var report models.DefectReport
		if err := s.db.TxGet(tx, id, &report); err != nil {
			if err == badgerhold.ErrNotFound {
				return fmt.Errorf("report %s not found", id)
			}
			return fmt.Errorf("failed to get report %s: %w", id, err)
		}
		patch.Apply(&report)
		report.UpdatedAt = time.Now().UTC()
		if err := s.db.TxUpdate(tx, id, &report); err != nil {
			return fmt.Errorf("failed to update report %s: %w", id, err)
		}
		return nil
	})
}

func (s *reportStore) Replace(_ context.Context, report *models.DefectReport) error {
	return s.db.Badger().Update(func(tx *badger.Txn) error {
		var existing models.DefectReport
		if err := s.db.TxGet(tx, report.ID, &existing); err != nil {
			if err == badgerhold.ErrNotFound {
				return fmt.Errorf("report %s not found", report.ID)
			}
			return fmt.Errorf("failed to get report %s: %w", report.ID, err)
		}
		report.CreatedAt = existing.CreatedAt
		report.UpdatedAt = time.Now().UTC()
		if err := s.db.TxUpdate(tx, report.ID, report); err != nil {
			return fmt.Errorf("failed to replace report %s: %w", report.ID, err)
		}
		return nil
	})
}

func (s *reportStore) Delete(_ context.Context, id string) error {
	err := s.db.Delete(id, models.DefectReport{})
	if err == badgerhold.ErrNotFound {
		return fmt.Errorf("report %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete report %s: %w", id, err)
	}
	s.logger.Debug().Str("id", id).Msg("Report deleted")
	return nil
}

// BatchUpdate applies the patch to every id inside one transaction, so a
// missing id rolls the whole batch back. Repeated ids count once.
func (s *reportStore) BatchUpdate(_ context.Context, ids []string, patch models.ReportPatch) (int, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	err := s.db.Badger().Update(func(tx *badger.Txn) error {
		for _, id := range ids {
			var report models.DefectReport
			if err := s.db.TxGet(tx, id, &report); err != nil {
				if err == badgerhold.ErrNotFound {
					return fmt.Errorf("report %s not found", id)
				}
				return fmt.Errorf("failed to get report %s: %w", id, err)
			}
			patch.Apply(&report)
			report.UpdatedAt = now
			if err := s.db.TxUpdate(tx, id, &report); err != nil {
				return fmt.Errorf("failed to update report %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
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

// AppendActivity merges entries into the report's activity log by entry
// id, so concurrent appends union instead of clobbering.
func (s *reportStore) AppendActivity(_ context.Context, id string, entries ...models.ActivityEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.Badger().Update(func(tx *badger.Txn) error {
		var report models.DefectReport
		if err := s.db.TxGet(tx, id, &report); err != nil {
			if err == badgerhold.ErrNotFound {
				return fmt.Errorf("report %s not found", id)
			}
			return fmt.Errorf("failed to get report %s: %w", id, err)
		}

		seen := make(map[string]bool, len(report.ActivityLog))
		for _, e := range report.ActivityLog {
			seen[e.ID] = true
		}
		for _, e := range entries {
			if !seen[e.ID] {
				report.ActivityLog = append(report.ActivityLog, e)
				seen[e.ID] = true
			}
		}

		report.UpdatedAt = time.Now().UTC()
		if err := s.db.TxUpdate(tx, id, &report); err != nil {
			return fmt.Errorf("failed to append activity on %s: %w", id, err)
		}
		return nil
	})
}
