// Package lifecycle implements the defect-report state machine: the
// auto-completion rule, submit validation, duplication, and the quick-edit
// commit path. Everything here is pure over the report value; callers pass
// the clock and persist the result.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/htmmed/qctrack/internal/models"
	"github.com/htmmed/qctrack/internal/services/permission"
)

// AutoComplete applies the automatic forward transition: when root cause and
// resolution are both non-empty (trimmed) and the exchanged quantity is
// positive, a non-completed report moves to completed and gets today's date
// as completion date unless one is already set.
//
// Returns true when the transition fired. Idempotent: a completed report is
// never touched again, so re-applying adds no duplicate log entries.
func AutoComplete(r *models.DefectReport, actor, actorRole string, now time.Time) bool {
	if r.Status == models.StatusCompleted {
		return false
	}
	if strings.TrimSpace(r.RootCause) == "" || strings.TrimSpace(r.Resolution) == "" {
		return false
	}
	if r.QuantityExchanged <= 0 {
		return false
	}

	r.Status = models.StatusCompleted
	if r.CompletedDate == "" {
		r.CompletedDate = now.Format(models.DateLayout)
	}
	r.ActivityLog = append(r.ActivityLog, NewLogEntry(
		"status automatically set to completed (root cause, resolution and exchange recorded)",
		actor, actorRole, now))
	return true
}

// Violation is one failed validation rule, in form order.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// requiredFields lists always-required fields in form order; the first
// violated entry is where the form scrolls to.
var requiredFields = []struct {
	name  string
	value func(*models.DefectReport) string
}{
	{"reported_date", func(r *models.DefectReport) string { return r.ReportedDate }},
	{"product_code", func(r *models.DefectReport) string { return r.ProductCode }},
	{"trade_name", func(r *models.DefectReport) string { return r.TradeName }},
	{"product_line", func(r *models.DefectReport) string { return r.ProductLine }},
	{"brand", func(r *models.DefectReport) string { return r.Brand }},
	{"batch_number", func(r *models.DefectReport) string { return r.BatchNumber }},
	{"distributor", func(r *models.DefectReport) string { return r.Distributor }},
	{"complaint_text", func(r *models.DefectReport) string { return r.ComplaintText }},
	{"defect_origin", func(r *models.DefectReport) string { return r.DefectOrigin }},
}

// completionFields are additionally required once status is completed.
var completionFields = []struct {
	name  string
	value func(*models.DefectReport) string
}{
	{"completed_date", func(r *models.DefectReport) string { return r.CompletedDate }},
	{"root_cause", func(r *models.DefectReport) string { return r.RootCause }},
	{"resolution", func(r *models.DefectReport) string { return r.Resolution }},
}

// Validate collects every submit-time violation in form order. An empty
// slice means the report may be persisted.
func Validate(r *models.DefectReport) []Violation {
	var violations []Violation
	for _, f := range requiredFields {
		if strings.TrimSpace(f.value(r)) == "" {
			violations = append(violations, Violation{Field: f.name, Message: f.name + " is required"})
		}
	}
	if r.Status == models.StatusCompleted {
		for _, f := range completionFields {
			if strings.TrimSpace(f.value(r)) == "" {
				violations = append(violations, Violation{Field: f.name, Message: f.name + " is required when status is completed"})
			}
		}
	}

	if r.QuantityReceived < 0 {
		violations = append(violations, Violation{Field: "quantity_received", Message: "quantity_received must not be negative"})
	}
	if r.QuantityDefective < 0 {
		violations = append(violations, Violation{Field: "quantity_defective", Message: "quantity_defective must not be negative"})
	}
	if r.QuantityExchanged < 0 {
		violations = append(violations, Violation{Field: "quantity_exchanged", Message: "quantity_exchanged must not be negative"})
	}

	if r.Status != "" && !models.ValidStatuses[r.Status] {
		violations = append(violations, Violation{Field: "status", Message: "unknown status value"})
	}
	if r.DefectOrigin != "" && !models.ValidOrigins[models.NormalizeOrigin(r.DefectOrigin)] {
		violations = append(violations, Violation{Field: "defect_origin", Message: "unknown defect origin value"})
	}
	if r.Brand != "" && !models.ValidBrands[r.Brand] {
		violations = append(violations, Violation{Field: "brand", Message: "unknown brand value"})
	}

	return violations
}

// Duplicate builds a fresh draft from an existing report: new draft id,
// today's dates, reset lifecycle fields, preserved product identity and
// received/defective quantities.
func Duplicate(src *models.DefectReport, now time.Time) *models.DefectReport {
	dup := *src
	dup.ID = models.DraftIDPrefix + uuid.New().String()[:8]
	dup.CreatedAt = now
	dup.UpdatedAt = now
	dup.ReportedDate = now.Format(models.DateLayout)
	dup.Status = models.StatusNew
	dup.QuantityExchanged = 0
	dup.RootCause = ""
	dup.Resolution = ""
	dup.CompletedDate = ""
	dup.ExchangeDate = ""
	dup.Images = nil
	dup.ActivityLog = nil
	return &dup
}

// patchFieldTags maps each patchable field to its permission tag.
func patchFieldTags(p models.ReportPatch) map[string]string {
	tags := make(map[string]string)
	if p.Status != nil {
		tags["status"] = models.FieldStatus
	}
	if p.DefectOrigin != nil {
		tags["defect_origin"] = models.FieldDefectOrigin
	}
	if p.RootCause != nil {
		tags["root_cause"] = models.FieldRootCause
	}
	if p.Resolution != nil {
		tags["resolution"] = models.FieldResolution
	}
	if p.QuantityExchanged != nil {
		tags["quantity_exchanged"] = models.FieldExchangeQuantity
	}
	if p.ExchangeDate != nil {
		tags["exchange_date"] = models.FieldExchangeQuantity
	}
	if p.CompletedDate != nil {
		tags["completed_date"] = models.FieldCompletedDate
	}
	return tags
}

// PermissionError reports a patch touching fields the role may not edit.
// Forbidden mutations arriving outside the UI are rejected, not silently
// dropped.
type PermissionError struct {
	Role   string
	Fields []string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("role %q may not edit: %s", e.Role, strings.Join(e.Fields, ", "))
}

// CheckPatch verifies the role may edit every field the patch sets.
// Batch updates run through this before hitting the store.
func CheckPatch(patch models.ReportPatch, rc permission.Capability) error {
	var forbidden []string
	for field, tag := range patchFieldTags(patch) {
		if !rc.CanEditField(tag) {
			forbidden = append(forbidden, field)
		}
	}
	if len(forbidden) > 0 {
		return &PermissionError{Role: rc.Role, Fields: sorted(forbidden)}
	}
	return nil
}

// ApplyQuickUpdate commits a quick-edit patch onto a report: permission
// check, patch application, auto-completion, and an activity-log entry
// describing what changed. The returned entries are what must be appended
// through the store's array-union path; r already contains them.
func ApplyQuickUpdate(r *models.DefectReport, patch models.ReportPatch, rc permission.Capability, actor string, now time.Time) ([]models.ActivityEntry, error) {
	if patch.IsEmpty() {
		return nil, nil
	}

	var forbidden []string
	changed := make([]string, 0, 4)
	for field, tag := range patchFieldTags(patch) {
		if !rc.CanEditField(tag) {
			forbidden = append(forbidden, field)
		} else {
			changed = append(changed, field)
		}
	}
	if len(forbidden) > 0 {
		return nil, &PermissionError{Role: rc.Role, Fields: sorted(forbidden)}
	}

	logStart := len(r.ActivityLog)
	before := *r
	patch.Apply(r)
	r.UpdatedAt = now

	// Only fields whose value actually moved make the log entry, so a
	// patch re-sending current values leaves the audit trail alone.
	touched := changed[:0]
	for _, field := range changed {
		if fieldValue(&before, field) != fieldValue(r, field) {
			touched = append(touched, field)
		}
	}
	if len(touched) > 0 {
		r.ActivityLog = append(r.ActivityLog, NewLogEntry(
			"updated "+strings.Join(sorted(touched), ", "),
			actor, rc.Role, now))
	}

	AutoComplete(r, actor, rc.Role, now)

	return r.ActivityLog[logStart:], nil
}

// fieldValue reads the patchable field named by its json tag.
func fieldValue(r *models.DefectReport, field string) any {
	switch field {
	case "status":
		return r.Status
	case "defect_origin":
		return r.DefectOrigin
	case "root_cause":
		return r.RootCause
	case "resolution":
		return r.Resolution
	case "quantity_exchanged":
		return r.QuantityExchanged
	case "exchange_date":
		return r.ExchangeDate
	case "completed_date":
		return r.CompletedDate
	}
	return nil
}

// NewLogEntry builds a system-generated activity entry.
func NewLogEntry(content, actor, role string, now time.Time) models.ActivityEntry {
	return models.ActivityEntry{
		ID:         "act_" + uuid.New().String()[:8],
		Kind:       models.ActivityKindLog,
		Content:    content,
		Timestamp:  now,
		Author:     actor,
		AuthorRole: role,
	}
}

// NewComment builds a user-authored activity entry.
func NewComment(content, actor, role string, now time.Time) models.ActivityEntry {
	return models.ActivityEntry{
		ID:         "act_" + uuid.New().String()[:8],
		Kind:       models.ActivityKindComment,
		Content:    content,
		Timestamp:  now,
		Author:     actor,
		AuthorRole: role,
	}
}

func sorted(fields []string) []string {
	// insertion sort; patches carry at most seven fields
	for i := 1; i < len(fields); i++ {
		for j := i; j > 0 && fields[j] < fields[j-1]; j-- {
			fields[j], fields[j-1] = fields[j-1], fields[j]
		}
	}
	return fields
}
