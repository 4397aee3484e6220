package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/htmmed/qctrack/internal/common"
	"github.com/htmmed/qctrack/internal/models"
	"github.com/htmmed/qctrack/internal/services/cascade"
	"github.com/htmmed/qctrack/internal/services/lifecycle"
	"github.com/htmmed/qctrack/internal/services/reportfilter"
)

// criteriaFromQuery maps list query parameters onto filter criteria.
// Absent parameters leave their dimension unconstrained.
func criteriaFromQuery(q url.Values) reportfilter.Criteria {
	return reportfilter.Criteria{
		Search:   q.Get("search"),
		Status:   q.Get("status"),
		Origin:   q.Get("origin"),
		Year:     q.Get("year"),
		DateFrom: q.Get("from"),
		DateTo:   q.Get("to"),
	}
}

// visibleReports loads the full collection and applies the filter pipeline
// for the requesting role.
func (s *Server) visibleReports(r *http.Request) ([]*models.DefectReport, error) {
	rc, err := s.capability(r)
	if err != nil {
		return nil, err
	}
	reports, err := s.app.Storage.Reports().List(r.Context())
	if err != nil {
		return nil, err
	}
	return reportfilter.Apply(reports, criteriaFromQuery(r.URL.Query()), rc), nil
}

// catalogResolver builds a cascade resolver over the current catalog.
func (s *Server) catalogResolver(r *http.Request) (*cascade.Resolver, error) {
	products, err := s.app.Storage.Products().List(r.Context())
	if err != nil {
		return nil, err
	}
	byValue := make([]models.Product, len(products))
	for i, p := range products {
		byValue[i] = *p
	}
	return cascade.NewResolver(byValue), nil
}

// handleReports handles /api/reports — GET list, POST create.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleReportList(w, r)
	case http.MethodPost:
		s.handleReportCreate(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleReportList returns the filtered, paginated listing together with
// the status summary and the year directory for the filter bar.
func (s *Server) handleReportList(w http.ResponseWriter, r *http.Request) {
	filtered, err := s.visibleReports(r)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing reports: %v", err))
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size := s.app.Config.Reports.PageSize
	if v := q.Get("page_size"); v != "" {
		size, _ = strconv.Atoi(v)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"page":    reportfilter.Paginate(filtered, page, size),
		"summary": reportfilter.Summarize(filtered),
		"years":   reportfilter.Years(filtered),
	})
}

// handleReportCreate persists a submitted report after catalog
// canonicalization, validation and auto-completion.
func (s *Server) handleReportCreate(w http.ResponseWriter, r *http.Request) {
	rc, err := s.capability(r)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error resolving permissions: %v", err))
		return
	}
	if !rc.CanCreateReport {
		WriteError(w, http.StatusForbidden, "role may not create reports")
		return
	}

	var report models.DefectReport
	if !DecodeJSON(w, r, &report) {
		return
	}

	now := time.Now()
	report.DefectOrigin = models.NormalizeOrigin(report.DefectOrigin)
	if report.Status == "" {
		report.Status = models.StatusNew
	}

	resolver, err := s.catalogResolver(r)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading catalog: %v", err))
		return
	}
	resolver.Canonicalize(&report)

	if violations := lifecycle.Validate(&report); len(violations) > 0 {
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":      "validation failed",
			"violations": violations,
			"first":      violations[0].Field,
		})
		return
	}

	actor := actorName(r)
	lifecycle.AutoComplete(&report, actor, rc.Role, now)

	if err := s.app.Storage.Reports().Create(r.Context(), &report); err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error creating report: %v", err))
		return
	}

	s.app.Hub.ReportCreated(&report, actor)
	WriteJSON(w, http.StatusCreated, &report)
}

// loadVisibleReport fetches a report by id, hiding records whose defect
// origin the role may not see.
func (s *Server) loadVisibleReport(w http.ResponseWriter, r *http.Request, id string) (*models.DefectReport, bool) {
	rc, err := s.capability(r)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error resolving permissions: %v", err))
		return nil, false
	}
	report, err := s.app.Storage.Reports().Get(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading report: %v", err))
		return nil, false
	}
	if report == nil || !rc.CanViewOrigin(report.DefectOrigin) {
		WriteError(w, http.StatusNotFound, "report not found")
		return nil, false
	}
	return report, true
}

// handleReportByID handles /api/reports/{id} — GET, PUT, PATCH, DELETE.
func (s *Server) handleReportByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		report, ok := s.loadVisibleReport(w, r, id)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, report)
	case http.MethodPut:
		s.handleReportReplace(w, r, id)
	case http.MethodPatch:
		s.handleReportQuickUpdate(w, r, id)
	case http.MethodDelete:
		s.handleReportDelete(w, r, id)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}

// diffPatch builds the patch implied by a full-form edit, plus whether any
// field outside the tagged set changed.
func diffPatch(before, after *models.DefectReport) (models.ReportPatch, bool) {
	var p models.ReportPatch
	if before.Status != after.Status {
		p.Status = &after.Status
	}
	if before.DefectOrigin != after.DefectOrigin {
		p.DefectOrigin = &after.DefectOrigin
	}
	if before.RootCause != after.RootCause {
		p.RootCause = &after.RootCause
	}
	if before.Resolution != after.Resolution {
		p.Resolution = &after.Resolution
	}
	if before.QuantityExchanged != after.QuantityExchanged {
		p.QuantityExchanged = &after.QuantityExchanged
	}
	if before.ExchangeDate != after.ExchangeDate {
		p.ExchangeDate = &after.ExchangeDate
	}
	if before.CompletedDate != after.CompletedDate {
		p.CompletedDate = &after.CompletedDate
	}

	generalChanged := before.ReportedDate != after.ReportedDate ||
		before.ProductCode != after.ProductCode ||
		before.ProductLine != after.ProductLine ||
		before.TradeName != after.TradeName ||
		before.DeviceName != after.DeviceName ||
		before.Brand != after.Brand ||
		before.BatchNumber != after.BatchNumber ||
		before.Distributor != after.Distributor ||
		before.UsingUnit != after.UsingUnit ||
		before.QuantityReceived != after.QuantityReceived ||
		before.QuantityDefective != after.QuantityDefective ||
		before.ComplaintText != after.ComplaintText

	return p, generalChanged
}

// handleReportReplace is the full-form edit path: the whole record is
// validated and replaced, with per-field edit permissions checked against
// what actually changed.
func (s *Server) handleReportReplace(w http.ResponseWriter, r *http.Request, id string) {
	existing, ok := s.loadVisibleReport(w, r, id)
	if !ok {
		return
	}
	rc, err := s.capability(r)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error resolving permissions: %v", err))
		return
	}
	if !rc.CanEditAnyField {
		WriteError(w, http.StatusForbidden, "role may not edit reports")
		return
	}

	var report models.DefectReport
	if !DecodeJSON(w, r, &report) {
		return
	}

	now := time.Now()
	report.ID = existing.ID
	report.CreatedAt = existing.CreatedAt
	report.ActivityLog = existing.ActivityLog
	report.DefectOrigin = models.NormalizeOrigin(report.DefectOrigin)

	resolver, err := s.catalogResolver(r)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading catalog: %v", err))
		return
	}
	resolver.Canonicalize(&report)

	patch, generalChanged := diffPatch(existing, &report)
	if err := lifecycle.CheckPatch(patch, rc); err != nil {
		WriteError(w, http.StatusForbidden, err.Error())
		return
	}
	if generalChanged && !rc.CanEditField(models.FieldGeneral) {
		WriteError(w, http.StatusForbidden, fmt.Sprintf("role %q may not edit general report fields", rc.Role))
		return
	}

	if violations := lifecycle.Validate(&report); len(violations) > 0 {
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":      "validation failed",
			"violations": violations,
			"first":      violations[0].Field,
		})
		return
	}

	actor := actorName(r)
	lifecycle.AutoComplete(&report, actor, rc.Role, now)
	report.UpdatedAt = now

	if err := s.app.Storage.Reports().Replace(r.Context(), &report); err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error saving report: %v", err))
		return
	}

	s.app.Hub.ReportUpdated(&report, actor)
	WriteJSON(w, http.StatusOK, &report)
}

// handleReportQuickUpdate is the quick-edit path: a small patch on the
// tagged fields, committed through the store's partial-update and
// activity-union operations.
func (s *Server) handleReportQuickUpdate(w http.ResponseWriter, r *http.Request, id string) {
	report, ok := s.loadVisibleReport(w, r, id)
	if !ok {
		return
	}
	rc, err := s.capability(r)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error resolving permissions: %v", err))
		return
	}

	var patch models.ReportPatch
	if !DecodeJSON(w, r, &patch) {
		return
	}
	if patch.IsEmpty() {
		WriteError(w, http.StatusBadRequest, "patch sets no fields")
		return
	}

	now := time.Now()
	actor := actorName(r)
	prevStatus := report.Status
	prevCompleted := report.CompletedDate

	entries, err := lifecycle.ApplyQuickUpdate(report, patch, rc, actor, now)
	if err != nil {
		var perr *lifecycle.PermissionError
		if errors.As(err, &perr) {
			WriteError(w, http.StatusForbidden, perr.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error applying update: %v", err))
		return
	}

	// Fold auto-completion effects into the stored patch.
	if report.Status != prevStatus {
		patch.Status = &report.Status
	}
	if report.CompletedDate != prevCompleted {
		patch.CompletedDate = &report.CompletedDate
	}

	store := s.app.Storage.Reports()
	if err := store.Update(r.Context(), id, patch); err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error saving update: %v", err))
		return
	}
	if len(entries) > 0 {
		if err := store.AppendActivity(r.Context(), id, entries...); err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error appending activity: %v", err))
			return
		}
	}

	s.app.Hub.ReportUpdated(report, actor)
	WriteJSON(w, http.StatusOK, report)
}

// handleReportDelete removes a report. The caller must pass confirm=true;
// deletion is permanent.
func (s *Server) handleReportDelete(w http.ResponseWriter, r *http.Request, id string) {
	rc, err := s.capability(r)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error resolving permissions: %v", err))
		return
	}
	if !rc.CanDeleteReport {
		WriteError(w, http.StatusForbidden, "role may not delete reports")
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		WriteError(w, http.StatusBadRequest, "deletion requires confirm=true")
		return
	}

	report, ok := s.loadVisibleReport(w, r, id)
	if !ok {
		return
	}

	if err := s.app.Storage.Reports().Delete(r.Context(), report.ID); err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error deleting report: %v", err))
		return
	}

	s.app.Hub.ReportDeleted(report.ID, actorName(r))
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": report.ID})
}

// handleReportDuplicate handles POST /api/reports/{id}/duplicate — build a
// draft copy of an existing report. The draft is returned, not persisted;
// it goes through the normal create path once submitted.
func (s *Server) handleReportDuplicate(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	rc, err := s.capability(r)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error resolving permissions: %v", err))
		return
	}
	if !rc.CanCreateReport {
		WriteError(w, http.StatusForbidden, "role may not create reports")
		return
	}

	src, ok := s.loadVisibleReport(w, r, id)
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, lifecycle.Duplicate(src, time.Now()))
}

// handleReportComment handles POST /api/reports/{id}/comments — append a
// user-authored activity entry.
func (s *Server) handleReportComment(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	uc := common.UserContextFromContext(r.Context())
	if uc == nil {
		WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		WriteError(w, http.StatusBadRequest, "comment content is required")
		return
	}

	report, ok := s.loadVisibleReport(w, r, id)
	if !ok {
		return
	}

	entry := lifecycle.NewComment(req.Content, uc.Username, uc.Role, time.Now())
	if err := s.app.Storage.Reports().AppendActivity(r.Context(), report.ID, entry); err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error appending comment: %v", err))
		return
	}

	report.ActivityLog = append(report.ActivityLog, entry)
	s.app.Hub.ReportUpdated(report, uc.Username)
	WriteJSON(w, http.StatusCreated, entry)
}

// handleReportBatch handles POST /api/reports/batch — apply one patch to
// several reports in a single atomic store call.
func (s *Server) handleReportBatch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	rc, err := s.capability(r)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error resolving permissions: %v", err))
		return
	}

	var req struct {
		IDs   []string           `json:"ids"`
		Patch models.ReportPatch `json:"patch"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		WriteError(w, http.StatusBadRequest, "ids are required")
		return
	}
	if req.Patch.IsEmpty() {
		WriteError(w, http.StatusBadRequest, "patch sets no fields")
		return
	}
	if err := lifecycle.CheckPatch(req.Patch, rc); err != nil {
		WriteError(w, http.StatusForbidden, err.Error())
		return
	}

	count, err := s.app.Storage.Reports().BatchUpdate(r.Context(), req.IDs, req.Patch)
	if err != nil {
		WriteError(w, http.StatusConflict, fmt.Sprintf("Batch update failed: %v", err))
		return
	}

	s.app.Hub.ReportsBatchUpdated(req.IDs, actorName(r))
	WriteJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "updated": count})
}
